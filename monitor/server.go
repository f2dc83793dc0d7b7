// Package monitor exposes validator registration over HTTP.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/cors"
	"go.uber.org/zap"

	valtoken "valtoken-monitor/solana"
	"valtoken-monitor/storage"
)

// Registrar runs the on-chain registration of one program.
type Registrar interface {
	Register(ctx context.Context, programID solana.PublicKey, params *valtoken.RegistrationParams, voteKey solana.PrivateKey) ([]solana.Signature, error)
}

// Pool hands out program ids.
type Pool interface {
	Claim(ctx context.Context, identity string) (*storage.ProgramDocument, error)
	Release(ctx context.Context, programID, identity string) error
	Lookup(ctx context.Context, identity string) (*storage.ProgramDocument, error)
}

// Chain reads program state.
type Chain interface {
	FetchConfigState(ctx context.Context, programID solana.PublicKey) (*valtoken.ConfigState, error)
	FetchUriAccounts(ctx context.Context, programID solana.PublicKey) ([]valtoken.UriStoreHeader, error)
}

// VoteKeySource returns the vote keypair to use for programID.
type VoteKeySource func(programID solana.PublicKey) (solana.PrivateKey, error)

type Options struct {
	Registrar Registrar
	Pool      Pool
	Chain     Chain
	VoteKeys  VoteKeySource
	Identity  solana.PublicKey
	Logger    *zap.Logger

	AllowedOrigins []string
	// RequestTimeout bounds a registration request end to end.
	RequestTimeout time.Duration
}

type Server struct {
	registrar Registrar
	pool      Pool
	chain     Chain
	voteKeys  VoteKeySource
	identity  solana.PublicKey
	logger    *zap.Logger

	allowedOrigins []string
	requestTimeout time.Duration
}

func NewServer(opts Options) (*Server, error) {
	if opts.Registrar == nil || opts.Pool == nil || opts.Chain == nil || opts.VoteKeys == nil {
		return nil, fmt.Errorf("registrar, pool, chain and vote key source are required")
	}
	if opts.Identity == (solana.PublicKey{}) {
		return nil, fmt.Errorf("validator identity is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 10 * time.Minute
	}
	return &Server{
		registrar:      opts.Registrar,
		pool:           opts.Pool,
		chain:          opts.Chain,
		voteKeys:       opts.VoteKeys,
		identity:       opts.Identity,
		logger:         opts.Logger,
		allowedOrigins: opts.AllowedOrigins,
		requestTimeout: opts.RequestTimeout,
	}, nil
}

// Handler returns the routed API wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/programs/{programId}/accounts", s.handleAccounts)

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.logRequests(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
