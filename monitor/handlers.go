package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	valtoken "valtoken-monitor/solana"
	"valtoken-monitor/storage"
)

const maxRegisterBody = 8 << 20

// APIResponse is the envelope of every error and plain status reply.
type APIResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message,omitempty"`
	Stage      string   `json:"stage,omitempty"`
	Signatures []string `json:"signatures,omitempty"`
}

type RegisterResponse struct {
	ProgramID   string   `json:"programId"`
	VoteAccount string   `json:"voteAccount"`
	Signatures  []string `json:"signatures"`
}

type StatusResponse struct {
	Identity    string                    `json:"identity"`
	Claimed     bool                      `json:"claimed"`
	ProgramID   string                    `json:"programId,omitempty"`
	Initialized bool                      `json:"initialized"`
	Config      *valtoken.ConfigState     `json:"config,omitempty"`
	UriAccounts []valtoken.UriStoreHeader `json:"uriAccounts,omitempty"`
}

type AccountsResponse struct {
	ProgramID string                    `json:"programId"`
	Accounts  []valtoken.DerivedAccount `json:"accounts"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, APIResponse{Status: "error", Message: message})
}

func signatureStrings(sigs []solana.Signature) []string {
	out := make([]string, len(sigs))
	for i, sig := range sigs {
		out[i] = sig.String()
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Status: "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var params valtoken.RegistrationParams
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRegisterBody)).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	identity := s.identity.String()
	claim, err := s.pool.Claim(ctx, identity)
	if errors.Is(err, storage.ErrNoProgramAvailable) {
		writeError(w, http.StatusServiceUnavailable, "No program id is available for registration.")
		return
	}
	if err != nil {
		s.logger.Error("failed to claim program id", zap.Error(err))
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Failed to claim program id: %v", err))
		return
	}

	programID, err := solana.PublicKeyFromBase58(claim.ProgramID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Claimed program id %q is invalid.", claim.ProgramID))
		return
	}

	voteKey, err := s.voteKeys(programID)
	if err != nil {
		s.logger.Error("failed to load vote keypair", zap.Stringer("program", programID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load vote keypair.")
		return
	}

	sigs, err := s.registrar.Register(ctx, programID, &params, voteKey)
	if err != nil {
		s.handleRegisterError(ctx, w, claim, err)
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{
		ProgramID:   programID.String(),
		VoteAccount: voteKey.PublicKey().String(),
		Signatures:  signatureStrings(sigs),
	})
}

func (s *Server) handleRegisterError(ctx context.Context, w http.ResponseWriter, claim *storage.ProgramDocument, err error) {
	var regErr *valtoken.RegistrationError
	if !errors.As(err, &regErr) {
		if errors.Is(err, valtoken.ErrInvalidParams) || errors.Is(err, valtoken.ErrUriTooLarge) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("registration failed", zap.String("program", claim.ProgramID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Error("registration failed",
		zap.String("program", claim.ProgramID),
		zap.String("stage", string(regErr.Stage)),
		zap.Int("completed", len(regErr.Completed)),
		zap.Error(regErr.Err),
	)

	// Nothing landed, so the program id can go back to the pool. A confirmation
	// timeout may still land later and keeps the claim.
	if regErr.Stage == valtoken.StageInit && len(regErr.Completed) == 0 && !errors.Is(regErr, valtoken.ErrConfirmTimeout) {
		if relErr := s.pool.Release(context.WithoutCancel(ctx), claim.ID, claim.Validator); relErr != nil {
			s.logger.Warn("failed to release program id", zap.String("program", claim.ProgramID), zap.Error(relErr))
		}
	}

	writeJSON(w, http.StatusBadGateway, APIResponse{
		Status:     "error",
		Stage:      string(regErr.Stage),
		Message:    regErr.Err.Error(),
		Signatures: signatureStrings(regErr.Completed),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Identity: s.identity.String()}

	claim, err := s.pool.Lookup(r.Context(), resp.Identity)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Failed to look up claim: %v", err))
		return
	}
	resp.Claimed = true
	resp.ProgramID = claim.ProgramID

	programID, err := solana.PublicKeyFromBase58(claim.ProgramID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Claimed program id %q is invalid.", claim.ProgramID))
		return
	}

	state, err := s.chain.FetchConfigState(r.Context(), programID)
	switch {
	case errors.Is(err, valtoken.ErrAccountNotFound):
		writeJSON(w, http.StatusOK, resp)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Failed to fetch config account: %v", err))
		return
	}
	resp.Initialized = true
	resp.Config = state

	uris, err := s.chain.FetchUriAccounts(r.Context(), programID)
	if err != nil {
		s.logger.Warn("failed to fetch uri accounts", zap.Stringer("program", programID), zap.Error(err))
	}
	resp.UriAccounts = uris

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	programID, err := solana.PublicKeyFromBase58(r.PathValue("programId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid program id.")
		return
	}
	accs, err := valtoken.NewDeriver(programID).DeriveAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to derive accounts: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, AccountsResponse{ProgramID: programID.String(), Accounts: accs.List()})
}
