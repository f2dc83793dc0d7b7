package valtoken_protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stage names one phase of a registration.
type Stage string

const (
	StageInit   Stage = "init"
	StageUpload Stage = "upload"
	StageVote   Stage = "vote"
)

const DefaultUploadConcurrency = 4

// RegistrationError reports the stage that failed along with every
// signature confirmed before the failure.
type RegistrationError struct {
	Stage     Stage
	Completed []solana.Signature
	Err       error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration failed at %s stage after %d transactions: %v", e.Stage, len(e.Completed), e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Journal persists confirmed steps so an interrupted registration can resume.
type Journal interface {
	Completed(programID, step string) (string, bool)
	Record(programID, step, signature string) error
}

type nopJournal struct{}

func (nopJournal) Completed(string, string) (string, bool) { return "", false }
func (nopJournal) Record(string, string, string) error     { return nil }

// Registrar drives the init, upload and vote stages of a registration.
type Registrar struct {
	client  *Client
	journal Journal
	logger  *zap.Logger

	UploadConcurrency int
	UrisPerBatch      int
	BatchBytes        int
}

func NewRegistrar(client *Client, journal Journal, logger *zap.Logger) *Registrar {
	if journal == nil {
		journal = nopJournal{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registrar{
		client:            client,
		journal:           journal,
		logger:            logger,
		UploadConcurrency: DefaultUploadConcurrency,
		UrisPerBatch:      DefaultUrisPerBatch,
		BatchBytes:        DefaultBatchBytes,
	}
}

func uploadStep(args *UploadUrisArgs) string {
	return fmt.Sprintf("%s:%s:%d", StageUpload, args.Rarity, args.Offset)
}

// registration tracks the signatures of one Register call.
type registration struct {
	programID solana.PublicKey
	accounts  *RegistrationAccounts
	completed []solana.Signature
}

func (r *registration) fail(stage Stage, err error) error {
	return &RegistrationError{Stage: stage, Completed: r.completed, Err: err}
}

// Register runs a full registration against programID and returns the
// signatures in submission order: init, uploads by rarity and offset, vote.
// voteKey may be nil when the config account already names a vote account
// that exists on chain; otherwise it must sign vote account creation.
func (r *Registrar) Register(ctx context.Context, programID solana.PublicKey, params *RegistrationParams, voteKey solana.PrivateKey) ([]solana.Signature, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	plan, err := PlanUploads(params.Uris, r.UrisPerBatch, r.BatchBytes)
	if err != nil {
		return nil, err
	}
	accounts, err := NewDeriver(programID).DeriveAll()
	if err != nil {
		return nil, fmt.Errorf("failed to derive accounts: %w", err)
	}

	reg := &registration{programID: programID, accounts: accounts}
	log := r.logger.With(zap.Stringer("program", programID))

	state, err := r.runInit(ctx, reg, params, voteKey, log)
	if err != nil {
		return nil, err
	}
	if err := r.runUploads(ctx, reg, plan, state, log); err != nil {
		return nil, err
	}
	if err := r.runVote(ctx, reg, params, state.VoteAccount, voteKey, log); err != nil {
		return nil, err
	}

	log.Info("registration complete", zap.Int("signatures", len(reg.completed)))
	return reg.completed, nil
}

// runInit sends Init unless the config account already exists, and returns
// the on-chain config state either way.
func (r *Registrar) runInit(ctx context.Context, reg *registration, params *RegistrationParams, voteKey solana.PrivateKey, log *zap.Logger) (*ConfigState, error) {
	programID := reg.programID.String()

	state, err := r.client.FetchConfigState(ctx, reg.programID)
	switch {
	case err == nil:
		if sig, ok := r.journal.Completed(programID, string(StageInit)); ok {
			reg.appendJournaled(sig)
		}
		log.Info("config account exists, skipping init", zap.Stringer("voteAccount", state.VoteAccount))
		return state, nil
	case !errors.Is(err, ErrAccountNotFound):
		return nil, reg.fail(StageInit, err)
	}

	if len(voteKey) == 0 {
		return nil, reg.fail(StageInit, fmt.Errorf("vote keypair is required for a new registration"))
	}

	args := params.InitArgs(r.client.Identity.PublicKey(), voteKey.PublicKey())
	ix, err := NewInitInstruction(args, r.client.Payer.PublicKey(), reg.accounts)
	if err != nil {
		return nil, reg.fail(StageInit, err)
	}
	sig, err := r.client.SendAndConfirm(ctx, []solana.Instruction{ix})
	if err != nil {
		return nil, reg.fail(StageInit, fmt.Errorf("failed to send init: %w", err))
	}
	reg.completed = append(reg.completed, sig)
	r.record(log, programID, string(StageInit), sig)
	log.Info("init confirmed", zap.Stringer("signature", sig))

	state = &ConfigState{
		SchemaVersion: args.SchemaVersion,
		Identity:      args.Identity,
		VoteAccount:   args.VoteAccount,
		Commission:    args.Commission,
		Supply:        args.Supply,
		MintPrice:     args.MintPrice,
		Name:          args.Name,
	}
	return state, nil
}

// runUploads submits every pending batch with bounded concurrency. The first
// failure stops batches that have not started; a batch already being sent is
// still confirmed so its signature is reported and journaled.
func (r *Registrar) runUploads(ctx context.Context, reg *registration, plan []*UploadUrisArgs, state *ConfigState, log *zap.Logger) error {
	programID := reg.programID.String()
	sigs := make([]solana.Signature, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	limit := r.UploadConcurrency
	if limit <= 0 {
		limit = DefaultUploadConcurrency
	}
	g.SetLimit(limit)

	for i, args := range plan {
		step := uploadStep(args)
		if sig, ok := r.journal.Completed(programID, step); ok {
			if parsed, err := solana.SignatureFromBase58(sig); err == nil {
				sigs[i] = parsed
			}
			continue
		}
		if args.Offset+uint32(len(args.Uris)) <= state.Uploaded[args.Rarity] {
			log.Debug("batch already on chain", zap.String("step", step))
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ix, err := NewUploadUrisInstruction(args, r.client.Payer.PublicKey(), reg.accounts)
			if err != nil {
				return err
			}
			sig, err := r.client.SendAndConfirm(ctx, []solana.Instruction{ix})
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", step, err)
			}
			sigs[i] = sig
			r.record(log, programID, step, sig)
			log.Info("uri batch confirmed",
				zap.Stringer("rarity", args.Rarity),
				zap.Uint32("offset", args.Offset),
				zap.Int("uris", len(args.Uris)),
				zap.Stringer("signature", sig),
			)
			return nil
		})
	}

	err := g.Wait()
	for _, sig := range sigs {
		if sig != (solana.Signature{}) {
			reg.completed = append(reg.completed, sig)
		}
	}
	if err != nil {
		return reg.fail(StageUpload, err)
	}
	return nil
}

func (r *Registrar) runVote(ctx context.Context, reg *registration, params *RegistrationParams, voteAccount solana.PublicKey, voteKey solana.PrivateKey, log *zap.Logger) error {
	programID := reg.programID.String()

	exists, err := r.client.AccountExists(ctx, voteAccount)
	if err != nil {
		return reg.fail(StageVote, err)
	}
	if exists {
		if sig, ok := r.journal.Completed(programID, string(StageVote)); ok {
			reg.appendJournaled(sig)
		}
		log.Info("vote account exists, skipping creation", zap.Stringer("voteAccount", voteAccount))
		return nil
	}

	if len(voteKey) == 0 || !voteKey.PublicKey().Equals(voteAccount) {
		return reg.fail(StageVote, fmt.Errorf("vote keypair for %s is not available", voteAccount))
	}

	rent, err := r.client.RpcClient.GetMinimumBalanceForRentExemption(ctx, VoteStateSize, rpc.CommitmentConfirmed)
	if err != nil {
		return reg.fail(StageVote, fmt.Errorf("failed to get vote account rent: %w", err))
	}
	ixs, err := NewCreateVoteAccountInstructions(
		r.client.Payer.PublicKey(),
		voteAccount,
		r.client.Identity.PublicKey(),
		reg.accounts,
		params.Commission,
		rent,
	)
	if err != nil {
		return reg.fail(StageVote, err)
	}
	sig, err := r.client.SendAndConfirm(ctx, ixs, voteKey, r.client.Identity)
	if err != nil {
		return reg.fail(StageVote, fmt.Errorf("failed to create vote account: %w", err))
	}
	reg.completed = append(reg.completed, sig)
	r.record(log, programID, string(StageVote), sig)
	log.Info("vote account created", zap.Stringer("voteAccount", voteAccount), zap.Stringer("signature", sig))
	return nil
}

func (reg *registration) appendJournaled(sig string) {
	if parsed, err := solana.SignatureFromBase58(sig); err == nil {
		reg.completed = append(reg.completed, parsed)
	}
}

// record failures are logged only; the transaction already landed.
func (r *Registrar) record(log *zap.Logger, programID, step string, sig solana.Signature) {
	if err := r.journal.Record(programID, step, sig.String()); err != nil {
		log.Warn("failed to record journal step", zap.String("step", step), zap.Error(err))
	}
}
