package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var (
	ErrNoProgramAvailable = errors.New("no program id available")
	ErrClaimNotHeld       = errors.New("program is not claimed by this validator")
)

const defaultCandidateLimit = 10

// ProgramPool hands out deployable program ids, one per validator identity.
type ProgramPool struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	CandidateLimit int64
}

func NewProgramPool(store Store, logger *zap.Logger) *ProgramPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramPool{
		store:          store,
		logger:         logger,
		now:            time.Now,
		CandidateLimit: defaultCandidateLimit,
	}
}

// normalize fills whichever of ID and ProgramID the document left empty.
// The document id is the program id.
func normalize(doc *ProgramDocument) {
	if doc.ProgramID == "" {
		doc.ProgramID = doc.ID
	}
	if doc.ID == "" {
		doc.ID = doc.ProgramID
	}
}

// Lookup returns the program already claimed by identity, or ErrNotFound.
func (p *ProgramPool) Lookup(ctx context.Context, identity string) (*ProgramDocument, error) {
	doc, err := p.store.FindOne(ctx, bson.M{"validator": identity})
	if err != nil {
		return nil, err
	}
	normalize(doc)
	return doc, nil
}

// Claim returns identity's existing program or claims an available one.
// Each candidate is claimed with a conditional update on its status, so a
// concurrent claimer that wins the document makes us move to the next one.
func (p *ProgramPool) Claim(ctx context.Context, identity string) (*ProgramDocument, error) {
	if identity == "" {
		return nil, fmt.Errorf("validator identity is required")
	}

	existing, err := p.Lookup(ctx, identity)
	if err == nil {
		p.logger.Debug("validator already holds a program", zap.String("program", existing.ProgramID))
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up existing claim: %w", err)
	}

	candidates, err := p.store.Find(ctx, bson.M{"status": StatusAvailable}, p.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list available programs: %w", err)
	}

	for _, doc := range candidates {
		normalize(&doc)
		claimedAt := p.now().UTC()
		res, err := p.store.UpdateOne(ctx,
			bson.M{"_id": doc.ID, "status": StatusAvailable},
			bson.M{"$set": bson.M{
				"status":    StatusClaimed,
				"validator": identity,
				"claimedAt": claimedAt,
			}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to claim program %s: %w", doc.ProgramID, err)
		}
		if res.ModifiedCount != 1 {
			p.logger.Debug("lost claim race", zap.String("program", doc.ProgramID))
			continue
		}

		doc.Status = StatusClaimed
		doc.Validator = identity
		doc.ClaimedAt = &claimedAt
		p.logger.Info("program claimed", zap.String("program", doc.ProgramID), zap.String("validator", identity))
		return &doc, nil
	}

	return nil, ErrNoProgramAvailable
}

// Release returns a claimed program to the pool.
func (p *ProgramPool) Release(ctx context.Context, programID, identity string) error {
	res, err := p.store.UpdateOne(ctx,
		bson.M{"_id": programID, "validator": identity, "status": StatusClaimed},
		bson.M{
			"$set":   bson.M{"status": StatusAvailable},
			"$unset": bson.M{"validator": "", "claimedAt": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to release program %s: %w", programID, err)
	}
	if res.ModifiedCount != 1 {
		return ErrClaimNotHeld
	}
	p.logger.Info("program released", zap.String("program", programID), zap.String("validator", identity))
	return nil
}
