package valtoken_protocol

import "errors"

var (
	ErrInvalidRarity          = errors.New("invalid rarity")
	ErrInvalidParams          = errors.New("invalid registration params")
	ErrEmptyBatch             = errors.New("empty uri batch")
	ErrUriTooLarge            = errors.New("uri exceeds batch budget")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrAccountNotFound        = errors.New("account not found")
	ErrConfirmTimeout         = errors.New("timed out waiting for confirmation")
)
