package valtoken_protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	defaultPollInterval   = 2 * time.Second
	defaultConfirmTimeout = 90 * time.Second
)

// RPC is the subset of the Solana JSON-RPC API used by the client.
// *rpc.Client satisfies it.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error)
	GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
}

// Client submits validator program transactions with a shared payer.
type Client struct {
	RpcClient RPC
	// Payer funds and signs every transaction.
	Payer solana.PrivateKey
	// Identity is the validator node key; it signs vote account creation.
	Identity solana.PrivateKey

	PollInterval   time.Duration
	ConfirmTimeout time.Duration

	logger *zap.Logger
}

// NewClient creates a Client talking to rpcEndpoint. A zero identity means
// the payer doubles as the validator identity.
func NewClient(rpcEndpoint string, payer, identity solana.PrivateKey, logger *zap.Logger) (*Client, error) {
	if rpcEndpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}
	return NewClientWithRPC(rpc.New(rpcEndpoint), payer, identity, logger)
}

// NewClientWithRPC creates a Client over an existing RPC implementation.
func NewClientWithRPC(rpcClient RPC, payer, identity solana.PrivateKey, logger *zap.Logger) (*Client, error) {
	if len(payer) != solana.PrivateKeyLength {
		return nil, fmt.Errorf("payer keypair is required")
	}
	if len(identity) == 0 {
		identity = payer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		RpcClient:      rpcClient,
		Payer:          payer,
		Identity:       identity,
		PollInterval:   defaultPollInterval,
		ConfirmTimeout: defaultConfirmTimeout,
		logger:         logger,
	}, nil
}

// SendInstructions wraps instructions into one transaction paid by the payer,
// signs it with the payer plus extraSigners and submits it.
func (c *Client) SendInstructions(ctx context.Context, instructions []solana.Instruction, extraSigners ...solana.PrivateKey) (solana.Signature, error) {
	latestBlockhash, err := c.RpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if latestBlockhash == nil || latestBlockhash.Value == nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: empty response")
	}

	tx, err := solana.NewTransaction(
		instructions,
		latestBlockhash.Value.Blockhash,
		solana.TransactionPayer(c.Payer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	signers := map[solana.PublicKey]solana.PrivateKey{c.Payer.PublicKey(): c.Payer}
	for _, s := range extraSigners {
		signers[s.PublicKey()] = s
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if s, ok := signers[key]; ok {
			return &s
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.RpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	c.logger.Debug("transaction sent", zap.Stringer("signature", sig), zap.Int("instructions", len(instructions)))
	return sig, nil
}

// WaitForConfirmation polls the signature status until the transaction is
// confirmed, fails on chain, or ConfirmTimeout elapses.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		resp, err := c.RpcClient.GetSignatureStatuses(ctx, false, sig)
		if err != nil && ctx.Err() == nil {
			c.logger.Warn("signature status lookup failed", zap.Stringer("signature", sig), zap.Error(err))
		}
		if err == nil && resp != nil && len(resp.Value) > 0 && resp.Value[0] != nil {
			status := resp.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s", ErrConfirmTimeout, sig)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SendAndConfirm sends instructions and waits for the transaction to land.
func (c *Client) SendAndConfirm(ctx context.Context, instructions []solana.Instruction, extraSigners ...solana.PrivateKey) (solana.Signature, error) {
	sig, err := c.SendInstructions(ctx, instructions, extraSigners...)
	if err != nil {
		return solana.Signature{}, err
	}
	if err := c.WaitForConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// FetchAccountData returns the raw data of account or ErrAccountNotFound.
func (c *Client) FetchAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	resp, err := c.RpcClient.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		// The RPC client reports a missing account as ErrNotFound.
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account info for %s: %w", account, err)
	}
	if resp == nil || resp.Value == nil {
		return nil, ErrAccountNotFound
	}
	return resp.Value.Data.GetBinary(), nil
}

// AccountExists reports whether account is present on chain.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.FetchAccountData(ctx, account)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBalance retrieves the SOL balance for a given public key.
func (c *Client) GetBalance(ctx context.Context, publicKey solana.PublicKey) (uint64, error) {
	balance, err := c.RpcClient.GetBalance(ctx, publicKey, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// FetchConfigState fetches and parses the program's config account.
func (c *Client) FetchConfigState(ctx context.Context, programID solana.PublicKey) (*ConfigState, error) {
	configPDA, _, err := NewDeriver(programID).GetConfigPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get config PDA: %w", err)
	}
	data, err := c.FetchAccountData(ctx, configPDA)
	if err != nil {
		return nil, err
	}
	return ParseConfigState(data)
}
