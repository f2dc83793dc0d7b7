package valtoken_protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

// fakeRPC is an in-memory chain. A sent transaction reports processed for
// pendingPolls status lookups and confirmed after that, unless failSend
// rejects it.
type fakeRPC struct {
	mu           sync.Mutex
	accounts     map[solana.PublicKey][]byte
	sent         []*solana.Transaction
	kinds        map[solana.Signature]string
	polls        map[solana.Signature]int
	pendingPolls int
	failSend     func(kind string) error
	rent         uint64
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		accounts: make(map[solana.PublicKey][]byte),
		kinds:    make(map[solana.Signature]string),
		polls:    make(map[solana.Signature]int),
		rent:     27_074_400,
	}
}

// txKind names a transaction by its last instruction: "init",
// "upload:<rarity>:<offset>" or "vote".
func txKind(tx *solana.Transaction) string {
	last := tx.Message.Instructions[len(tx.Message.Instructions)-1]
	program := tx.Message.AccountKeys[last.ProgramIDIndex]
	if program.Equals(solana.VoteProgramID) {
		return string(StageVote)
	}
	decoded, err := DecodeInstruction(last.Data)
	if err != nil {
		return "unknown"
	}
	switch args := decoded.(type) {
	case *InitArgs:
		return string(StageInit)
	case *UploadUrisArgs:
		return uploadStep(args)
	}
	return "unknown"
}

func (f *fakeRPC) setAccount(key solana.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[key] = data
}

func (f *fakeRPC) sentKinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, tx := range f.sent {
		out[i] = txKind(tx)
	}
	return out
}

func (f *fakeRPC) kindsOf(t *testing.T, sigs []solana.Signature) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(sigs))
	for i, sig := range sigs {
		kind, ok := f.kinds[sig]
		require.True(t, ok, "signature %s was never sent", sig)
		out[i] = kind
	}
	return out
}

func (f *fakeRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{1, 2, 3}},
	}, nil
}

func (f *fakeRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}
	if err := tx.VerifySignatures(); err != nil {
		return solana.Signature{}, fmt.Errorf("bad signatures: %w", err)
	}
	kind := txKind(tx)
	if f.failSend != nil {
		if err := f.failSend(kind); err != nil {
			return solana.Signature{}, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	sig := tx.Signatures[0]
	f.kinds[sig] = kind
	return sig, nil
}

func (f *fakeRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &rpc.GetSignatureStatusesResult{}
	for _, sig := range signatures {
		if _, ok := f.kinds[sig]; !ok {
			out.Value = append(out.Value, nil)
			continue
		}
		status := rpc.ConfirmationStatusConfirmed
		if f.polls[sig] < f.pendingPolls {
			f.polls[sig]++
			status = rpc.ConfirmationStatusProcessed
		}
		out.Value = append(out.Value, &rpc.SignatureStatusesResult{
			ConfirmationStatus: status,
		})
	}
	return out, nil
}

func (f *fakeRPC) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)},
	}, nil
}

func (f *fakeRPC) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error) {
	if dataSize != VoteStateSize {
		return 0, errors.New("unexpected data size")
	}
	return f.rent, nil
}

func (f *fakeRPC) GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out rpc.GetProgramAccountsResult
	for key, data := range f.accounts {
		if len(data) > 0 && data[0] == Account_Uris {
			out = append(out, &rpc.KeyedAccount{
				Pubkey:  key,
				Account: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)},
			})
		}
	}
	return out, nil
}

func (f *fakeRPC) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: 5 * solana.LAMPORTS_PER_SOL}, nil
}

func newTestClient(t *testing.T, fake *fakeRPC, identity solana.PrivateKey) *Client {
	t.Helper()
	client, err := NewClientWithRPC(fake, solana.NewWallet().PrivateKey, identity, nil)
	require.NoError(t, err)
	client.PollInterval = time.Millisecond
	client.ConfirmTimeout = time.Second
	return client
}
