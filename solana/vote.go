package valtoken_protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// VoteStateSize is the space allocated for a vote account.
const VoteStateSize = 3762

const voteInstructionInitializeAccount uint32 = 0

// VoteInit holds the parameters of the vote program's InitializeAccount.
type VoteInit struct {
	NodePubkey           solana.PublicKey
	AuthorizedVoter      solana.PublicKey
	AuthorizedWithdrawer solana.PublicKey
	Commission           uint8
}

func (v *VoteInit) encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint32(voteInstructionInitializeAccount, binary.LittleEndian); err != nil {
		return nil, err
	}
	for _, key := range []solana.PublicKey{v.NodePubkey, v.AuthorizedVoter, v.AuthorizedWithdrawer} {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint8(v.Commission); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewInitializeVoteAccountInstruction builds the vote program instruction
// that initializes an allocated vote account. The node identity must sign.
func NewInitializeVoteAccountInstruction(voteAccount solana.PublicKey, init VoteInit) (solana.Instruction, error) {
	if init.Commission > MaxCommission {
		return nil, fmt.Errorf("%w: commission %d exceeds %d", ErrInvalidParams, init.Commission, MaxCommission)
	}
	data, err := init.encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode vote init: %w", err)
	}

	accounts := solana.AccountMetaSlice{}
	accounts.Append(solana.NewAccountMeta(voteAccount, true, false))
	accounts.Append(solana.NewAccountMeta(solana.SysVarRentPubkey, false, false))
	accounts.Append(solana.NewAccountMeta(solana.SysVarClockPubkey, false, false))
	accounts.Append(solana.NewAccountMeta(init.NodePubkey, false, true))

	return solana.NewInstruction(solana.VoteProgramID, accounts, data), nil
}

// NewCreateVoteAccountInstructions returns the system CreateAccount and vote
// InitializeAccount pair. The vote account's authorized withdrawer is the
// program's withdraw authority PDA, so withdrawals go through the program.
func NewCreateVoteAccountInstructions(
	payer solana.PublicKey,
	voteAccount solana.PublicKey,
	identity solana.PublicKey,
	accs *RegistrationAccounts,
	commission uint8,
	rentLamports uint64,
) ([]solana.Instruction, error) {
	create, err := system.NewCreateAccountInstruction(
		rentLamports,
		VoteStateSize,
		solana.VoteProgramID,
		payer,
		voteAccount,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build create vote account instruction: %w", err)
	}

	initialize, err := NewInitializeVoteAccountInstruction(voteAccount, VoteInit{
		NodePubkey:           identity,
		AuthorizedVoter:      identity,
		AuthorizedWithdrawer: accs.WithdrawAuthority.Address,
		Commission:           commission,
	})
	if err != nil {
		return nil, err
	}

	return []solana.Instruction{create, initialize}, nil
}
