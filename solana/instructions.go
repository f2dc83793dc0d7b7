package valtoken_protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction variant tags of the validator program.
const (
	Instruction_Init       uint8 = 0
	Instruction_UploadUris uint8 = 1
)

// SchemaVersion is written into every Init payload.
const SchemaVersion uint8 = 1

const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxUriLength    = 200
	MaxCommission   = 100
)

// InitArgs are the fields of the Init instruction, in wire order.
type InitArgs struct {
	SchemaVersion    uint8
	Name             string
	Commission       uint8
	Identity         solana.PublicKey
	VoteAccount      solana.PublicKey
	Supply           [RarityCount]uint32
	MintPrice        uint64
	CollectionName   string
	CollectionSymbol string
	CollectionUri    string
}

func (a *InitArgs) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(a.SchemaVersion); err != nil {
		return err
	}
	if err := enc.WriteString(a.Name); err != nil {
		return err
	}
	if err := enc.WriteUint8(a.Commission); err != nil {
		return err
	}
	if err := enc.WriteBytes(a.Identity[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(a.VoteAccount[:], false); err != nil {
		return err
	}
	for _, s := range a.Supply {
		if err := enc.WriteUint32(s, binary.LittleEndian); err != nil {
			return err
		}
	}
	if err := enc.WriteUint64(a.MintPrice, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteString(a.CollectionName); err != nil {
		return err
	}
	if err := enc.WriteString(a.CollectionSymbol); err != nil {
		return err
	}
	return enc.WriteString(a.CollectionUri)
}

func (a *InitArgs) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if a.SchemaVersion, err = dec.ReadUint8(); err != nil {
		return err
	}
	if a.Name, err = dec.ReadString(); err != nil {
		return err
	}
	if a.Commission, err = dec.ReadUint8(); err != nil {
		return err
	}
	if a.Identity, err = readPublicKey(dec); err != nil {
		return err
	}
	if a.VoteAccount, err = readPublicKey(dec); err != nil {
		return err
	}
	for i := range a.Supply {
		if a.Supply[i], err = dec.ReadUint32(binary.LittleEndian); err != nil {
			return err
		}
	}
	if a.MintPrice, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if a.CollectionName, err = dec.ReadString(); err != nil {
		return err
	}
	if a.CollectionSymbol, err = dec.ReadString(); err != nil {
		return err
	}
	a.CollectionUri, err = dec.ReadString()
	return err
}

func (a *InitArgs) validate() error {
	if a.Name == "" || len(a.Name) > MaxNameLength {
		return fmt.Errorf("%w: name must be 1..%d bytes", ErrInvalidParams, MaxNameLength)
	}
	if a.Commission > MaxCommission {
		return fmt.Errorf("%w: commission %d exceeds %d", ErrInvalidParams, a.Commission, MaxCommission)
	}
	if a.CollectionName == "" || len(a.CollectionName) > MaxNameLength {
		return fmt.Errorf("%w: collection name must be 1..%d bytes", ErrInvalidParams, MaxNameLength)
	}
	if len(a.CollectionSymbol) > MaxSymbolLength {
		return fmt.Errorf("%w: collection symbol exceeds %d bytes", ErrInvalidParams, MaxSymbolLength)
	}
	if a.CollectionUri == "" || len(a.CollectionUri) > MaxUriLength {
		return fmt.Errorf("%w: collection uri must be 1..%d bytes", ErrInvalidParams, MaxUriLength)
	}
	return nil
}

// UploadUrisArgs carries one batch of metadata URIs for a rarity,
// starting at Offset within that rarity's list.
type UploadUrisArgs struct {
	Rarity Rarity
	Offset uint32
	Uris   []string
}

func (a *UploadUrisArgs) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint8(uint8(a.Rarity)); err != nil {
		return err
	}
	if err := enc.WriteUint32(a.Offset, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteLength(len(a.Uris)); err != nil {
		return err
	}
	for _, uri := range a.Uris {
		if err := enc.WriteString(uri); err != nil {
			return err
		}
	}
	return nil
}

func (a *UploadUrisArgs) UnmarshalWithDecoder(dec *bin.Decoder) error {
	rarity, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	a.Rarity = Rarity(rarity)
	if a.Offset, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	n, err := dec.ReadLength()
	if err != nil {
		return err
	}
	a.Uris = make([]string, 0, n)
	for i := 0; i < n; i++ {
		uri, err := dec.ReadString()
		if err != nil {
			return err
		}
		a.Uris = append(a.Uris, uri)
	}
	return nil
}

func (a *UploadUrisArgs) validate() error {
	if !a.Rarity.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidRarity, a.Rarity)
	}
	if len(a.Uris) == 0 {
		return ErrEmptyBatch
	}
	for i, uri := range a.Uris {
		if uri == "" || len(uri) > MaxUriLength {
			return fmt.Errorf("%w: %s uri #%d must be 1..%d bytes", ErrInvalidParams, a.Rarity, int(a.Offset)+i, MaxUriLength)
		}
	}
	return nil
}

// encodeVariant writes the variant tag followed by the Borsh-encoded fields.
func encodeVariant(tag uint8, args bin.BinaryMarshaler) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(tag); err != nil {
		return nil, fmt.Errorf("failed to write instruction tag: %w", err)
	}
	if err := args.MarshalWithEncoder(enc); err != nil {
		return nil, fmt.Errorf("failed to encode instruction args: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeInit serializes an Init payload.
func EncodeInit(args *InitArgs) ([]byte, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	return encodeVariant(Instruction_Init, args)
}

// EncodeUploadUris serializes an UploadUris payload.
func EncodeUploadUris(args *UploadUrisArgs) ([]byte, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}
	return encodeVariant(Instruction_UploadUris, args)
}

// DecodeInstruction parses instruction data into *InitArgs or *UploadUrisArgs.
func DecodeInstruction(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidInstructionData)
	}
	dec := bin.NewBorshDecoder(data[1:])
	var (
		out interface{}
		err error
	)
	switch data[0] {
	case Instruction_Init:
		args := new(InitArgs)
		err = args.UnmarshalWithDecoder(dec)
		out = args
	case Instruction_UploadUris:
		args := new(UploadUrisArgs)
		err = args.UnmarshalWithDecoder(dec)
		out = args
	default:
		return nil, fmt.Errorf("%w: unknown variant %d", ErrInvalidInstructionData, data[0])
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}
	if dec.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidInstructionData, dec.Remaining())
	}
	return out, nil
}

// NewInitInstruction builds the Init instruction that creates the validator's
// config, collection and governance accounts.
func NewInitInstruction(args *InitArgs, payer solana.PublicKey, accs *RegistrationAccounts) (solana.Instruction, error) {
	data, err := EncodeInit(args)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{}
	accounts.Append(solana.NewAccountMeta(payer, true, true))
	accounts.Append(solana.NewAccountMeta(accs.Config.Address, true, false))
	accounts.Append(solana.NewAccountMeta(accs.MintAuthority.Address, false, false))
	accounts.Append(solana.NewAccountMeta(accs.CollectionMint.Address, true, false))
	accounts.Append(solana.NewAccountMeta(accs.CollectionMetadata.Address, true, false))
	accounts.Append(solana.NewAccountMeta(accs.CollectionMasterEdition.Address, true, false))
	accounts.Append(solana.NewAccountMeta(accs.CollectionTokenAccount.Address, true, false))
	accounts.Append(solana.NewAccountMeta(accs.Treasury.Address, true, false))
	accounts.Append(solana.NewAccountMeta(accs.WithdrawAuthority.Address, false, false))
	accounts.Append(solana.NewAccountMeta(accs.Governance.Address, true, false))
	accounts.Append(solana.NewAccountMeta(accs.ProposalCounter.Address, true, false))
	accounts.Append(solana.NewAccountMeta(args.VoteAccount, false, false))
	accounts.Append(solana.NewAccountMeta(args.Identity, false, false))
	accounts.Append(solana.NewAccountMeta(TokenMetadataProgramID, false, false))
	accounts.Append(solana.NewAccountMeta(solana.TokenProgramID, false, false))
	accounts.Append(solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false))
	accounts.Append(solana.NewAccountMeta(solana.SystemProgramID, false, false))
	accounts.Append(solana.NewAccountMeta(solana.SysVarRentPubkey, false, false))

	return solana.NewInstruction(accs.ProgramID, accounts, data), nil
}

// NewUploadUrisInstruction builds one UploadUris instruction.
func NewUploadUrisInstruction(args *UploadUrisArgs, payer solana.PublicKey, accs *RegistrationAccounts) (solana.Instruction, error) {
	data, err := EncodeUploadUris(args)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{}
	accounts.Append(solana.NewAccountMeta(payer, true, true))
	accounts.Append(solana.NewAccountMeta(accs.Config.Address, true, false))
	accounts.Append(solana.NewAccountMeta(accs.Uris[args.Rarity].Address, true, false))
	accounts.Append(solana.NewAccountMeta(solana.SystemProgramID, false, false))

	return solana.NewInstruction(accs.ProgramID, accounts, data), nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw), nil
}
