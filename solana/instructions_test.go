package valtoken_protocol

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUploadUris_Layout(t *testing.T) {
	data, err := EncodeUploadUris(&UploadUrisArgs{
		Rarity: RarityEpic,
		Offset: 258,
		Uris:   []string{"ab", "c"},
	})
	require.NoError(t, err)

	want := []byte{
		Instruction_UploadUris,
		3,          // rarity
		2, 1, 0, 0, // offset 258
		2, 0, 0, 0, // vec length
		2, 0, 0, 0, 'a', 'b',
		1, 0, 0, 0, 'c',
	}
	assert.Equal(t, want, data)
}

func TestEncodeInit_Layout(t *testing.T) {
	identity := solana.NewWallet().PublicKey()
	vote := solana.NewWallet().PublicKey()
	args := &InitArgs{
		SchemaVersion:    SchemaVersion,
		Name:             "val",
		Commission:       5,
		Identity:         identity,
		VoteAccount:      vote,
		Supply:           [RarityCount]uint32{10, 5, 3, 2, 1},
		MintPrice:        1_000_000,
		CollectionName:   "C",
		CollectionSymbol: "S",
		CollectionUri:    "u",
	}
	data, err := EncodeInit(args)
	require.NoError(t, err)

	var want bytes.Buffer
	want.WriteByte(Instruction_Init)
	want.WriteByte(SchemaVersion)
	want.Write([]byte{3, 0, 0, 0, 'v', 'a', 'l'})
	want.WriteByte(5)
	want.Write(identity[:])
	want.Write(vote[:])
	for _, s := range args.Supply {
		_ = binary.Write(&want, binary.LittleEndian, s)
	}
	_ = binary.Write(&want, binary.LittleEndian, uint64(1_000_000))
	want.Write([]byte{1, 0, 0, 0, 'C'})
	want.Write([]byte{1, 0, 0, 0, 'S'})
	want.Write([]byte{1, 0, 0, 0, 'u'})
	assert.Equal(t, want.Bytes(), data)

	decoded, err := DecodeInstruction(data)
	require.NoError(t, err)
	assert.Equal(t, args, decoded)
}

func TestEncodeUploadUris_Validation(t *testing.T) {
	tests := []struct {
		name string
		args *UploadUrisArgs
		want error
	}{
		{"empty batch", &UploadUrisArgs{Rarity: RarityCommon}, ErrEmptyBatch},
		{"bad rarity", &UploadUrisArgs{Rarity: 9, Uris: []string{"a"}}, ErrInvalidRarity},
		{"empty uri", &UploadUrisArgs{Rarity: RarityCommon, Uris: []string{""}}, ErrInvalidParams},
		{"long uri", &UploadUrisArgs{Rarity: RarityCommon, Uris: []string{strings.Repeat("x", MaxUriLength+1)}}, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeUploadUris(tt.args)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodeInit_Validation(t *testing.T) {
	valid := func() *InitArgs {
		return &InitArgs{
			SchemaVersion:  SchemaVersion,
			Name:           "val",
			Commission:     MaxCommission,
			CollectionName: "C",
			CollectionUri:  "u",
		}
	}
	_, err := EncodeInit(valid())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(a *InitArgs)
	}{
		{"empty name", func(a *InitArgs) { a.Name = "" }},
		{"long name", func(a *InitArgs) { a.Name = strings.Repeat("n", MaxNameLength+1) }},
		{"commission over 100", func(a *InitArgs) { a.Commission = MaxCommission + 1 }},
		{"empty collection name", func(a *InitArgs) { a.CollectionName = "" }},
		{"long symbol", func(a *InitArgs) { a.CollectionSymbol = strings.Repeat("s", MaxSymbolLength+1) }},
		{"empty collection uri", func(a *InitArgs) { a.CollectionUri = "" }},
		{"long collection uri", func(a *InitArgs) { a.CollectionUri = strings.Repeat("u", MaxUriLength+1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := valid()
			tt.mutate(args)
			_, err := EncodeInit(args)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestDecodeInstruction_Rejects(t *testing.T) {
	valid, err := EncodeUploadUris(&UploadUrisArgs{Rarity: RarityRare, Uris: []string{"x"}})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown variant", []byte{7, 0}},
		{"truncated", valid[:len(valid)-1]},
		{"trailing bytes", append(append([]byte{}, valid...), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInstruction(tt.data)
			assert.ErrorIs(t, err, ErrInvalidInstructionData)
		})
	}
}

func TestNewInitInstruction_Accounts(t *testing.T) {
	accs, err := NewDeriver(testProgramID).DeriveAll()
	require.NoError(t, err)
	payer := solana.NewWallet().PublicKey()
	args := testParams().InitArgs(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())

	ix, err := NewInitInstruction(args, payer, accs)
	require.NoError(t, err)
	assert.Equal(t, testProgramID, ix.ProgramID())

	metas := ix.Accounts()
	require.Len(t, metas, 18)
	assert.Equal(t, payer, metas[0].PublicKey)
	assert.True(t, metas[0].IsSigner)
	assert.True(t, metas[0].IsWritable)
	assert.Equal(t, accs.Config.Address, metas[1].PublicKey)
	assert.True(t, metas[1].IsWritable)
	assert.Equal(t, args.VoteAccount, metas[11].PublicKey)
	assert.Equal(t, args.Identity, metas[12].PublicKey)
	assert.Equal(t, TokenMetadataProgramID, metas[13].PublicKey)
	assert.Equal(t, solana.SysVarRentPubkey, metas[17].PublicKey)

	for _, m := range metas[1:] {
		assert.False(t, m.IsSigner, "only the payer signs init")
	}
}

func TestNewUploadUrisInstruction_Accounts(t *testing.T) {
	accs, err := NewDeriver(testProgramID).DeriveAll()
	require.NoError(t, err)
	payer := solana.NewWallet().PublicKey()

	ix, err := NewUploadUrisInstruction(&UploadUrisArgs{Rarity: RarityLegendary, Uris: []string{"x"}}, payer, accs)
	require.NoError(t, err)

	metas := ix.Accounts()
	require.Len(t, metas, 4)
	assert.Equal(t, accs.Uris[RarityLegendary].Address, metas[2].PublicKey)
	assert.True(t, metas[2].IsWritable)
	assert.Equal(t, solana.SystemProgramID, metas[3].PublicKey)
}
