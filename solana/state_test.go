package valtoken_protocol

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigState(t *testing.T) {
	want := &ConfigState{
		SchemaVersion: SchemaVersion,
		Authority:     solana.NewWallet().PublicKey(),
		Identity:      solana.NewWallet().PublicKey(),
		VoteAccount:   solana.NewWallet().PublicKey(),
		Commission:    9,
		Supply:        [RarityCount]uint32{100, 50, 20, 5, 1},
		Minted:        [RarityCount]uint32{4, 1, 0, 0, 0},
		Uploaded:      [RarityCount]uint32{100, 50, 20, 5, 1},
		MintPrice:     2_000_000_000,
		Name:          "Validator One",
	}
	got, err := ParseConfigState(encodeConfigState(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseConfigState_Rejects(t *testing.T) {
	data := encodeConfigState(t, &ConfigState{Name: "x"})

	_, err := ParseConfigState(data[:40])
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	wrongKind := append([]byte{}, data...)
	wrongKind[0] = Account_Uris
	_, err = ParseConfigState(wrongKind)
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestFetchUriAccounts(t *testing.T) {
	fake := newFakeRPC()
	client := newTestClient(t, fake, nil)

	common := solana.NewWallet().PublicKey()
	fake.setAccount(common, []byte{Account_Uris, byte(RarityCommon), 3, 0, 0, 0, 0xff})
	fake.setAccount(solana.NewWallet().PublicKey(), []byte{Account_Uris, 42, 0, 0, 0, 0})
	fake.setAccount(solana.NewWallet().PublicKey(), []byte{Account_Config, 1})

	headers, err := client.FetchUriAccounts(context.Background(), testProgramID)
	require.NoError(t, err)
	require.Len(t, headers, 1, "accounts with an unknown rarity are skipped")
	assert.Equal(t, UriStoreHeader{Address: common, Rarity: RarityCommon, Count: 3}, headers[0])
}

func TestFetchConfigState_NotFound(t *testing.T) {
	client := newTestClient(t, newFakeRPC(), nil)
	_, err := client.FetchConfigState(context.Background(), testProgramID)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
