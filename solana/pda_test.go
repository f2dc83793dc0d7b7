package valtoken_protocol

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgramID = solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

func TestDeriver_MatchesFindProgramAddress(t *testing.T) {
	d := NewDeriver(testProgramID)

	tests := []struct {
		name   string
		derive func() (solana.PublicKey, uint8, error)
		seeds  [][]byte
	}{
		{"config", d.GetConfigPDA, [][]byte{[]byte("config")}},
		{"mint_authority", d.GetMintAuthorityPDA, [][]byte{[]byte("mint_authority")}},
		{"collection_mint", d.GetCollectionMintPDA, [][]byte{[]byte("collection_mint")}},
		{"treasury", d.GetTreasuryPDA, [][]byte{[]byte("treasury")}},
		{"vote_authority", d.GetVoteAuthorityPDA, [][]byte{[]byte("vote_authority")}},
		{"withdraw_authority", d.GetWithdrawAuthorityPDA, [][]byte{[]byte("withdraw_authority")}},
		{"governance", d.GetGovernancePDA, [][]byte{[]byte("governance")}},
		{"proposal_counter", d.GetProposalCounterPDA, [][]byte{[]byte("proposal_counter")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, bump, err := tt.derive()
			require.NoError(t, err)
			want, wantBump, err := solana.FindProgramAddress(tt.seeds, testProgramID)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, wantBump, bump)
		})
	}
}

func TestDeriver_UrisPDAPerRarity(t *testing.T) {
	d := NewDeriver(testProgramID)

	rare, _, err := d.GetUrisPDA(RarityRare)
	require.NoError(t, err)
	want, _, err := solana.FindProgramAddress([][]byte{[]byte("uris"), {2}}, testProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, rare)

	_, _, err = d.GetUrisPDA(Rarity(5))
	assert.ErrorIs(t, err, ErrInvalidRarity)
}

func TestMetaplexPDAs(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	metadata, _, err := GetMetadataPDA(mint)
	require.NoError(t, err)
	want, _, err := solana.FindProgramAddress([][]byte{
		[]byte("metadata"), TokenMetadataProgramID[:], mint[:],
	}, TokenMetadataProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, metadata)

	edition, _, err := GetMasterEditionPDA(mint)
	require.NoError(t, err)
	want, _, err = solana.FindProgramAddress([][]byte{
		[]byte("metadata"), TokenMetadataProgramID[:], mint[:], []byte("edition"),
	}, TokenMetadataProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, edition)
}

func TestDeriveAll(t *testing.T) {
	accs, err := NewDeriver(testProgramID).DeriveAll()
	require.NoError(t, err)

	list := accs.List()
	require.Len(t, list, 16)

	seen := make(map[solana.PublicKey]string)
	for _, acc := range list {
		assert.False(t, acc.Address.IsZero(), acc.Name)
		assert.False(t, solana.IsOnCurve(acc.Address[:]), "%s must be off the ed25519 curve", acc.Name)
		if prev, dup := seen[acc.Address]; dup {
			t.Fatalf("%s and %s derive the same address", prev, acc.Name)
		}
		seen[acc.Address] = acc.Name
	}

	ata, _, err := solana.FindAssociatedTokenAddress(accs.MintAuthority.Address, accs.CollectionMint.Address)
	require.NoError(t, err)
	assert.Equal(t, ata, accs.CollectionTokenAccount.Address)

	assert.Equal(t, "config", list[0].Name)
	assert.Equal(t, "uris_legendary", list[len(list)-1].Name)

	again, err := NewDeriver(testProgramID).DeriveAll()
	require.NoError(t, err)
	assert.Equal(t, accs, again)
}
