package valtoken_protocol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadKeypair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "payer.json")
	key := solana.NewWallet().PrivateKey

	require.NoError(t, SaveKeypair(key, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('['), data[0], "keygen files are JSON number arrays")

	loaded, err := LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, key, loaded)
}

func TestLoadKeypair_Base58(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	loaded, err := LoadKeypair(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, loaded)

	_, err = LoadKeypair("")
	assert.Error(t, err)
	_, err = LoadKeypair(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadOrCreateKeypair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vote.json")

	first, created, err := LoadOrCreateKeypair(path)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := LoadOrCreateKeypair(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
}
