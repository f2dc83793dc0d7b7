package valtoken_protocol

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// LoadKeypair reads a private key from a solana-keygen JSON file, or parses
// value directly when it is a base58 encoded key.
func LoadKeypair(value string) (solana.PrivateKey, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("keypair path is empty")
	}

	if _, err := os.Stat(value); err == nil {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(value)
		if err != nil {
			return nil, fmt.Errorf("failed to load keypair %q: %w", value, err)
		}
		return key, nil
	}

	key, err := solana.PrivateKeyFromBase58(value)
	if err != nil {
		return nil, fmt.Errorf("keypair %q is neither a readable file nor a base58 key", value)
	}
	return key, nil
}

// LoadOrCreateKeypair loads the keypair at path, generating and saving a new
// one if the file does not exist.
func LoadOrCreateKeypair(path string) (solana.PrivateKey, bool, error) {
	if _, err := os.Stat(path); err == nil {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load keypair %q: %w", path, err)
		}
		return key, false, nil
	} else if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to check for keypair file: %w", err)
	}

	key := solana.NewWallet().PrivateKey
	if err := SaveKeypair(key, path); err != nil {
		return nil, false, err
	}
	return key, true, nil
}

// SaveKeypair writes key in the solana-keygen JSON array format.
func SaveKeypair(key solana.PrivateKey, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create keypair directory: %w", err)
	}

	// A []byte would marshal as base64; keygen files hold a number array.
	raw := make([]int, len(key))
	for i, b := range key {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write keypair file: %w", err)
	}
	return nil
}
