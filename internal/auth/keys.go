// Package auth protects the persisted session at rest and inspects the
// server-issued bearer token.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// PASETO v4 requires a 256-bit (32-byte) symmetric key.
	keyLength    = 32
	keyHexLength = 64

	keyFile  = "session.key"
	saltFile = "session.salt"

	argon2Memory      = 64 * 1024
	argon2Iterations  = 3
	argon2Parallelism = 4
	argon2SaltLength  = 16
)

// ResolveKey returns the sealing key for dataPath. With a passphrase the key
// is derived with Argon2id over a per-installation salt; otherwise a random
// key is loaded from (or written to) <dataPath>/session.key.
func ResolveKey(dataPath, passphrase string) ([]byte, error) {
	if passphrase != "" {
		salt, err := loadOrGenerateHex(filepath.Join(dataPath, saltFile), argon2SaltLength, dataPath)
		if err != nil {
			return nil, fmt.Errorf("session salt: %w", err)
		}
		return DeriveKey(passphrase, salt), nil
	}
	return LoadOrGenerateKey(dataPath)
}

// DeriveKey stretches passphrase into a 32-byte key with Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argon2Iterations, argon2Memory, argon2Parallelism, keyLength)
}

// LoadOrGenerateKey loads the hex-encoded key in <dataPath>/session.key,
// generating and saving a new one (mode 0600) if the file does not exist.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	return loadOrGenerateHex(filepath.Join(dataPath, keyFile), keyLength, dataPath)
}

func loadOrGenerateHex(path string, size int, dir string) ([]byte, error) {
	//#nosec G304 -- key path is derived from the configured data path
	if raw, err := os.ReadFile(path); err == nil {
		keyHex := strings.TrimSpace(string(raw))
		if len(keyHex) != size*2 {
			return nil, fmt.Errorf("invalid key length in %s: expected %d hex chars, got %d", path, size*2, len(keyHex))
		}
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid key format in %s: not valid hex: %w", path, err)
		}
		return key, nil
	}

	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save key: %w", err)
	}

	return key, nil
}
