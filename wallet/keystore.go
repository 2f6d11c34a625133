package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore is a simple local-first key store for CLI use.
//
// Ed25519 seeds only, stored hex-encoded at <dir>/<name>.key with owner-only
// permissions. Not part of the stable library API.
type KeyStore struct {
	Directory string
}

func DefaultKeyDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".datatoken", "keys"), nil
}

func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultKeyDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

// CheckKeyName restricts names to a filesystem-safe alphabet.
func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("wallet: key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("wallet: invalid character %q in key name", char)
	}
	return nil
}

// ParseSeedHex decodes a 32-byte hex seed, tolerating a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet: expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) keyFilePath(name string) string {
	return filepath.Join(ks.Directory, name+".key")
}

// Save stores a seed under name. Existing keys are not overwritten unless
// overwrite is set.
func (ks *KeyStore) Save(name string, seed []byte, overwrite bool) (address string, filePath string, err error) {
	if err := CheckKeyName(name); err != nil {
		return "", "", err
	}
	if len(seed) != ed25519.SeedSize {
		return "", "", fmt.Errorf("wallet: expected seed length of %d bytes", ed25519.SeedSize)
	}
	filePath = ks.keyFilePath(name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return "", "", err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return "", "", err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return "", "", err
	}
	if err := file.Close(); err != nil {
		return "", "", err
	}
	w, err := NewEd25519FromSeed(seed)
	if err != nil {
		return "", "", err
	}
	return w.Address(), filePath, nil
}

// Load opens the wallet stored under name.
func (ks *KeyStore) Load(name string) (*Wallet, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ks.keyFilePath(name))
	if err != nil {
		return nil, err
	}
	seed, err := ParseSeedHex(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, err
	}
	return NewEd25519FromSeed(seed)
}

// List returns the stored key names, sorted.
func (ks *KeyStore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".key") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".key"))
		}
	}
	sort.Strings(names)
	return names, nil
}
