// Package wallet manages the agent EOA keystore used to sign Gnosis
// chain transactions.
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Manager manages the encrypted keystore holding the agent EOA.
type Manager struct {
	keystore   *keystore.KeyStore
	keyPath    string
	address    common.Address
	privateKey *ecdsa.PrivateKey
	loaded     bool
}

// Load loads an existing wallet from the keystore directory.
// Returns (nil, nil) if no wallet file is found; callers treat that
// as read-only mode where claim and withdraw are unavailable.
func Load(keystoreDir string) (*Manager, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}

	ks := keystore.NewKeyStore(keystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	accounts := ks.Accounts()
	if len(accounts) == 0 {
		return nil, nil
	}

	return &Manager{
		keystore: ks,
		keyPath:  keystoreDir,
		address:  accounts[0].Address,
		loaded:   true,
	}, nil
}

// Create creates a new wallet in the keystore directory. Returns an
// error if a wallet already exists.
func Create(keystoreDir string, password string) (*Manager, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}

	ks := keystore.NewKeyStore(keystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	if len(ks.Accounts()) > 0 {
		return nil, fmt.Errorf("wallet already exists in %s", keystoreDir)
	}

	account, err := ks.NewAccount(password)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	return &Manager{
		keystore: ks,
		keyPath:  keystoreDir,
		address:  account.Address,
		loaded:   true,
	}, nil
}

// Import imports a hex private key into a new wallet in the keystore
// directory. Returns an error if a wallet already exists.
func Import(keystoreDir string, privKeyHex string, password string) (*Manager, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}

	ks := keystore.NewKeyStore(keystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	if len(ks.Accounts()) > 0 {
		return nil, fmt.Errorf("wallet already exists in %s", keystoreDir)
	}

	privateKey, err := crypto.HexToECDSA(privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}

	account, err := ks.ImportECDSA(privateKey, password)
	if err != nil {
		return nil, fmt.Errorf("failed to import key: %w", err)
	}

	return &Manager{
		keystore: ks,
		keyPath:  keystoreDir,
		address:  account.Address,
		loaded:   true,
	}, nil
}

// IsLoaded returns true if the manager has a loaded wallet.
func (m *Manager) IsLoaded() bool {
	return m != nil && m.loaded
}

// Address returns the agent EOA address
func (m *Manager) Address() common.Address {
	return m.address
}

// KeystoreDir returns the path to the keystore directory
func (m *Manager) KeystoreDir() string {
	return m.keyPath
}

// PrivateKey decrypts and returns the signing key, caching it for
// subsequent calls.
func (m *Manager) PrivateKey(password string) (*ecdsa.PrivateKey, error) {
	if m.privateKey != nil {
		return m.privateKey, nil
	}

	accounts := m.keystore.Accounts()
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts found")
	}

	keyJSON, err := os.ReadFile(accounts[0].URL.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}

	m.privateKey = key.PrivateKey
	return key.PrivateKey, nil
}

// ClearCachedKey zeros and removes the cached private key from memory.
// The key will be re-derived from the keystore on next use.
func (m *Manager) ClearCachedKey() {
	if m.privateKey != nil {
		m.privateKey.D.SetUint64(0)
		m.privateKey = nil
	}
}
