package wallet

import (
	"fmt"
	"runtime"

	"github.com/99designs/keyring"
)

const keychainService = "donation-forwarder"

// KeyRetriever looks up a stored private key by reference.
type KeyRetriever interface {
	Retrieve(ref string) (string, error)
}

// Keystore wraps OS keychain access.
type Keystore struct {
	ring keyring.Keyring
}

// NewKeystore wraps an already opened keyring.
func NewKeystore(ring keyring.Keyring) *Keystore {
	return &Keystore{ring: ring}
}

// OpenKeystore returns a keystore backed by the OS keychain.
func OpenKeystore() (*Keystore, error) {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening keychain: %w", err)
	}
	return &Keystore{ring: ring}, nil
}

// Store saves a private key under ref.
func (k *Keystore) Store(ref, hexKey string) error {
	if err := k.ring.Set(keyring.Item{Key: ref, Data: []byte(hexKey)}); err != nil {
		return fmt.Errorf("keychain store: %w", err)
	}
	return nil
}

// Retrieve fetches a private key by its reference.
func (k *Keystore) Retrieve(ref string) (string, error) {
	if k.ring == nil {
		return "", fmt.Errorf("keystore not available")
	}
	item, err := k.ring.Get(ref)
	if err != nil {
		return "", fmt.Errorf("keychain retrieve %q: %w", ref, err)
	}
	return string(item.Data), nil
}

// ResolveKey returns the signing credential. envKey (PRIVATE_KEY) wins; when
// it is empty and ref is set, the key is read from the keystore returned by
// open. With neither, the empty credential is returned as is.
func ResolveKey(envKey, ref string, open func() (KeyRetriever, error)) (string, error) {
	if envKey != "" || ref == "" {
		return envKey, nil
	}
	ks, err := open()
	if err != nil {
		return "", err
	}
	return ks.Retrieve(ref)
}
