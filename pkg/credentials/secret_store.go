package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound is returned by SecretStore.GetSecret when no secret is
// stored under the requested key.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore abstracts the OS-backed secret service that holds the master
// encryption key. The key deliberately lives outside the credential files so
// a leaked storage directory alone is not enough to decrypt anything.
type SecretStore interface {
	GetSecret(key string) (string, error)
	SetSecret(key, value string) error
}

// Keyring is a SecretStore backed by the operating system keychain.
type Keyring struct {
	service string
}

// NewKeyring creates a keyring-backed secret store scoped to the given
// service name.
func NewKeyring(service string) *Keyring {
	return &Keyring{service: service}
}

// GetSecret implements SecretStore.
func (k *Keyring) GetSecret(key string) (string, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("keyring read failed: %w", err)
	}
	return value, nil
}

// SetSecret implements SecretStore.
func (k *Keyring) SetSecret(key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("keyring write failed: %w", err)
	}
	return nil
}

// MemorySecretStore is an in-process SecretStore for tests and ephemeral
// runs where no OS keychain is available.
type MemorySecretStore struct {
	secrets map[string]string
}

// NewMemorySecretStore creates an empty in-memory secret store.
func NewMemorySecretStore() *MemorySecretStore {
	return &MemorySecretStore{secrets: make(map[string]string)}
}

// GetSecret implements SecretStore.
func (m *MemorySecretStore) GetSecret(key string) (string, error) {
	value, ok := m.secrets[key]
	if !ok {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// SetSecret implements SecretStore.
func (m *MemorySecretStore) SetSecret(key, value string) error {
	m.secrets[key] = value
	return nil
}
