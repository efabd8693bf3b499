// Package credentials manages encrypted per-platform login secrets.
//
// Each platform's credential pair is serialized, fernet-encrypted and
// written to its own file, so a single leaked file exposes at most one
// platform. The symmetric key is fetched once per process from a
// SecretStore and cached in memory; it is never written next to the
// ciphertext.
package credentials

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fernet/fernet-go"

	"github.com/postwright/postwright/pkg/logging"
	"github.com/postwright/postwright/pkg/security"
)

const (
	// masterKeyName is the SecretStore key under which the encryption
	// key is stored.
	masterKeyName = "master_key"

	credentialExt = ".enc"
)

// Pair is a decrypted username/password credential.
type Pair struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store persists encrypted credential pairs, one file per platform.
type Store struct {
	dir     string
	guard   *security.Guard
	secrets SecretStore
	log     *slog.Logger

	mu  sync.Mutex
	key *fernet.Key
}

// NewStore creates a credential store rooted at dir. The directory is
// created if it does not exist. The secret store is only contacted lazily,
// on the first operation that needs the encryption key.
func NewStore(dir string, secrets SecretStore) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}

	// Platform names are user input; the derived file paths must not
	// leave the credential directory.
	guard, err := security.NewGuard(dir)
	if err != nil {
		return nil, err
	}

	return &Store{
		dir:     dir,
		guard:   guard,
		secrets: secrets,
		log:     logging.For("credentials"),
	}, nil
}

// Save encrypts and persists credentials for a platform, replacing any
// previous record. The write is atomic: the ciphertext lands in a temp file
// which is then renamed over the target.
func (s *Store) Save(platform, username, password string) error {
	key, err := s.encryptionKey()
	if err != nil {
		return fmt.Errorf("failed to load encryption key: %w", err)
	}

	plaintext, err := json.Marshal(Pair{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	token, err := fernet.EncryptAndSign(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	target, err := s.pathFor(platform)
	if err != nil {
		return err
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, token, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize credential file: %w", err)
	}

	s.log.Info("saved credentials", "platform", platform)
	return nil
}

// Get returns the decrypted credentials for a platform. It fails soft: any
// read, decryption or parse problem is logged and reported as absence, and
// the plaintext never appears in the diagnostic output.
func (s *Store) Get(platform string) (*Pair, bool) {
	path, err := s.pathFor(platform)
	if err != nil {
		s.log.Error("invalid platform name", "platform", platform, "error", err)
		return nil, false
	}

	token, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error("credential file unreadable", "platform", platform, "error", err)
		}
		return nil, false
	}

	key, err := s.encryptionKey()
	if err != nil {
		s.log.Error("encryption key unavailable", "platform", platform, "error", err)
		return nil, false
	}

	plaintext := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{key})
	if plaintext == nil {
		s.log.Error("credential decryption failed", "platform", platform)
		return nil, false
	}

	var pair Pair
	if err := json.Unmarshal(plaintext, &pair); err != nil {
		s.log.Error("credential record malformed", "platform", platform)
		return nil, false
	}

	return &pair, true
}

// Delete removes the credential record for a platform. It reports whether a
// record existed.
func (s *Store) Delete(platform string) bool {
	path, err := s.pathFor(platform)
	if err != nil {
		s.log.Error("invalid platform name", "platform", platform, "error", err)
		return false
	}

	err = os.Remove(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error("failed to delete credentials", "platform", platform, "error", err)
		}
		return false
	}
	s.log.Info("deleted credentials", "platform", platform)
	return true
}

// List returns the platforms that have a credential record, sorted.
func (s *Store) List() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Error("failed to scan credential directory", "error", err)
		return nil
	}

	var platforms []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, credentialExt) {
			continue
		}
		platforms = append(platforms, strings.TrimSuffix(name, credentialExt))
	}
	sort.Strings(platforms)
	return platforms
}

// encryptionKey returns the process-cached fernet key, fetching or creating
// it in the secret store on first use. Key creation is idempotent across
// restarts: a key that already exists is always reused.
func (s *Store) encryptionKey() (*fernet.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	encoded, err := s.secrets.GetSecret(masterKeyName)
	if err != nil {
		if err != ErrSecretNotFound {
			return nil, err
		}

		var generated fernet.Key
		if genErr := generated.Generate(); genErr != nil {
			return nil, fmt.Errorf("failed to generate key: %w", genErr)
		}
		encoded = generated.Encode()
		if setErr := s.secrets.SetSecret(masterKeyName, encoded); setErr != nil {
			return nil, setErr
		}
		s.log.Info("created new master encryption key")
	}

	keys, err := fernet.DecodeKeys(encoded)
	if err != nil {
		return nil, fmt.Errorf("stored key is malformed: %w", err)
	}

	s.key = keys[0]
	return s.key, nil
}

func (s *Store) pathFor(platform string) (string, error) {
	return s.guard.Resolve(strings.ToLower(platform) + credentialExt)
}
