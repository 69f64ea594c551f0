// Package auth stores the proxy password outside of configuration files.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "crawlflow"
	// FallbackDir is the directory for file-based storage (when keyring fails)
	FallbackDir = ".crawlflow/credentials"
)

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = errors.New("credential not found")

// Store keeps proxy passwords in the OS keyring, or in 0600 files under Dir
// where no keyring is available (Codespaces, CI, containers).
type Store struct {
	Service string
	Dir     string
	// UseFiles forces file storage. Nil means probe the keyring once.
	UseFiles *bool
}

// NewStore returns a store using the default service and fallback directory.
func NewStore() *Store {
	dir := FallbackDir
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, FallbackDir)
	}
	return &Store{Service: KeyringService, Dir: dir}
}

func (s *Store) useFiles() bool {
	if s.UseFiles != nil {
		return *s.UseFiles
	}

	result := os.Getenv("CODESPACES") != "" || os.Getenv("CI") != ""
	if !result {
		testKey := "_test_keyring_access_"
		if err := keyring.Set(s.Service, testKey, "test"); err != nil {
			result = true
		} else {
			_ = keyring.Delete(s.Service, testKey)
		}
	}
	s.UseFiles = &result
	if result {
		log.Debug().Str("dir", s.Dir).Msg("Keyring unavailable, using file storage")
	}
	return result
}

func (s *Store) path(account string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return "", err
	}
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(account)
	return filepath.Join(s.Dir, name), nil
}

// SaveProxyPassword stores the password of the proxy account.
func (s *Store) SaveProxyPassword(account, password string) error {
	if account == "" {
		return fmt.Errorf("proxy account cannot be empty")
	}
	if s.useFiles() {
		p, err := s.path(account)
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(password), 0600); err != nil {
			return fmt.Errorf("failed to save credential file: %w", err)
		}
		return nil
	}
	if err := keyring.Set(s.Service, account, password); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// LoadProxyPassword returns the stored password of the proxy account.
func (s *Store) LoadProxyPassword(account string) (string, error) {
	if s.useFiles() {
		p, err := s.path(account)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("failed to read credential file: %w", err)
		}
		return string(data), nil
	}
	secret, err := keyring.Get(s.Service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load from keyring: %w", err)
	}
	return secret, nil
}

// DeleteProxyPassword removes the stored password of the proxy account.
func (s *Store) DeleteProxyPassword(account string) error {
	if s.useFiles() {
		p, err := s.path(account)
		if err != nil {
			return err
		}
		if err := os.Remove(p); errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return nil
	}
	err := keyring.Delete(s.Service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// ResolveProxyPassword returns configured when set, otherwise the stored
// password of account. A missing entry yields "" without error.
func (s *Store) ResolveProxyPassword(account, configured string) (string, error) {
	if configured != "" || account == "" {
		return configured, nil
	}
	secret, err := s.LoadProxyPassword(account)
	if errors.Is(err, ErrNotFound) {
		log.Debug().Str("account", account).Msg("No stored proxy password")
		return "", nil
	}
	return secret, err
}
