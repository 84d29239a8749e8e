// Package credential keeps the account password in the system keyring so it
// does not have to live in the config file or the environment.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "turbosmtp"

// ErrNotFound is returned when no password is stored for the account.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes account passwords keyed by username.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the first available system keyring.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/turbosmtp/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("turbosmtp-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Get returns the password stored for username.
func (s *Store) Get(username string) (string, error) {
	item, err := s.ring.Get(username)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", username, err)
	}
	return string(item.Data), nil
}

// Set stores the password for username, replacing any previous value.
func (s *Store) Set(username, password string) error {
	err := s.ring.Set(keyring.Item{
		Key:   username,
		Data:  []byte(password),
		Label: "turboSMTP " + username,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", username, err)
	}
	return nil
}

// Delete removes the password stored for username.
func (s *Store) Delete(username string) error {
	err := s.ring.Remove(username)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", username, err)
	}
	return nil
}
