package app

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"referral_system/internal/client"
)

// userFileName is the fixed durable-storage key holding the last-known
// user snapshot. It survives restarts, is overwritten on every
// successful register/login and removed on logout.
const userFileName = "user.json"

// DurableStore persists the user snapshot across restarts as a JSON file.
type DurableStore struct {
	path string
}

// NewDurableStore creates a store rooted at dir, creating dir if needed.
func NewDurableStore(dir string) (*DurableStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create storage dir")
	}
	return &DurableStore{path: filepath.Join(dir, userFileName)}, nil
}

// LoadUser returns the stored snapshot, or (nil, nil) when none exists.
// A snapshot that fails to parse is treated as absent.
func (s *DurableStore) LoadUser() (*client.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read user snapshot")
	}
	var u client.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, nil
	}
	return &u, nil
}

// SaveUser overwrites the stored snapshot.
func (s *DurableStore) SaveUser(u *client.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "encode user snapshot")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(err, "write user snapshot")
	}
	return nil
}

// DeleteUser removes the stored snapshot. Missing is not an error.
func (s *DurableStore) DeleteUser() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove user snapshot")
	}
	return nil
}

// EphemeralStore is in-memory key-value storage scoped to the current
// process, the sessionStorage analogue. It holds the admin auth flag.
type EphemeralStore struct {
	values map[string]string
}

// NewEphemeralStore creates an empty ephemeral store.
func NewEphemeralStore() *EphemeralStore {
	return &EphemeralStore{values: make(map[string]string)}
}

// Get returns the value for key and whether it was present.
func (s *EphemeralStore) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value under key.
func (s *EphemeralStore) Set(key, value string) {
	s.values[key] = value
}

// Delete removes key.
func (s *EphemeralStore) Delete(key string) {
	delete(s.values, key)
}
