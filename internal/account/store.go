// Package account persists the device identity: the backend-assigned
// account id and the registered email. Both are set or refreshed from the
// backend response on every upload and survive across runs.
package account

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/petercsiba/dumpsheet/internal/recorder"
)

const identityFileName = "identity.json"

// Store reads and writes the identity file. It implements
// recorder.IdentityStore.
type Store struct {
	path string
}

func NewStore(stateDir string) *Store {
	return &Store{path: filepath.Join(stateDir, identityFileName)}
}

// Load returns the stored identity, or a zero identity when none has been
// saved yet.
func (s *Store) Load() (recorder.Identity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return recorder.Identity{}, nil
		}
		return recorder.Identity{}, fmt.Errorf("reading identity: %w", err)
	}

	var ident recorder.Identity
	if err := json.Unmarshal(data, &ident); err != nil {
		return recorder.Identity{}, fmt.Errorf("parsing identity: %w", err)
	}
	return ident, nil
}

func (s *Store) Save(ident recorder.Identity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(ident, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling identity: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}
