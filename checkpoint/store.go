package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rmkendall/croft/errors"
	"github.com/rmkendall/croft/session"
)

// FileStore persists the latest checkpoint record as a JSON file under
// .croft/checkpoints. Only the most recent record is kept; restore always
// means "pick up where the last checkpoint left off".
type FileStore struct {
	path string
}

// NewFileStore creates a store for the named session.
func NewFileStore(sessionName string) (*FileStore, error) {
	dir := filepath.Join(".croft", "checkpoints")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not create checkpoint directory")
	}
	return &FileStore{path: filepath.Join(dir, sessionName+".json")}, nil
}

// Save writes the record, replacing any previous one.
func (s *FileStore) Save(cycle int, summary string) error {
	rec := session.CheckpointRecord{Cycle: cycle, Summary: summary}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize checkpoint record")
	}
	return os.WriteFile(s.path, data, 0644)
}

// Load returns the stored record, or (nil, nil) when none exists.
func (s *FileStore) Load() (*session.CheckpointRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read checkpoint file %s", s.path)
	}

	var rec session.CheckpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "could not parse checkpoint file %s", s.path)
	}
	return &rec, nil
}
