package storage

import (
	"encoding/json"

	"github.com/rcliao/mnemo/internal/model"
)

// StateStore persists the per-project StateRecord as a small JSON file kept
// outside version control (it is machine-local).
type StateStore struct {
	Path string
}

// Load reads the state record. A missing or unreadable record is treated as
// first run and returns a zero record, never an error.
func (s *StateStore) Load() model.StateRecord {
	data, ok, err := readFile(s.Path)
	if err != nil || !ok {
		return model.StateRecord{}
	}
	var rec model.StateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.StateRecord{}
	}
	if rec.SchemaVersion > model.StateSchemaVersion {
		// Written by a newer version; safer to start fresh than misread it.
		return model.StateRecord{}
	}
	return rec
}

// Save persists the record atomically.
func (s *StateStore) Save(rec model.StateRecord) error {
	rec.SchemaVersion = model.StateSchemaVersion
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.Path, append(data, '\n'))
}
