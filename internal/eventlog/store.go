package eventlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cjeanneret/lvs/internal/debug"
)

// TimeFormat is the layout of Record.Timestamp.
const TimeFormat = "2006-01-02 15:04:05"

// ErrMalformed is returned when the log file is not a JSON array.
var ErrMalformed = errors.New("event log is not a JSON array")

// Record is one entry of the event log.
// Image is nil (JSON null) when the event has no picture.
type Record struct {
	ID          string  `json:"id,omitempty"`
	Timestamp   string  `json:"timestamp"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
}

// ImagePath returns the image path or "" when there is none.
func (r Record) ImagePath() string {
	if r.Image == nil {
		return ""
	}
	return *r.Image
}

// Store keeps the event log as a single JSON array on disk.
// It is not safe for concurrent writers; callers serialize Append.
type Store struct {
	path string
}

// NewStore returns a store backed by path (e.g. "logs/event_log.json").
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns every record. A missing or empty file is an empty log.
// Entries that are not records (written by other tools) are skipped; they
// stay in the file.
func (s *Store) Load() ([]Record, error) {
	raw, err := s.loadRaw()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(raw))
	for i, msg := range raw {
		var rec Record
		if err := json.Unmarshal(msg, &rec); err != nil {
			debug.Verbose("Event log entry %d skipped: %v", i, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Latest returns the last n records in file order, or all of them when n <= 0.
func (s *Store) Latest(n int) ([]Record, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

// Save overwrites the log with records.
func (s *Store) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode event log: %w", err)
	}
	return s.write(data)
}

// Append adds rec at the end of the log. Entries already on disk are kept
// as they are, including ones with fields Record does not know about.
func (s *Store) Append(rec Record) error {
	raw, err := s.loadRaw()
	if err != nil {
		return err
	}
	msg, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	raw = append(raw, msg)

	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("encode event log: %w", err)
	}
	if err := s.write(data); err != nil {
		return err
	}
	debug.Verbose("Event log %s now holds %d entries", s.path, len(raw))
	return nil
}

func (s *Store) loadRaw() ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read event log: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []json.RawMessage{}, nil
	}
	if data[0] != '[' {
		return nil, fmt.Errorf("%s: %w", s.path, ErrMalformed)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.path, ErrMalformed, err)
	}
	if raw == nil {
		raw = []json.RawMessage{}
	}
	return raw, nil
}

// write replaces the log through a temporary sibling and a rename.
func (s *Store) write(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp event log: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write event log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod event log: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace event log: %w", err)
	}
	return nil
}
