package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/lvs/internal/debug"
	"github.com/cjeanneret/lvs/internal/eventlog"
)

// Event types
const (
	TypeMotion = "motion"
)

// Appender persists a record. *eventlog.Store implements it.
type Appender interface {
	Append(rec eventlog.Record) error
}

// Recorder composes timestamped records and writes them to the event log.
type Recorder struct {
	store Appender
	now   func() time.Time
	newID func() string
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Appender) *Recorder {
	return &Recorder{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// SetClock replaces the time source (tests).
func (r *Recorder) SetClock(now func() time.Time) {
	r.now = now
}

// Record appends an event. An empty image leaves the record's image null.
func (r *Recorder) Record(eventType, description, image string) (eventlog.Record, error) {
	rec := eventlog.Record{
		ID:          r.newID(),
		Timestamp:   r.now().Format(eventlog.TimeFormat),
		Type:        eventType,
		Description: description,
	}
	if image != "" {
		rec.Image = &image
	}

	if err := r.store.Append(rec); err != nil {
		return eventlog.Record{}, fmt.Errorf("record %s event: %w", eventType, err)
	}
	debug.Info("Event logged: %s - %s", eventType, description)
	return rec, nil
}
