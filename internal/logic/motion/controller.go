package motion

import (
	"context"
	"errors"
	"sync"

	"github.com/cjeanneret/lvs/internal/debug"
	"github.com/cjeanneret/lvs/internal/eventlog"
	"github.com/cjeanneret/lvs/internal/logic/event"
)

// Descriptions written for motion events.
const (
	DescDetected = "Motion detected"
	DescFailed   = "Motion detection failed"
)

// ErrBusy is returned by TryHandleMotion while another trigger is running.
var ErrBusy = errors.New("motion trigger already in progress")

// Capturer grabs an image and returns its path.
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

// Recorder appends an event to the log.
type Recorder interface {
	Record(eventType, description, image string) (eventlog.Record, error)
}

// Notifier is told about every recorded event. Optional.
type Notifier interface {
	Notify(rec eventlog.Record) error
}

// Controller turns a motion trigger into a captured image and an event
// record. It's the layer between trigger sources (CLI, web, PIR sensor)
// and the capture / event log components.
type Controller struct {
	capturer Capturer
	recorder Recorder
	notifier Notifier

	mu sync.Mutex // one trigger at a time: the event log has a single writer
}

// NewController wires the controller. notifier may be nil.
func NewController(c Capturer, r Recorder, n Notifier) *Controller {
	return &Controller{
		capturer: c,
		recorder: r,
		notifier: n,
	}
}

// HandleMotion captures an image and records a motion event. A failed
// capture is still recorded, without image. The returned error is only
// about the event log.
func (c *Controller) HandleMotion(ctx context.Context) (eventlog.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle(ctx)
}

// TryHandleMotion is HandleMotion, but returns ErrBusy instead of waiting
// when a trigger is already running.
func (c *Controller) TryHandleMotion(ctx context.Context) (eventlog.Record, error) {
	if !c.mu.TryLock() {
		return eventlog.Record{}, ErrBusy
	}
	defer c.mu.Unlock()
	return c.handle(ctx)
}

func (c *Controller) handle(ctx context.Context) (eventlog.Record, error) {
	debug.Live("Motion trigger received")

	description := DescDetected
	image, err := c.capturer.Capture(ctx)
	if err != nil {
		description = DescFailed
		image = ""
	}

	rec, err := c.recorder.Record(event.TypeMotion, description, image)
	if err != nil {
		debug.Error(err)
		return eventlog.Record{}, err
	}

	if c.notifier != nil {
		if err := c.notifier.Notify(rec); err != nil {
			debug.Errorf("Notification failed: %v", err)
		}
	}
	return rec, nil
}
