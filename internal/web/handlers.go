package web

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/cjeanneret/lvs/internal/debug"
	"github.com/cjeanneret/lvs/internal/eventlog"
	"github.com/cjeanneret/lvs/internal/logic/motion"
)

// DefaultEventLimit is the number of records GET /events returns without ?limit.
const DefaultEventLimit = 50

// imageName matches files written by the capturer.
var imageName = regexp.MustCompile(`^image_\d{8}_\d{6}(_\d+)?\.jpg$`)

// TriggerFunc runs one capture + record cycle.
// It is called from the POST /trigger handler in a goroutine.
type TriggerFunc func(ctx context.Context) (eventlog.Record, error)

// EventSource reads the event log.
type EventSource interface {
	Latest(n int) ([]eventlog.Record, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Trigger     TriggerFunc
	Events      EventSource
	ImagesDir   string
	runningMu   sync.Mutex
	running     bool
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If trigger is nil, POST /trigger will return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, trigger TriggerFunc, events EventSource, imagesDir string, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Trigger:     trigger,
		Events:      events,
		ImagesDir:   imagesDir,
		staticFS:    staticFS,
	}
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleTrigger handles POST /trigger to simulate a motion detection.
func (h *Handlers) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Trigger == nil {
		http.Error(w, "trigger not configured", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "trigger already in progress", http.StatusConflict)
		return
	}
	h.running = true
	h.runningMu.Unlock()

	// Run in goroutine; clear running when done
	go func() {
		defer func() {
			h.runningMu.Lock()
			h.running = false
			h.runningMu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		rec, err := h.Trigger(ctx)
		switch {
		case errors.Is(err, motion.ErrBusy):
			h.Broadcaster.Broadcast("warn", "Trigger skipped: another capture is running")
		case err != nil:
			h.Broadcaster.Broadcast("error", "Trigger failed: "+err.Error())
			debug.Errorf("web trigger failed: %v", err)
		default:
			h.Broadcaster.BroadcastEvent(rec)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleEvents handles GET /events?limit=N.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	limit := DefaultEventLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n // 0 = everything
	}

	records, err := h.Events.Latest(limit)
	if err != nil {
		debug.Errorf("read event log: %v", err)
		http.Error(w, "event log unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleLatest handles GET /events/latest: the last seen event.
func (h *Handlers) HandleLatest(w http.ResponseWriter, r *http.Request) {
	records, err := h.Events.Latest(1)
	if err != nil {
		debug.Errorf("read event log: %v", err)
		http.Error(w, "event log unavailable", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		http.Error(w, "no events recorded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, records[0])
}

// HandleImage handles GET /images/{name}.
func (h *Handlers) HandleImage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !imageName.MatchString(name) {
		http.Error(w, "invalid image name", http.StatusBadRequest)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, filepath.Join(h.ImagesDir, name))
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Verbose("write JSON response: %v", err)
	}
}
