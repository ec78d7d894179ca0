package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cjeanneret/lvs/internal/eventlog"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer("127.0.0.1:0", Deps{
		Trigger: okTrigger,
		Events:  &fakeEvents{records: []eventlog.Record{sampleRecord("one")}},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestRouter_Routes(t *testing.T) {
	router := newTestServer(t).Router()

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/events", http.StatusOK},
		{http.MethodGet, "/events/latest", http.StatusOK},
		{http.MethodPost, "/trigger", http.StatusAccepted},
		{http.MethodGet, "/trigger", http.StatusMethodNotAllowed},
		{http.MethodPost, "/events", http.StatusMethodNotAllowed},
		{http.MethodGet, "/images/passwd", http.StatusBadRequest},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
	// Let the trigger goroutine finish.
	time.Sleep(50 * time.Millisecond)
}

func TestRouter_EmbeddedIndex(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer(t).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(w.Body.String(), "Last video seen") {
		t.Errorf("index body does not look like the embedded page")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
