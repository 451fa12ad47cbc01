package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opendispatch/triage-gateway/internal/store"
)

func feedRequest(ctx context.Context) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/callers/stream", nil).WithContext(ctx)
}

func TestHandleCallersStream(t *testing.T) {
	records := &fakeStore{
		recent: []store.CallRecord{
			{ID: 2, Severity: 3, Summary: "Downed power line blocking the road."},
			{ID: 1, Severity: 1, Summary: "Noise complaint."},
		},
		afterResults: [][]store.CallRecord{
			nil,
			{{ID: 3, Severity: 4, Summary: "Apartment fire on the second floor."}},
		},
	}
	h := newTestHandler(&fakeReasoner{}, records)
	h.feedPollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	records.onAfter = func(polls int) {
		if polls >= 3 {
			cancel()
		}
	}

	w := httptest.NewRecorder()
	h.HandleCallersStream(w, feedRequest(ctx))

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected event stream content type, got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, `"type":"initial"`) || !strings.Contains(body, "Downed power line") {
		t.Errorf("Expected initial snapshot event:\n%s", body)
	}
	if !strings.Contains(body, `"type":"heartbeat"`) {
		t.Errorf("Expected heartbeat while no new records:\n%s", body)
	}
	if !strings.Contains(body, `"type":"new_callers"`) || !strings.Contains(body, "Apartment fire") {
		t.Errorf("Expected new record event:\n%s", body)
	}
	if !strings.HasPrefix(body, "data: ") || !strings.Contains(body, "}\n\n") {
		t.Errorf("Expected SSE data framing:\n%s", body)
	}

	// The snapshot sets the cursor to the newest id; delivering record 3
	// advances it.
	want := []int64{2, 2, 3}
	if len(records.afterIDs) != len(want) {
		t.Fatalf("Expected %d polls, got %v", len(want), records.afterIDs)
	}
	for i, id := range want {
		if records.afterIDs[i] != id {
			t.Errorf("Poll %d: expected last id %d, got %d", i, id, records.afterIDs[i])
		}
	}
}

func TestHandleCallersStream_ReportsPollFailure(t *testing.T) {
	records := &fakeStore{err: errors.New("database down")}
	h := newTestHandler(&fakeReasoner{}, records)
	h.feedPollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	records.onAfter = func(polls int) {
		if polls >= 2 {
			cancel()
		}
	}

	w := httptest.NewRecorder()
	h.HandleCallersStream(w, feedRequest(ctx))

	if !strings.Contains(w.Body.String(), `"type":"error"`) {
		t.Errorf("Expected error event on poll failure:\n%s", w.Body.String())
	}
}

func TestHandleCallersStream_NoStore(t *testing.T) {
	h := newTestHandler(&fakeReasoner{}, nil)

	w := httptest.NewRecorder()
	h.HandleCallersStream(w, feedRequest(context.Background()))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a store, got %d", w.Code)
	}
}

func TestHandleCallersStream_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(&fakeReasoner{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/callers/stream", nil)
	w := httptest.NewRecorder()
	h.HandleCallersStream(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}
