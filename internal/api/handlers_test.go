package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opendispatch/triage-gateway/internal/agent"
	"github.com/opendispatch/triage-gateway/internal/config"
	"github.com/opendispatch/triage-gateway/internal/reasoning"
	"github.com/opendispatch/triage-gateway/internal/store"
)

type fakeReasoner struct {
	classification reasoning.Classification
	criticality    reasoning.Criticality
	summary        string
	calls          int
}

func (f *fakeReasoner) Classify(ctx context.Context, transcript string) reasoning.Classification {
	f.calls++
	return f.classification
}

func (f *fakeReasoner) Criticality(ctx context.Context, transcript string) reasoning.Criticality {
	return f.criticality
}

func (f *fakeReasoner) Summarize(ctx context.Context, transcript string) string {
	return f.summary
}

type fakeStore struct {
	appended     []store.CallRecord
	recent       []store.CallRecord
	err          error
	afterResults [][]store.CallRecord
	afterIDs     []int64
	onAfter      func(polls int)
}

func (f *fakeStore) AppendCallRecord(ctx context.Context, record store.CallRecord) (store.CallRecord, error) {
	if f.err != nil {
		return store.CallRecord{}, f.err
	}
	record.ID = int64(len(f.appended) + 1)
	f.appended = append(f.appended, record)
	return record, nil
}

func (f *fakeStore) RecentRecords(ctx context.Context, limit int) ([]store.CallRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recent, nil
}

// RecordsAfter replays one scripted result per poll and reports the lastID it
// was asked for, so feed tests can assert the poll cursor advances.
func (f *fakeStore) RecordsAfter(ctx context.Context, lastID int64) ([]store.CallRecord, error) {
	f.afterIDs = append(f.afterIDs, lastID)
	var result []store.CallRecord
	if n := len(f.afterIDs); n <= len(f.afterResults) {
		result = f.afterResults[n-1]
	}
	err := f.err
	if f.onAfter != nil {
		f.onAfter(len(f.afterIDs))
	}
	return result, err
}

func testHandlerConfig() *config.Config {
	return &config.Config{
		PublicURL:             "https://gateway.example.com",
		AgentURL:              "wss://agent.example.com/v1/agent/converse",
		DispatcherPhoneNumber: "+15551234567",
		GatherTimeoutSeconds:  15,
		GatherSpeechTimeout:   "2",
		GatherLanguage:        "en-US",
	}
}

func newTestHandler(reasoner Reasoner, records CallStore) *Handler {
	return NewHandler(testHandlerConfig(), zerolog.Nop(), reasoner, nil, records)
}

func postForm(t *testing.T, h http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestHandleVoice(t *testing.T) {
	h := newTestHandler(&fakeReasoner{}, nil)

	w := postForm(t, h.HandleVoice, "/webhook/voice", url.Values{
		"CallSid": {"CA1"},
		"From":    {"+15550001111"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("Expected XML content type, got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "Nine one one, what is your emergency.") {
		t.Errorf("Expected initial prompt in response:\n%s", body)
	}
	if !strings.Contains(body, "<Gather") {
		t.Errorf("Expected gather verb in response:\n%s", body)
	}
}

func TestHandleProcessSpeech_Emergency(t *testing.T) {
	reasoner := &fakeReasoner{
		classification: reasoning.Classification{IsEmergency: true, Label: reasoning.LabelEmergency, Confidence: "high"},
		criticality:    reasoning.CriticalityCritical,
		summary:        "Caller reports a structure fire with people trapped.",
	}
	records := &fakeStore{}
	h := newTestHandler(reasoner, records)

	w := postForm(t, h.HandleProcessSpeech, "/webhook/process-speech", url.Values{
		"CallSid":      {"CA1"},
		"SpeechResult": {"My house is on fire and my kids are inside"},
	})

	body := w.Body.String()
	if !strings.Contains(body, "<Dial") || !strings.Contains(body, "+15551234567") {
		t.Errorf("Expected transfer to dispatcher:\n%s", body)
	}

	if len(records.appended) != 1 {
		t.Fatalf("Expected 1 stored record, got %d", len(records.appended))
	}
	record := records.appended[0]
	if record.Severity != 4 {
		t.Errorf("Expected severity 4 for critical call, got %d", record.Severity)
	}
	if record.Summary != reasoner.summary {
		t.Errorf("Expected model summary stored, got %q", record.Summary)
	}
	if record.Latitude != store.DefaultLatitude || record.Longitude != store.DefaultLongitude {
		t.Error("Expected default coordinates on stored record")
	}

	if h.registry.Len() != 0 {
		t.Error("Emergency calls must not be registered for bridging")
	}
}

func TestHandleProcessSpeech_NonEmergency(t *testing.T) {
	reasoner := &fakeReasoner{
		classification: reasoning.Classification{IsEmergency: false, Label: reasoning.LabelNonEmergency, Confidence: "high"},
		criticality:    reasoning.CriticalityLow,
		summary:        "Caller asking about evacuation centers.",
	}
	h := newTestHandler(reasoner, &fakeStore{})

	w := postForm(t, h.HandleProcessSpeech, "/webhook/process-speech", url.Values{
		"CallSid":      {"CA2"},
		"SpeechResult": {"Where is the nearest evacuation center?"},
	})

	body := w.Body.String()
	if !strings.Contains(body, "Connecting you to an assistant now.") {
		t.Errorf("Expected connect message:\n%s", body)
	}
	if !strings.Contains(body, "wss://gateway.example.com/streams/twilio?call=CA2") {
		t.Errorf("Expected stream URL with call sid:\n%s", body)
	}

	call, ok := h.registry.Lookup("CA2")
	if !ok {
		t.Fatal("Expected call registered for stream pickup")
	}
	if call.Transcript != "Where is the nearest evacuation center?" {
		t.Errorf("Expected transcript in registered call, got %q", call.Transcript)
	}
}

func TestHandleProcessSpeech_EmptySpeech(t *testing.T) {
	reasoner := &fakeReasoner{}
	h := newTestHandler(reasoner, nil)

	w := postForm(t, h.HandleProcessSpeech, "/webhook/process-speech", url.Values{
		"CallSid":      {"CA3"},
		"SpeechResult": {"   "},
	})

	body := w.Body.String()
	if !strings.Contains(body, "I didn't catch that.") {
		t.Errorf("Expected repeat prompt:\n%s", body)
	}
	if reasoner.calls != 0 {
		t.Error("Expected no triage without speech")
	}
}

func TestHandleProcessSpeech_StoreFailureStillResponds(t *testing.T) {
	reasoner := &fakeReasoner{
		classification: reasoning.Classification{IsEmergency: true, Label: reasoning.LabelEmergency},
		criticality:    reasoning.CriticalityHigh,
		summary:        "summary",
	}
	h := newTestHandler(reasoner, &fakeStore{err: errors.New("database down")})

	w := postForm(t, h.HandleProcessSpeech, "/webhook/process-speech", url.Values{
		"CallSid":      {"CA4"},
		"SpeechResult": {"There's a fire spreading toward the school"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 despite store failure, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Dial") {
		t.Error("Expected the caller still to be transferred")
	}
}

func TestHandleTimeout(t *testing.T) {
	h := newTestHandler(&fakeReasoner{}, nil)

	w := postForm(t, h.HandleTimeout, "/webhook/timeout", url.Values{"CallSid": {"CA5"}})

	body := w.Body.String()
	if !strings.Contains(body, "I didn't hear anything.") || !strings.Contains(body, "<Hangup") {
		t.Errorf("Expected goodbye message and hangup:\n%s", body)
	}
}

func TestHandleStatus_RemovesCompletedCall(t *testing.T) {
	h := newTestHandler(&fakeReasoner{}, nil)
	h.registry.Register(agent.Call{Sid: "CA6", Transcript: "hello"})

	w := postForm(t, h.HandleStatus, "/webhook/status", url.Values{
		"CallSid":    {"CA6"},
		"CallStatus": {"completed"},
	})

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if _, ok := h.registry.Lookup("CA6"); ok {
		t.Error("Expected completed call removed from registry")
	}
}

func TestHandleStatus_RemovesUnansweredCall(t *testing.T) {
	h := newTestHandler(&fakeReasoner{}, nil)

	for _, status := range []string{"busy", "no-answer"} {
		sid := "CA6-" + status
		h.registry.Register(agent.Call{Sid: sid, Transcript: "hello"})

		w := postForm(t, h.HandleStatus, "/webhook/status", url.Values{
			"CallSid":    {sid},
			"CallStatus": {status},
		})

		if w.Code != http.StatusNoContent {
			t.Errorf("Expected 204 for %q, got %d", status, w.Code)
		}
		if _, ok := h.registry.Lookup(sid); ok {
			t.Errorf("Expected %q call removed from registry", status)
		}
	}
}

func TestHandleStatus_KeepsRingingCall(t *testing.T) {
	h := newTestHandler(&fakeReasoner{}, nil)
	h.registry.Register(agent.Call{Sid: "CA6", Transcript: "hello"})

	postForm(t, h.HandleStatus, "/webhook/status", url.Values{
		"CallSid":    {"CA6"},
		"CallStatus": {"ringing"},
	})

	if _, ok := h.registry.Lookup("CA6"); !ok {
		t.Error("Expected in-progress call kept in registry")
	}
}

func TestHandleCalls(t *testing.T) {
	records := &fakeStore{recent: []store.CallRecord{
		{ID: 1, Severity: 4, Summary: "Structure fire with people trapped."},
	}}
	h := newTestHandler(&fakeReasoner{}, records)

	req := httptest.NewRequest(http.MethodGet, "/calls", nil)
	w := httptest.NewRecorder()
	h.HandleCalls(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"callers"`) || !strings.Contains(body, "Structure fire") {
		t.Errorf("Expected records in response:\n%s", body)
	}
}

func TestHandleCalls_NoStore(t *testing.T) {
	h := newTestHandler(&fakeReasoner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/calls", nil)
	w := httptest.NewRecorder()
	h.HandleCalls(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a store, got %d", w.Code)
	}
}

func TestHandleCalls_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(&fakeReasoner{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/calls", nil)
	w := httptest.NewRecorder()
	h.HandleCalls(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestWebhookValidation_RejectsUnsigned(t *testing.T) {
	cfg := testHandlerConfig()
	cfg.ValidateWebhooks = true
	cfg.TwilioAuthToken = "secret"
	h := NewHandler(cfg, zerolog.Nop(), &fakeReasoner{}, nil, nil)

	w := postForm(t, h.HandleVoice, "/webhook/voice", url.Values{"CallSid": {"CA7"}})

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for unsigned webhook, got %d", w.Code)
	}
}

func TestStreamURL_FallsBackToRequestHost(t *testing.T) {
	cfg := testHandlerConfig()
	cfg.PublicURL = ""
	h := NewHandler(cfg, zerolog.Nop(), &fakeReasoner{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/process-speech", nil)
	req.Host = "gw.ngrok.example"

	got := h.streamURL(req, "CA8")
	if got != "wss://gw.ngrok.example/streams/twilio?call=CA8" {
		t.Errorf("Unexpected stream URL: %q", got)
	}
}

func TestCallRegistry(t *testing.T) {
	registry := NewCallRegistry()

	if _, ok := registry.Lookup("CA9"); ok {
		t.Error("Expected lookup miss on empty registry")
	}

	registry.Register(agent.Call{Sid: "CA9", Transcript: "hello"})
	call, ok := registry.Lookup("CA9")
	if !ok || call.Transcript != "hello" {
		t.Errorf("Expected registered call, got %+v ok=%v", call, ok)
	}

	registry.Remove("CA9")
	if _, ok := registry.Lookup("CA9"); ok {
		t.Error("Expected call removed")
	}
	if registry.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", registry.Len())
	}
}
