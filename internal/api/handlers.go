// Package api exposes the gateway's HTTP surface: Twilio voice webhooks, the
// media stream websocket, and the call record endpoint for dashboards.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opendispatch/triage-gateway/internal/agent"
	"github.com/opendispatch/triage-gateway/internal/config"
	"github.com/opendispatch/triage-gateway/internal/reasoning"
	"github.com/opendispatch/triage-gateway/internal/store"
	"github.com/opendispatch/triage-gateway/internal/telephony"
)

// Spoken prompts for the webhook flow.
const (
	initialPrompt    = "Nine one one, what is your emergency."
	repeatPrompt     = "I didn't catch that. Please tell me what's happening."
	timeoutMessage   = "I didn't hear anything. If you need help, please call back. Goodbye."
	transferMessage  = "This appears to be an emergency. I'm transferring you to a human dispatcher now."
	connectMessage   = "Connecting you to an assistant now."
	errorMessage     = "I'm sorry, there was an error processing your request."
	recentCallsLimit = 50
)

// Reasoner is the triage surface of the reasoning client.
type Reasoner interface {
	Classify(ctx context.Context, transcript string) reasoning.Classification
	Criticality(ctx context.Context, transcript string) reasoning.Criticality
	Summarize(ctx context.Context, transcript string) string
}

// CallStore persists triaged call records. May be left nil when no database
// is configured; triage still works, records are just not kept.
type CallStore interface {
	AppendCallRecord(ctx context.Context, record store.CallRecord) (store.CallRecord, error)
	RecentRecords(ctx context.Context, limit int) ([]store.CallRecord, error)
	RecordsAfter(ctx context.Context, lastID int64) ([]store.CallRecord, error)
}

// Handler carries the dependencies of all HTTP endpoints.
type Handler struct {
	cfg              *config.Config
	logger           zerolog.Logger
	reasoner         Reasoner
	greeter          agent.Greeter
	records          CallStore
	registry         *CallRegistry
	validator        *telephony.WebhookValidator
	dialer           agent.BackendDialer
	feedPollInterval time.Duration
}

// NewHandler wires the endpoint dependencies. records may be nil.
func NewHandler(cfg *config.Config, logger zerolog.Logger, reasoner Reasoner, greeter agent.Greeter, records CallStore) *Handler {
	h := &Handler{
		cfg:              cfg,
		logger:           logger,
		reasoner:         reasoner,
		greeter:          greeter,
		records:          records,
		registry:         NewCallRegistry(),
		dialer:           &agent.DeepgramDialer{URL: cfg.AgentURL, APIKey: cfg.DeepgramAPIKey},
		feedPollInterval: 2 * time.Second,
	}
	if cfg.ValidateWebhooks && cfg.TwilioAuthToken != "" {
		h.validator = telephony.NewWebhookValidator(cfg.TwilioAuthToken, cfg.PublicURL)
	}
	return h
}

// HandleVoice answers an incoming call and gathers the caller's first
// description of their situation.
func (h *Handler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	if !h.validateWebhook(w, r, "/webhook/voice") {
		return
	}

	callSid := r.PostFormValue("CallSid")
	h.logger.Info().
		Str("call_sid", callSid).
		Str("from", r.PostFormValue("From")).
		Msg("Incoming call")

	h.writeGather(w, initialPrompt)
}

// HandleProcessSpeech triages the gathered speech: classify, summarize,
// assess criticality, persist the record, then either transfer to a human
// dispatcher or bridge to the voice agent.
func (h *Handler) HandleProcessSpeech(w http.ResponseWriter, r *http.Request) {
	if !h.validateWebhook(w, r, "/webhook/process-speech") {
		return
	}

	callSid := r.PostFormValue("CallSid")
	transcript := strings.TrimSpace(r.PostFormValue("SpeechResult"))
	logger := h.logger.With().Str("call_sid", callSid).Logger()

	if transcript == "" {
		logger.Info().Msg("No speech detected, asking again")
		h.writeGather(w, repeatPrompt)
		return
	}

	logger.Info().Str("transcript", transcript).Msg("Triaging call")

	// The three triage calls are independent; run them concurrently to keep
	// the caller waiting as briefly as possible.
	ctx := r.Context()
	var (
		classification reasoning.Classification
		summary        string
		criticality    reasoning.Criticality
		wg             sync.WaitGroup
	)
	wg.Add(3)
	go func() { defer wg.Done(); classification = h.reasoner.Classify(ctx, transcript) }()
	go func() { defer wg.Done(); summary = h.reasoner.Summarize(ctx, transcript) }()
	go func() { defer wg.Done(); criticality = h.reasoner.Criticality(ctx, transcript) }()
	wg.Wait()

	logger.Info().
		Str("classification", classification.Label).
		Str("criticality", string(criticality)).
		Msg("Triage complete")

	h.persistRecord(ctx, logger, summary, criticality)

	if classification.IsEmergency {
		logger.Info().Str("dispatcher", h.cfg.DispatcherPhoneNumber).Msg("Emergency, transferring to dispatcher")
		body, err := telephony.DialResponse(transferMessage, h.cfg.DispatcherPhoneNumber)
		h.writeTwiML(w, body, err)
		return
	}

	h.registry.Register(agent.Call{Sid: callSid, Transcript: transcript})
	logger.Info().Msg("Non-emergency, bridging to voice agent")
	body, err := telephony.ConnectStreamResponse(connectMessage, h.streamURL(r, callSid))
	h.writeTwiML(w, body, err)
}

// HandleTimeout ends a call whose gather expired without any speech.
func (h *Handler) HandleTimeout(w http.ResponseWriter, r *http.Request) {
	if !h.validateWebhook(w, r, "/webhook/timeout") {
		return
	}
	body, err := telephony.HangupResponse(timeoutMessage)
	h.writeTwiML(w, body, err)
}

// HandleStatus receives call status callbacks and cleans up registry state
// for calls that ended before their stream connected.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	callSid := r.PostFormValue("CallSid")
	status := r.PostFormValue("CallStatus")

	switch status {
	case "completed", "failed", "canceled", "busy", "no-answer":
		h.registry.Remove(callSid)
	}
	h.logger.Debug().Str("call_sid", callSid).Str("status", status).Msg("Call status update")
	w.WriteHeader(http.StatusNoContent)
}

// HandleCalls returns the most recent triaged call records as JSON.
func (h *Handler) HandleCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.records == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "call record store not configured"})
		return
	}

	records, err := h.records.RecentRecords(r.Context(), recentCallsLimit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load call records")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load call records"})
		return
	}
	if records == nil {
		records = []store.CallRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"callers": records})
}

func (h *Handler) persistRecord(ctx context.Context, logger zerolog.Logger, summary string, criticality reasoning.Criticality) {
	if h.records == nil {
		return
	}

	record := store.CallRecord{
		Latitude:  store.DefaultLatitude,
		Longitude: store.DefaultLongitude,
		Severity:  criticality.Severity(),
		Summary:   summary,
	}
	if _, err := h.records.AppendCallRecord(ctx, record); err != nil {
		// Persistence failure must not block the caller.
		logger.Error().Err(err).Msg("Failed to store call record")
	}
}

func (h *Handler) validateWebhook(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	if h.validator == nil {
		return true
	}
	if !h.validator.Validate(r, endpoint) {
		h.logger.Warn().Str("endpoint", endpoint).Msg("Rejected webhook with invalid signature")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return false
	}
	return true
}

func (h *Handler) writeGather(w http.ResponseWriter, message string) {
	body, err := telephony.GatherResponse(message, telephony.GatherOptions{
		Action:         "/webhook/process-speech",
		TimeoutSeconds: h.cfg.GatherTimeoutSeconds,
		SpeechTimeout:  h.cfg.GatherSpeechTimeout,
		Language:       h.cfg.GatherLanguage,
	})
	h.writeTwiML(w, body, err)
}

// writeTwiML sends a TwiML document, degrading to a spoken apology when the
// document could not be built.
func (h *Handler) writeTwiML(w http.ResponseWriter, body string, err error) {
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to build TwiML response")
		if body, err = telephony.HangupResponse(errorMessage); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(body))
}

// streamURL builds the websocket URL the call's media stream should connect
// to, carrying the call sid so the stream can pick up its transcript.
func (h *Handler) streamURL(r *http.Request, callSid string) string {
	base := h.cfg.PublicURL
	if base == "" {
		base = "https://" + r.Host
	}
	base = strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/streams/twilio?call=" + url.QueryEscape(callSid)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
