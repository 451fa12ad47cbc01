package api

import (
	"net/http"
)

// NewRouter mounts the webhook, stream, and record endpoints.
func NewRouter(handler *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/webhook/voice", handler.HandleVoice)
	mux.HandleFunc("/webhook/process-speech", handler.HandleProcessSpeech)
	mux.HandleFunc("/webhook/timeout", handler.HandleTimeout)
	mux.HandleFunc("/webhook/status", handler.HandleStatus)
	mux.HandleFunc("/calls", handler.HandleCalls)
	mux.HandleFunc("/callers/stream", handler.HandleCallersStream)
	mux.HandleFunc("/streams/twilio", handler.HandleStream)

	return mux
}
