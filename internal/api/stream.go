package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/opendispatch/triage-gateway/internal/agent"
	"github.com/opendispatch/triage-gateway/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Twilio media streams carry no Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleStream upgrades a Twilio media stream connection and bridges it to
// the voice agent for the remainder of the call.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	callSid := r.URL.Query().Get("call")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("call_sid", callSid).Msg("Failed to upgrade media stream connection")
		return
	}

	call, ok := h.registry.Lookup(callSid)
	if !ok {
		// A stream can connect without prior triage (e.g. a TwiML change
		// pointing straight at the stream). Bridge it without a transcript.
		call = agent.Call{Sid: callSid}
	}
	defer h.registry.Remove(callSid)

	correlationID := observability.NewCorrelationID()
	logger := observability.WithCorrelationID(correlationID).With().Str("call_sid", call.Sid).Logger()
	logger.Info().Msg("Media stream connected")

	bridge := agent.New(call, h.cfg, h.greeter, h.dialer, logger, observability.NewCallMetrics(call.Sid))
	if err := bridge.Run(r.Context(), agent.NewWSSocket(conn)); err != nil {
		logger.Error().Err(err).Msg("Bridge session ended with error")
		return
	}
	logger.Info().Msg("Bridge session ended")
}
