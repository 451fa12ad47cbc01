package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/opendispatch/triage-gateway/internal/store"
)

const streamInitialLimit = 10

// callersEvent is one server-sent event on the live call record feed.
type callersEvent struct {
	Type       string             `json:"type"`
	Callers    []store.CallRecord `json:"callers,omitempty"`
	NewCallers []store.CallRecord `json:"new_callers,omitempty"`
	Count      int                `json:"count,omitempty"`
	LastID     int64              `json:"last_id"`
	Message    string             `json:"message,omitempty"`
	Timestamp  string             `json:"timestamp"`
}

// HandleCallersStream pushes call records to dashboards as server-sent
// events: an initial snapshot, then new records polled by last seen id, with
// heartbeats while the table is quiet.
func (h *Handler) HandleCallersStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.records == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "call record store not configured"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ctx := r.Context()
	var lastID int64

	initial, err := h.records.RecentRecords(ctx, streamInitialLimit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load initial records for feed")
	}
	if len(initial) > 0 {
		for _, record := range initial {
			if record.ID > lastID {
				lastID = record.ID
			}
		}
		h.writeEvent(w, flusher, callersEvent{
			Type:    "initial",
			Callers: initial,
			Count:   len(initial),
			LastID:  lastID,
		})
	}

	ticker := time.NewTicker(h.feedPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		fresh, err := h.records.RecordsAfter(ctx, lastID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Error().Err(err).Msg("Failed to poll for new call records")
			h.writeEvent(w, flusher, callersEvent{
				Type:    "error",
				Message: "failed to load new call records",
				LastID:  lastID,
			})
			continue
		}

		if len(fresh) == 0 {
			h.writeEvent(w, flusher, callersEvent{Type: "heartbeat", LastID: lastID})
			continue
		}

		lastID = fresh[len(fresh)-1].ID
		h.writeEvent(w, flusher, callersEvent{
			Type:       "new_callers",
			NewCallers: fresh,
			Count:      len(fresh),
			LastID:     lastID,
		})
	}
}

func (h *Handler) writeEvent(w http.ResponseWriter, flusher http.Flusher, event callersEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode feed event")
		return
	}
	if _, err := w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
		return
	}
	flusher.Flush()
}
