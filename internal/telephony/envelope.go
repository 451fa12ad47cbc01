// Package telephony implements the Twilio wire surface: media stream
// envelopes, TwiML responses, and webhook signature validation.
package telephony

import (
	"encoding/base64"
	"encoding/json"
)

// Media stream envelope event types. Unrecognized events are ignored by
// consumers for forward compatibility.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
	EventClear     = "clear"
)

// TrackInbound labels caller audio on a media envelope.
const TrackInbound = "inbound"

// Message is one envelope on a Twilio media stream websocket.
type Message struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid,omitempty"`
	Media     *Media `json:"media,omitempty"`
	Start     *Start `json:"start,omitempty"`
	Stop      *Stop  `json:"stop,omitempty"`
}

// Media is the payload of a media envelope.
type Media struct {
	Track     string `json:"track,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"` // base64 encoded audio
}

// Start is the payload of a start envelope. It carries the stream session id
// that scopes all media for the call.
type Start struct {
	AccountSid       string            `json:"accountSid"`
	CallSid          string            `json:"callSid"`
	StreamSid        string            `json:"streamSid"`
	Tracks           []string          `json:"tracks,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// Stop is the payload of a stop envelope.
type Stop struct {
	AccountSid string `json:"accountSid"`
	CallSid    string `json:"callSid"`
}

// ParseMessage decodes one envelope.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// StreamID returns the stream session id carried by the envelope, preferring
// the start payload.
func (m *Message) StreamID() string {
	if m.Start != nil && m.Start.StreamSid != "" {
		return m.Start.StreamSid
	}
	return m.StreamSid
}

// DecodePayload returns the raw audio bytes of a media envelope.
func (md *Media) DecodePayload() ([]byte, error) {
	return base64.StdEncoding.DecodeString(md.Payload)
}

// NewMediaEnvelope wraps raw audio in an outbound media envelope tagged with
// the stream session id.
func NewMediaEnvelope(streamSid string, audio []byte) ([]byte, error) {
	return json.Marshal(Message{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media: &Media{
			Payload: base64.StdEncoding.EncodeToString(audio),
		},
	})
}

// NewClearEnvelope builds the control envelope that flushes any audio the
// transport has buffered for playback (barge-in).
func NewClearEnvelope(streamSid string) ([]byte, error) {
	return json.Marshal(Message{
		Event:     EventClear,
		StreamSid: streamSid,
	})
}
