// Package agent bridges one telephone call's media stream to the
// conversational voice agent backend for the duration of the call.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/opendispatch/triage-gateway/internal/audio"
	"github.com/opendispatch/triage-gateway/internal/config"
	"github.com/opendispatch/triage-gateway/internal/observability"
	"github.com/opendispatch/triage-gateway/internal/telephony"
)

// Phase is the lifecycle state of a bridge. Transitions only move forward.
type Phase int32

const (
	PhaseAwaitingGreeting Phase = iota
	PhaseAwaitingStreamID
	PhaseActive
	PhaseClosing
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingGreeting:
		return "awaiting_greeting"
	case PhaseAwaitingStreamID:
		return "awaiting_stream_id"
	case PhaseActive:
		return "active"
	case PhaseClosing:
		return "closing"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// Call identifies one telephone call handed to a bridge for its lifetime.
type Call struct {
	Sid        string
	Transcript string
	CreatedAt  time.Time
}

// Greeter produces a short personalized greeting from the caller's initial
// description of their situation.
type Greeter interface {
	Greeting(ctx context.Context, transcript string) (string, error)
}

// streamIDSlot is a write-once, read-many holder for the stream session id
// the transport assigns in its start envelope.
type streamIDSlot struct {
	once  sync.Once
	ready chan struct{}
	id    string
}

func newStreamIDSlot() *streamIDSlot {
	return &streamIDSlot{ready: make(chan struct{})}
}

func (s *streamIDSlot) set(id string) {
	s.once.Do(func() {
		s.id = id
		close(s.ready)
	})
}

func (s *streamIDSlot) wait(ctx context.Context) (string, error) {
	select {
	case <-s.ready:
		return s.id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Bridge owns one call's session with the agent backend: greeting and session
// configuration, then three concurrent relay loops until either side ends the
// stream. A bridge is single-use.
type Bridge struct {
	call    Call
	cfg     *config.Config
	greeter Greeter
	dialer  BackendDialer
	memory  *ConversationMemory
	frames  *audio.FrameBuffer
	logger  zerolog.Logger
	metrics *observability.Metrics
	phase   atomic.Int32
	sid     *streamIDSlot
}

// New creates a bridge for one call.
func New(call Call, cfg *config.Config, greeter Greeter, dialer BackendDialer, logger zerolog.Logger, metrics *observability.Metrics) *Bridge {
	return &Bridge{
		call:    call,
		cfg:     cfg,
		greeter: greeter,
		dialer:  dialer,
		memory:  NewConversationMemory(call.Transcript, cfg.MemoryWindow),
		frames:  audio.NewFrameBuffer(cfg.ChunkBytes()),
		logger:  logger,
		metrics: metrics,
		sid:     newStreamIDSlot(),
	}
}

// Phase returns the bridge's current lifecycle state.
func (b *Bridge) Phase() Phase {
	return Phase(b.phase.Load())
}

func (b *Bridge) setPhase(p Phase) {
	for {
		cur := b.phase.Load()
		if int32(p) <= cur {
			return
		}
		if b.phase.CompareAndSwap(cur, int32(p)) {
			return
		}
	}
}

// Run drives the session until the stream stops or a relay loop fails. The
// returned error is for logging only: once a media session is live, no
// markup response can reach the caller anymore.
func (b *Bridge) Run(ctx context.Context, transport Socket) error {
	defer b.setPhase(PhaseClosed)

	greeting := b.resolveGreeting(ctx)

	b.setPhase(PhaseAwaitingStreamID)
	backend, err := b.dialer.Dial(ctx)
	if err != nil {
		transport.Close()
		return fmt.Errorf("dial agent backend: %w", err)
	}

	settings := buildSettings(b.cfg, b.call.Transcript, greeting, b.memory.ContextWindow())
	payload, err := json.Marshal(settings)
	if err == nil {
		err = backend.WriteText(payload)
	}
	if err != nil {
		transport.Close()
		backend.Close()
		return fmt.Errorf("configure agent session: %w", err)
	}

	if b.metrics != nil {
		b.metrics.RecordCallStart()
		defer b.metrics.RecordCallEnd()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	audioCh := make(chan []byte, 64)
	errCh := make(chan error, 3)

	go func() { errCh <- b.relayInboundAudio(ctx, audioCh, backend) }()
	go func() { errCh <- b.relayBackendEvents(ctx, backend, transport) }()
	go func() { errCh <- b.receiveTelephony(ctx, transport, audioCh) }()

	// The first loop to finish ends the session. Siblings are cancelled and
	// unblocked from pending reads by closing both connections; mid-call
	// reconnection has no defined resumption point for a live audio stream.
	first := <-errCh
	b.setPhase(PhaseClosing)
	cancel()
	transport.Close()
	backend.Close()
	<-errCh
	<-errCh

	if first != nil && !errors.Is(first, context.Canceled) {
		return first
	}
	return nil
}

// resolveGreeting asks the reasoning service for a personalized greeting and
// falls back to the default on any failure. A greeting failure never aborts
// the call.
func (b *Bridge) resolveGreeting(ctx context.Context) string {
	if b.call.Transcript == "" || b.greeter == nil {
		return DefaultGreeting
	}

	greeting, err := b.greeter.Greeting(ctx, b.call.Transcript)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Greeting generation failed, using default")
		if b.metrics != nil {
			b.metrics.RecordError("greeting_error", "reasoning")
		}
		return DefaultGreeting
	}

	if cleaned := CleanVoiceText(greeting); cleaned != "" {
		return cleaned
	}
	return DefaultGreeting
}

// relayInboundAudio forwards buffered caller audio chunks to the agent
// backend in arrival order.
func (b *Bridge) relayInboundAudio(ctx context.Context, audioCh <-chan []byte, backend Socket) error {
	for {
		select {
		case chunk := <-audioCh:
			if err := backend.WriteBinary(chunk); err != nil {
				return fmt.Errorf("forward audio to agent: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// relayBackendEvents reads agent messages and relays them outward: binary
// payloads become media envelopes, control events drive barge-in and
// conversation memory. Blocks until the stream session id is known; nothing
// may be sent outward before then.
func (b *Bridge) relayBackendEvents(ctx context.Context, backend, transport Socket) error {
	streamSid, err := b.sid.wait(ctx)
	if err != nil {
		return err
	}

	for {
		kind, data, err := backend.ReadMessage()
		if err != nil {
			return fmt.Errorf("read agent message: %w", err)
		}

		if kind == BinaryMessage {
			envelope, err := telephony.NewMediaEnvelope(streamSid, data)
			if err != nil {
				return err
			}
			if err := transport.WriteText(envelope); err != nil {
				return fmt.Errorf("forward audio to transport: %w", err)
			}
			if b.metrics != nil {
				b.metrics.RecordAudioBytes("out", int64(len(data)))
			}
			continue
		}

		var event agentEvent
		if err := json.Unmarshal(data, &event); err != nil {
			b.logger.Debug().Err(err).Msg("Ignoring unparseable agent event")
			continue
		}

		switch event.Type {
		case eventUserStartedSpeaking:
			// Barge-in: flush queued playback before any further audio
			// goes out.
			envelope, err := telephony.NewClearEnvelope(streamSid)
			if err != nil {
				return err
			}
			if err := transport.WriteText(envelope); err != nil {
				return fmt.Errorf("send clear to transport: %w", err)
			}
			if b.metrics != nil {
				b.metrics.RecordBargeIn()
			}
			b.logger.Debug().Msg("Caller started speaking, cleared buffered audio")

		case eventConversationText:
			if event.Content != "" {
				role := event.Role
				if role == "" {
					role = RoleAssistant
				}
				b.memory.Record(role, event.Content)
			}

		default:
			// Other control events are informational.
		}
	}
}

// receiveTelephony reads transport envelopes: start publishes the stream
// session id, inbound media feeds the frame buffer, stop ends the session.
// Unrecognized or malformed envelopes are ignored.
func (b *Bridge) receiveTelephony(ctx context.Context, transport Socket, audioCh chan<- []byte) error {
	for {
		_, data, err := transport.ReadMessage()
		if err != nil {
			return fmt.Errorf("read transport message: %w", err)
		}

		msg, err := telephony.ParseMessage(data)
		if err != nil {
			b.logger.Debug().Err(err).Msg("Ignoring malformed transport envelope")
			continue
		}

		switch msg.Event {
		case telephony.EventStart:
			b.sid.set(msg.StreamID())
			b.setPhase(PhaseActive)
			b.logger.Info().Str("stream_sid", msg.StreamID()).Msg("Media stream started")

		case telephony.EventMedia:
			if msg.Media == nil || msg.Media.Track != telephony.TrackInbound {
				continue
			}
			payload, err := msg.Media.DecodePayload()
			if err != nil {
				b.logger.Debug().Err(err).Msg("Ignoring media envelope with bad payload")
				continue
			}
			b.frames.Append(payload)
			if b.metrics != nil {
				b.metrics.RecordAudioBytes("in", int64(len(payload)))
			}
			for chunk := range b.frames.Drain() {
				select {
				case audioCh <- chunk:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

		case telephony.EventStop:
			b.logger.Info().Msg("Media stream stopped")
			return nil

		case telephony.EventConnected:
			// Informational.

		default:
			b.logger.Debug().Str("event", msg.Event).Msg("Ignoring unrecognized transport envelope")
		}
	}
}
