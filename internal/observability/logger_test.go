package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestNewCorrelationID(t *testing.T) {
	first := NewCorrelationID()
	second := NewCorrelationID()

	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("Expected a parseable uuid, got %q: %v", first, err)
	}
	if first == second {
		t.Error("Expected distinct correlation IDs")
	}
}

func TestWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	savedLogger, savedInit := globalLogger, initialized
	globalLogger = zerolog.New(&buf)
	initialized = true
	defer func() { globalLogger, initialized = savedLogger, savedInit }()

	logger := WithCorrelationID("abc-123")
	logger.Info().Msg("stream connected")
	if !strings.Contains(buf.String(), `"correlation_id":"abc-123"`) {
		t.Errorf("Expected correlation id in log output: %s", buf.String())
	}

	buf.Reset()
	logger = WithCorrelationID("")
	logger.Info().Msg("stream connected")
	if !strings.Contains(buf.String(), `"correlation_id":"`) {
		t.Errorf("Expected a generated correlation id in log output: %s", buf.String())
	}
}
