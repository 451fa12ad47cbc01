package telephony

import (
	"strings"
	"testing"
)

func TestGatherResponse(t *testing.T) {
	body, err := GatherResponse("Nine one one, what is your emergency.", GatherOptions{
		Action:         "/webhook/process-speech",
		TimeoutSeconds: 15,
		SpeechTimeout:  "2",
		Language:       "en-US",
	})
	if err != nil {
		t.Fatalf("Failed to build gather response: %v", err)
	}

	for _, want := range []string{
		"<Response>",
		"Nine one one, what is your emergency.",
		"<Gather",
		`input="speech"`,
		`action="/webhook/process-speech"`,
		`method="POST"`,
		`timeout="15"`,
		`speechTimeout="2"`,
		`language="en-US"`,
		"<Redirect",
		"/webhook/timeout",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected response to contain %q:\n%s", want, body)
		}
	}
}

func TestDialResponse(t *testing.T) {
	body, err := DialResponse("Transferring you now.", "+15551234567")
	if err != nil {
		t.Fatalf("Failed to build dial response: %v", err)
	}

	if !strings.Contains(body, "Transferring you now.") {
		t.Error("Expected spoken message before dial")
	}
	if !strings.Contains(body, "<Dial") || !strings.Contains(body, "+15551234567") {
		t.Errorf("Expected dial verb with dispatcher number:\n%s", body)
	}
}

func TestConnectStreamResponse(t *testing.T) {
	body, err := ConnectStreamResponse("Connecting you to an assistant now.", "wss://example.com/streams/twilio?call=CA1")
	if err != nil {
		t.Fatalf("Failed to build connect response: %v", err)
	}

	if !strings.Contains(body, "Connecting you to an assistant now.") {
		t.Error("Expected spoken message before connect")
	}
	if !strings.Contains(body, "<Connect>") || !strings.Contains(body, "<Stream") {
		t.Errorf("Expected connect verb with nested stream:\n%s", body)
	}
	if !strings.Contains(body, "wss://example.com/streams/twilio?call=CA1") {
		t.Errorf("Expected stream URL in response:\n%s", body)
	}
}

func TestHangupResponse(t *testing.T) {
	body, err := HangupResponse("I'm sorry, there was an error processing your request.")
	if err != nil {
		t.Fatalf("Failed to build hangup response: %v", err)
	}
	if !strings.Contains(body, "I'm sorry") || !strings.Contains(body, "<Hangup") {
		t.Errorf("Expected apology and hangup:\n%s", body)
	}
}

func TestHangupResponse_NoMessage(t *testing.T) {
	body, err := HangupResponse("")
	if err != nil {
		t.Fatalf("Failed to build hangup response: %v", err)
	}
	if strings.Contains(body, "<Say") {
		t.Errorf("Expected no say verb without a message:\n%s", body)
	}
	if !strings.Contains(body, "<Hangup") {
		t.Errorf("Expected hangup verb:\n%s", body)
	}
}
