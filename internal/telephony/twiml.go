package telephony

import (
	"strconv"

	"github.com/twilio/twilio-go/twiml"
)

// GatherOptions configures a speech-gathering TwiML response.
type GatherOptions struct {
	Action         string
	TimeoutSeconds int
	SpeechTimeout  string
	Language       string
}

// GatherResponse speaks a message and gathers speech input from the caller,
// falling through to the timeout endpoint when nothing is heard.
func GatherResponse(message string, opts GatherOptions) (string, error) {
	say := &twiml.VoiceSay{Message: message}
	gather := &twiml.VoiceGather{
		Input:         "speech",
		Action:        opts.Action,
		Method:        "POST",
		Timeout:       strconv.Itoa(opts.TimeoutSeconds),
		SpeechTimeout: opts.SpeechTimeout,
		Language:      opts.Language,
	}
	redirect := &twiml.VoiceRedirect{Url: "/webhook/timeout", Method: "POST"}

	return twiml.Voice([]twiml.Element{say, gather, redirect})
}

// DialResponse speaks a message and then dials a phone number (escalation to
// a human dispatcher).
func DialResponse(message, phoneNumber string) (string, error) {
	say := &twiml.VoiceSay{Message: message}
	dial := &twiml.VoiceDial{Number: phoneNumber}

	return twiml.Voice([]twiml.Element{say, dial})
}

// ConnectStreamResponse speaks a message and then bridges the call's media
// stream to the given websocket URL for the remainder of the call.
func ConnectStreamResponse(message, streamURL string) (string, error) {
	say := &twiml.VoiceSay{Message: message}
	connect := &twiml.VoiceConnect{
		InnerElements: []twiml.Element{
			&twiml.VoiceStream{Url: streamURL},
		},
	}

	return twiml.Voice([]twiml.Element{say, connect})
}

// HangupResponse optionally speaks a message and ends the call.
func HangupResponse(message string) (string, error) {
	verbs := []twiml.Element{}
	if message != "" {
		verbs = append(verbs, &twiml.VoiceSay{Message: message})
	}
	verbs = append(verbs, &twiml.VoiceHangup{})

	return twiml.Voice(verbs)
}
