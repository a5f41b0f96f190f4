// Package protocol defines the JSON control messages exchanged over the
// transcription websocket. Audio travels as binary frames; everything in
// this package travels as text frames.
package protocol

import (
	"encoding/json"
	"fmt"
)

// FlushCommand is the text frame a client sends to force transcription of
// whatever the server has buffered, without waiting for a silence window.
const FlushCommand = "flush"

// Kind identifies a control message type.
type Kind int

const (
	KindUnknown Kind = iota
	// KindReady is sent by the server once per connection before any audio
	// is accepted. It carries the sample rate the server expects.
	KindReady
	// KindTranscript carries recognized text for one utterance.
	KindTranscript
	// KindFlushed acknowledges a flush command.
	KindFlushed
	// KindError reports a server-side failure. The connection closes after
	// an error message.
	KindError
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindReady:
		return "ready"
	case KindTranscript:
		return "transcript"
	case KindFlushed:
		return "flushed"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Message is one control message. Only the fields relevant to the Kind are
// populated.
type Message struct {
	Kind Kind

	// SampleRate is set for KindReady.
	SampleRate int

	// Text is the recognized text, set for KindTranscript.
	Text string

	// Duration is the seconds of audio the transcript covers, set for
	// KindTranscript.
	Duration float64

	// Detail describes the failure, set for KindError.
	Detail string
}

// wireMessage is the JSON encoding shared by all message kinds.
type wireMessage struct {
	Type     string  `json:"type"`
	SR       int     `json:"sr,omitempty"`
	Text     string  `json:"text,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// Ready builds the per-connection handshake message.
func Ready(sampleRate int) Message {
	return Message{Kind: KindReady, SampleRate: sampleRate}
}

// Transcript builds a transcript message for text covering duration
// seconds of audio.
func Transcript(text string, duration float64) Message {
	return Message{Kind: KindTranscript, Text: text, Duration: duration}
}

// Flushed builds a flush acknowledgement.
func Flushed() Message {
	return Message{Kind: KindFlushed}
}

// Error builds an error message with a human-readable detail.
func Error(detail string) Message {
	return Message{Kind: KindError, Detail: detail}
}

// Encode serializes m to its JSON wire form.
func Encode(m Message) ([]byte, error) {
	w := wireMessage{Type: m.Kind.String()}
	switch m.Kind {
	case KindReady:
		w.SR = m.SampleRate
	case KindTranscript:
		w.Text = m.Text
		w.Duration = m.Duration
	case KindFlushed:
	case KindError:
		w.Detail = m.Detail
	default:
		return nil, fmt.Errorf("protocol: cannot encode message kind %d", int(m.Kind))
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", m.Kind, err)
	}
	return data, nil
}

// Decode parses a JSON wire message. Unknown types decode to KindUnknown
// rather than an error, so protocol additions do not break old clients.
func Decode(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("protocol: decode: %w", err)
	}
	switch w.Type {
	case "ready":
		return Message{Kind: KindReady, SampleRate: w.SR}, nil
	case "transcript":
		return Message{Kind: KindTranscript, Text: w.Text, Duration: w.Duration}, nil
	case "flushed":
		return Message{Kind: KindFlushed}, nil
	case "error":
		return Message{Kind: KindError, Detail: w.Detail}, nil
	default:
		return Message{Kind: KindUnknown}, nil
	}
}
