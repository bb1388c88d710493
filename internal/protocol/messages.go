package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientPrompt  MessageType = "client_prompt"
	TypeClientAudio   MessageType = "client_audio"
	TypeClientControl MessageType = "client_control"
	TypeResponseChunk MessageType = "response_chunk"
	TypeResponseEnd   MessageType = "response_end"
	TypeErrorEvent    MessageType = "error_event"
)

// Control actions accepted in a client_control message.
const (
	ActionInterrupt = "interrupt"
	ActionNewChat   = "new_chat"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientPrompt submits one user prompt as text.
type ClientPrompt struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// ClientAudio submits recorded audio for transcription and, when the
// transcript is usable, prompting. Audio is a base64 payload with an optional
// data-URL prefix.
type ClientAudio struct {
	Type  MessageType `json:"type"`
	Audio string      `json:"audio"`
}

// ClientControl carries an interrupt or new_chat action.
type ClientControl struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
}

// ResponseChunk is one phrase of the assistant's reply with its audio, a
// single WAV data URL (empty when the chunk degraded to text-only).
type ResponseChunk struct {
	Type  MessageType `json:"type"`
	Text  string      `json:"text"`
	Audio string      `json:"audio,omitempty"`
}

// ResponseEnd closes a response turn. Exactly one is sent per accepted
// prompt.
type ResponseEnd struct {
	Type        MessageType `json:"type"`
	Interrupted bool        `json:"interrupted"`
	ContextLoad int         `json:"context_load"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

// ParseClientMessage decodes and validates one inbound websocket payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientPrompt:
		var msg ClientPrompt
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Text == "" {
			return nil, errors.New("invalid client_prompt")
		}
		return msg, nil
	case TypeClientAudio:
		var msg ClientAudio
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Audio == "" {
			return nil, errors.New("invalid client_audio")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Action != ActionInterrupt && msg.Action != ActionNewChat {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
