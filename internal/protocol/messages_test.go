package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessagePrompt(t *testing.T) {
	raw := []byte(`{"type":"client_prompt","text":"hello there"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	prompt, ok := msg.(ClientPrompt)
	if !ok {
		t.Fatalf("message type = %T, want ClientPrompt", msg)
	}
	if prompt.Text != "hello there" {
		t.Fatalf("unexpected prompt: %+v", prompt)
	}
}

func TestParseClientMessageAudio(t *testing.T) {
	raw := []byte(`{"type":"client_audio","audio":"data:audio/wav;base64,AQID"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if _, ok := msg.(ClientAudio); !ok {
		t.Fatalf("message type = %T, want ClientAudio", msg)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	for _, action := range []string{ActionInterrupt, ActionNewChat} {
		raw := []byte(`{"type":"client_control","action":"` + action + `"}`)
		msg, err := ParseClientMessage(raw)
		if err != nil {
			t.Fatalf("ParseClientMessage(%s) error = %v", action, err)
		}
		control, ok := msg.(ClientControl)
		if !ok {
			t.Fatalf("message type = %T, want ClientControl", msg)
		}
		if control.Action != action {
			t.Fatalf("action = %q, want %q", control.Action, action)
		}
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsInvalidPayloads(t *testing.T) {
	cases := []string{
		`{"type":"client_prompt","text":""}`,
		`{"type":"client_audio","audio":""}`,
		`{"type":"client_control","action":"stop"}`,
		`not json`,
	}
	for _, raw := range cases {
		if _, err := ParseClientMessage([]byte(raw)); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func BenchmarkParseClientMessagePrompt(b *testing.B) {
	raw := []byte(`{"type":"client_prompt","text":"tell me about the weather today"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(ClientPrompt); !ok {
			b.Fatalf("message type = %T, want ClientPrompt", msg)
		}
	}
}
