package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/voicepipe/internal/pipeline"
	"github.com/ent0n29/voicepipe/internal/protocol"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsPollInterval = 500 * time.Millisecond
)

// handleStream upgrades to a websocket and pumps deliveries out while
// accepting prompts, audio and control messages in. Writes stay
// single-threaded: the reader hands outbound events to the writer over a
// channel.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			// Deliveries and reader-originated events interleave here so
			// the connection has exactly one writer.
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				if !s.writeJSON(conn, msg, cancel) {
					return
				}
				continue
			default:
			}

			d := s.backend.NextDelivery(ctx, wsPollInterval)
			switch d.Kind {
			case pipeline.KindChunk:
				if !s.writeJSON(conn, protocol.ResponseChunk{
					Type:  protocol.TypeResponseChunk,
					Text:  d.Text,
					Audio: d.Audio,
				}, cancel) {
					return
				}
			case pipeline.KindEnd:
				if !s.writeJSON(conn, protocol.ResponseEnd{
					Type:        protocol.TypeResponseEnd,
					Interrupted: d.Interrupted,
					ContextLoad: s.backend.ContextLoad(),
				}, cancel) {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(8 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.queueEvent(ctx, outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			})
			continue
		}
		s.dispatchClientMessage(ctx, parsed, outbound)
	}

	cancel()
	<-writerDone
}

func (s *Server) dispatchClientMessage(ctx context.Context, msg any, outbound chan<- any) {
	switch m := msg.(type) {
	case protocol.ClientPrompt:
		if err := s.backend.SendPrompt(strings.TrimSpace(m.Text)); err != nil {
			s.queueEvent(ctx, outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "prompt_rejected",
				Detail: err.Error(),
			})
		}
	case protocol.ClientAudio:
		if !s.stt.Enabled() {
			s.queueEvent(ctx, outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "stt_disabled",
				Detail: "no transcription backend configured",
			})
			return
		}
		text := s.stt.TranscribeDataURL(ctx, m.Audio)
		if text == "" {
			if s.metrics != nil {
				s.metrics.TranscriptionFailures.Inc()
			}
			s.queueEvent(ctx, outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "transcription_empty",
				Detail: "no usable speech in audio",
			})
			return
		}
		if err := s.backend.SendPrompt(text); err != nil {
			s.queueEvent(ctx, outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "prompt_rejected",
				Detail: err.Error(),
			})
		}
	case protocol.ClientControl:
		var err error
		switch m.Action {
		case protocol.ActionInterrupt:
			err = s.backend.InterruptResponse()
		case protocol.ActionNewChat:
			err = s.backend.StartNewChat()
		}
		if err != nil {
			s.queueEvent(ctx, outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "control_failed",
				Detail: err.Error(),
			})
		}
	}
}

func (s *Server) queueEvent(ctx context.Context, outbound chan<- any, event any) {
	select {
	case outbound <- event:
	case <-ctx.Done():
	default:
		// Drop rather than stall the reader when the writer is saturated.
	}
}

func (s *Server) writeJSON(conn *websocket.Conn, msg any, cancel context.CancelFunc) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		cancel()
		return false
	}
	return true
}
