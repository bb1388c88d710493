package memory

import (
	"context"
	"fmt"
	"testing"
)

func TestInMemoryStoreRecentTurns(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.SaveTurn(ctx, TurnRecord{
			ChatID:  "chat-1",
			Role:    "user",
			Content: fmt.Sprintf("message %d", i),
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := s.SaveTurn(ctx, TurnRecord{ChatID: "chat-2", Role: "user", Content: "other chat"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	turns, err := s.RecentTurns(ctx, "chat-1", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("len = %d", len(turns))
	}
	if turns[0].Content != "message 2" || turns[2].Content != "message 4" {
		t.Fatalf("wrong window: %q .. %q", turns[0].Content, turns[2].Content)
	}
	for _, turn := range turns {
		if turn.ID == "" || turn.CreatedAt.IsZero() {
			t.Fatalf("record not filled in: %+v", turn)
		}
	}

	empty, err := s.RecentTurns(ctx, "unknown", 10)
	if err != nil || empty != nil {
		t.Fatalf("unknown chat: %v %v", empty, err)
	}
}
