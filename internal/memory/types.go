package memory

import (
	"context"
	"time"
)

// TurnRecord archives a single user or assistant turn of a chat. Interrupted
// marks assistant turns that were cut off mid-response; Content then holds
// only the text that was actually delivered.
type TurnRecord struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chat_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Interrupted bool      `json:"interrupted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists the turn archive. The live chat history lives in the
// pipeline; the store is the durable record that survives restarts.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	RecentTurns(ctx context.Context, chatID string, limit int) ([]TurnRecord, error)
	Close() error
}
