package domain

import (
	"context"
	"time"
)

// EventDirection distinguishes Gateway->connector from connector->Gateway
// entries in the journal.
type EventDirection string

const (
	DirectionInbound  EventDirection = "inbound"
	DirectionOutbound EventDirection = "outbound"
)

// DialogEvent is one append-only journal row. The journal is an
// observability trail, not conversation state: the dialogue engine remains
// the owner of dialog state.
type DialogEvent struct {
	ID        string         `json:"id"`
	DialogID  string         `json:"dialog_id"`
	Direction EventDirection `json:"direction"`
	Kind      string         `json:"kind"` // endpoint or operation name
	Payload   string         `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// JournalRepository persists dialog events.
type JournalRepository interface {
	InitSchema(ctx context.Context) error
	Append(ctx context.Context, event *DialogEvent) error
	ListByDialog(ctx context.Context, dialogID string, limit int) ([]*DialogEvent, error)
}
