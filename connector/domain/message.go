package domain

import (
	"context"

	"github.com/google/uuid"
)

// ChannelName identifies this connector towards the dialogue engine.
const ChannelName = "vier-cvg"

// Marker intents injected into the dialogue engine for call lifecycle
// transitions the user never typed.
const (
	IntentOutboundSuccess = "/cvg_outbound_success"
	IntentOutboundFailure = "/cvg_outbound_failure"
	IntentInactivity      = "/cvg_inactivity"
	IntentTerminated      = "/cvg_terminated"
)

// Answer type names delivered by the Gateway on the answer callback.
const (
	AnswerTypeMultipleChoice = "MultipleChoice"
	AnswerTypeNumber         = "Number"
	AnswerTypeTimeout        = "Timeout"
)

// InboundMessage is the canonical event handed to the dialogue engine.
// Consumed exactly once; never persisted.
type InboundMessage struct {
	ID           uuid.UUID
	Text         string
	SenderID     string // encoded recipient identity, opaque to the engine
	InputChannel string
	Metadata     map[string]any
	Output       OutputChannel
}

// MessageHandler is the boundary to the dialogue engine: it accepts a
// canonical event and returns once processing and all synchronous side
// effects are done.
type MessageHandler func(ctx context.Context, msg *InboundMessage) error

// OutputChannel is what the dialogue engine uses to act on the call that
// produced an inbound message.
type OutputChannel interface {
	// SendText speaks text on the call (call/say).
	SendText(ctx context.Context, recipientID, text string) error
	// SendCustomJSON dispatches a custom-JSON mapping of operation name to
	// parameter body against the Gateway.
	SendCustomJSON(ctx context.Context, recipientID string, payload []byte) error
}

// NewInboundMessage builds a canonical event carrying the raw callback body
// as metadata under the cvg_body key.
func NewInboundMessage(text, senderID string, output OutputChannel, payload any) *InboundMessage {
	return &InboundMessage{
		ID:           uuid.New(),
		Text:         text,
		SenderID:     senderID,
		InputChannel: ChannelName,
		Metadata:     MakeMetadata(payload),
		Output:       output,
	}
}

// MakeMetadata wraps a raw callback payload the way the engine expects it.
func MakeMetadata(payload any) map[string]any {
	return map[string]any{"cvg_body": payload}
}
