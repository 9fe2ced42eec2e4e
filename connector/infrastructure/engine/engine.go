// Package engine forwards canonical events to the dialogue engine and plays
// its replies back onto the originating call. The engine is reached over its
// REST webhook; when no engine URL is configured a log-only handler keeps
// the connector runnable.
package engine

import "encoding/json"

// webhookRequest is the body posted to the engine's REST webhook.
type webhookRequest struct {
	Sender   string         `json:"sender"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// botResponse is one reply item returned by the engine. A reply carrying a
// custom payload owns the whole turn: its operations decide what is spoken,
// so any text on the same item is not spoken separately.
type botResponse struct {
	RecipientID string          `json:"recipient_id"`
	Text        string          `json:"text,omitempty"`
	Custom      json.RawMessage `json:"custom,omitempty"`
}
