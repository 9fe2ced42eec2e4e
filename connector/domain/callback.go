package domain

import "encoding/json"

// ProjectContext carries the tenant part of every Gateway callback.
type ProjectContext struct {
	ResellerToken string `json:"resellerToken"`
	ProjectToken  string `json:"projectToken"`
}

// AnswerType is the classified answer of a prompt (answer callback).
type AnswerType struct {
	Name  string      `json:"name"`
	ID    string      `json:"id"`
	Value json.Number `json:"value"`
}

// CallbackRequest is the common shape of all Gateway webhook bodies. Only
// the fields the connector consumes are mapped; the raw body travels
// separately as metadata.
type CallbackRequest struct {
	DialogID       string          `json:"dialogId"`
	Callback       string          `json:"callback"`
	ProjectContext *ProjectContext `json:"projectContext"`
	Text           string          `json:"text"`
	Type           *AnswerType     `json:"type"`
	Status         string          `json:"status"`
	RecordingID    string          `json:"id"`
}

// Identity builds the recipient identity from a validated callback.
func (r *CallbackRequest) Identity() RecipientIdentity {
	identity := RecipientIdentity{DialogID: r.DialogID}
	if r.ProjectContext != nil {
		identity.ProjectToken = r.ProjectContext.ProjectToken
		identity.ResellerToken = r.ProjectContext.ResellerToken
	}
	return identity
}
