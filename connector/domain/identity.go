package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// RecipientIdentity identifies one active dialog on the Cognitive Voice
// Gateway. It is built from a validated callback payload or decoded from an
// encoded recipient id, never persisted.
type RecipientIdentity struct {
	DialogID      string
	ProjectToken  string
	ResellerToken string
}

// EncodeRecipientID serializes the identity triple into the opaque string
// handed to the dialogue engine as sender/recipient id. Wire layout is a
// compact JSON array [dialogId, projectToken, resellerToken], base64-encoded.
// The engine must treat the result as atomic.
func EncodeRecipientID(resellerToken, projectToken, dialogID string) string {
	raw, _ := json.Marshal([3]string{dialogID, projectToken, resellerToken})
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeRecipientID is the inverse of EncodeRecipientID. Anything that does
// not decode to a JSON array of exactly three non-empty strings fails with
// ErrMalformedIdentity.
func DecodeRecipientID(encoded string) (RecipientIdentity, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return RecipientIdentity{}, fmt.Errorf("%w: invalid base64: %v", ErrMalformedIdentity, err)
	}

	var elements []string
	if err := json.Unmarshal(raw, &elements); err != nil {
		return RecipientIdentity{}, fmt.Errorf("%w: not a JSON string array", ErrMalformedIdentity)
	}
	if len(elements) != 3 {
		return RecipientIdentity{}, fmt.Errorf("%w: expected 3 elements, got %d", ErrMalformedIdentity, len(elements))
	}
	for _, el := range elements {
		if el == "" {
			return RecipientIdentity{}, fmt.Errorf("%w: empty identity element", ErrMalformedIdentity)
		}
	}

	return RecipientIdentity{
		DialogID:      elements[0],
		ProjectToken:  elements[1],
		ResellerToken: elements[2],
	}, nil
}
