// Package application wires the webhook side and the engine side of the
// connector together: inbound callbacks become canonical events, engine
// output becomes Gateway operations.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
	"github.com/VIER-CognitiveVoice/cvg-connect/connector/infrastructure/gateway"
	coreconfig "github.com/VIER-CognitiveVoice/cvg-connect/core/config"
	"github.com/VIER-CognitiveVoice/cvg-connect/pkg/taskrunner"
)

// Gateway body fields inspected or injected by the dispatcher.
const (
	fieldDialogID = "dialogId"
	fieldStatus   = "status"

	// ignoreFlag suppresses an entire custom payload: the engine recorded the
	// operations in its own history without wanting them re-sent.
	ignoreFlag = "ignore"

	statusOutboundSuccess = "Success"
	statusOutboundFailure = "Failure"
)

// OutputFactory builds one OutputChannel per accepted callback, bound to the
// callback base URL the Gateway delivered with it.
type OutputFactory struct {
	httpc          *http.Client
	operationDelay time.Duration
	pool           *taskrunner.Pool
	journal        domain.JournalRepository
	onMessage      domain.MessageHandler
}

// NewOutputFactory creates the factory. journal may be nil; operation results
// that need to loop back into the engine require SetMessageHandler before the
// first callback is served.
func NewOutputFactory(cfg coreconfig.CVGConfig, pool *taskrunner.Pool, journal domain.JournalRepository) *OutputFactory {
	return &OutputFactory{
		// One transport for the whole instance; per-callback clients must not
		// reconfigure shared state while other requests are in flight.
		httpc:          gateway.NewHTTPClient(cfg.Proxy),
		operationDelay: cfg.OperationDelay,
		pool:           pool,
		journal:        journal,
	}
}

// SetMessageHandler installs the engine boundary used for follow-up events
// (outbound call results). Separate from the constructor because the engine
// handler and the factory reference each other.
func (f *OutputFactory) SetMessageHandler(h domain.MessageHandler) {
	f.onMessage = h
}

// ForCallback returns the output channel for one dialog turn.
func (f *OutputFactory) ForCallback(callbackURL string) domain.OutputChannel {
	return &cvgOutput{
		factory: f,
		client:  gateway.NewClient(callbackURL, f.httpc, f.pool),
	}
}

type cvgOutput struct {
	factory *OutputFactory
	client  *gateway.Client
}

// SendText speaks plain engine text on the call via call/say.
func (o *cvgOutput) SendText(ctx context.Context, recipientID, text string) error {
	identity, err := domain.DecodeRecipientID(recipientID)
	if err != nil {
		return fmt.Errorf("cannot speak text: %w", err)
	}

	logrus.Infof("[CVG] Saying on dialog %s: %s", identity.DialogID, text)

	body, _ := json.Marshal(map[string]string{fieldDialogID: identity.DialogID, "text": text})
	o.journalAppend(ctx, identity.DialogID, "call_say", body)
	o.client.RequestAsync(identity.DialogID, http.MethodPost, "/call/say", body, nil)
	return nil
}

// SendCustomJSON dispatches every operation entry of the payload in document
// order. Entries without the operation prefix are skipped, a truthy ignore
// flag drops the whole payload, and a malformed recipient id aborts it.
func (o *cvgOutput) SendCustomJSON(ctx context.Context, recipientID string, payload []byte) error {
	parsed := gjson.ParseBytes(payload)
	if parsed.Get(ignoreFlag).Bool() {
		logrus.Infof("[CVG] Custom payload flagged %s, dropping all operations", ignoreFlag)
		return nil
	}

	identity, err := domain.DecodeRecipientID(recipientID)
	if err != nil {
		return fmt.Errorf("cannot dispatch custom payload: %w", err)
	}

	parsed.ForEach(func(key, value gjson.Result) bool {
		op, ok := domain.ParseOperation(key.String())
		if !ok {
			return true
		}
		if o.factory.operationDelay > 0 {
			time.Sleep(o.factory.operationDelay)
		}
		o.execute(ctx, op, value, identity, recipientID)
		logrus.Infof("[CVG] Ran operation %s for dialog %s", op.Name, identity.DialogID)
		return true
	})
	return nil
}

// execute runs one operation. Failures never abort the remaining entries of
// the payload.
func (o *cvgOutput) execute(ctx context.Context, op domain.Operation, body gjson.Result, identity domain.RecipientIdentity, recipientID string) {
	switch op.Class {
	case domain.OperationClassCall:
		o.executeCall(ctx, op, body, identity, recipientID)
	case domain.OperationClassDialog:
		o.executeDialog(ctx, op, body, identity)
	default:
		logrus.Errorf("[CVG] Operation %s not found/not implemented, skipping", op.Name)
	}
}

func (o *cvgOutput) executeCall(ctx context.Context, op domain.Operation, body gjson.Result, identity domain.RecipientIdentity, recipientID string) {
	reqBody := injectDialogID(body, identity.DialogID)
	o.journalAppend(ctx, identity.DialogID, op.Name, reqBody)
	o.client.RequestAsync(identity.DialogID, http.MethodPost, op.Path(), reqBody, o.resultHandler(op, recipientID, identity.DialogID))
}

func (o *cvgOutput) executeDialog(ctx context.Context, op domain.Operation, body gjson.Result, identity domain.RecipientIdentity) {
	base := "/dialog/" + url.PathEscape(identity.ResellerToken) + "/" + url.PathEscape(identity.DialogID)

	switch op.Name {
	case domain.OpDialogDelete:
		o.journalAppend(ctx, identity.DialogID, op.Name, nil)
		if result := o.client.Request(ctx, http.MethodDelete, base, nil, identity.DialogID); !result.Success() {
			logrus.Errorf("[CVG] dialog_delete for dialog %s ended with status=%d", identity.DialogID, result.StatusCode)
		}
	case domain.OpDialogData:
		reqBody := []byte("{}")
		if body.IsObject() {
			reqBody = []byte(body.Raw)
		}
		o.journalAppend(ctx, identity.DialogID, op.Name, reqBody)
		if result := o.client.Request(ctx, http.MethodPost, base+"/data", reqBody, identity.DialogID); !result.Success() {
			logrus.Errorf("[CVG] dialog_data for dialog %s ended with status=%d", identity.DialogID, result.StatusCode)
		}
	default:
		logrus.Errorf("[CVG] Dialog operation %s not implemented, skipping", op.Name)
	}
}

// resultHandler builds the completion callback for operations whose outcome
// feeds back into the conversation. Fire-and-forget operations get nil.
func (o *cvgOutput) resultHandler(op domain.Operation, recipientID, dialogID string) func(context.Context, gateway.CallResult) {
	switch op.Result {
	case domain.ResultOutboundCall:
		// The marker only reflects the telephony outcome; a failed Gateway
		// call emits nothing.
		return func(ctx context.Context, result gateway.CallResult) {
			if !result.Success() {
				logrus.Errorf("[CVG] %s request for dialog %s failed (status=%d), no result event", op.Name, dialogID, result.StatusCode)
				return
			}
			switch status := gjson.GetBytes(result.Body, fieldStatus).String(); status {
			case statusOutboundSuccess:
				o.emitMarker(ctx, domain.IntentOutboundSuccess, recipientID, dialogID, op.Name, result.Body)
			case statusOutboundFailure:
				o.emitMarker(ctx, domain.IntentOutboundFailure, recipientID, dialogID, op.Name, result.Body)
			default:
				logrus.Errorf("[CVG] Invalid outbound call result status %q for dialog %s", status, dialogID)
			}
		}
	case domain.ResultRefer:
		return func(ctx context.Context, result gateway.CallResult) {
			if result.Success() {
				logrus.Infof("[CVG] %s accepted for dialog %s", op.Name, dialogID)
				return
			}
			o.emitMarker(ctx, domain.IntentOutboundFailure, recipientID, dialogID, op.Name, result.Body)
		}
	default:
		return nil
	}
}

// emitMarker loops an operation result back into the engine as a new
// canonical event on the same path every webhook callback takes.
func (o *cvgOutput) emitMarker(ctx context.Context, intent, recipientID, dialogID, opName string, body []byte) {
	o.journalAppend(ctx, dialogID, opName+"_result", body)

	if o.factory.onMessage == nil {
		logrus.Warnf("[CVG] No message handler installed, dropping %s for dialog %s", intent, dialogID)
		return
	}

	var payload any
	if len(body) > 0 {
		_ = json.Unmarshal(body, &payload)
	}

	msg := domain.NewInboundMessage(intent, recipientID, o, payload)
	logrus.Infof("[CVG] Emitting %s for dialog %s", intent, dialogID)
	if err := o.factory.onMessage(ctx, msg); err != nil {
		logrus.WithError(err).Errorf("[CVG] Engine rejected %s for dialog %s", intent, dialogID)
	}
}

func (o *cvgOutput) journalAppend(ctx context.Context, dialogID, kind string, payload []byte) {
	if o.factory.journal == nil {
		return
	}
	event := &domain.DialogEvent{
		DialogID:  dialogID,
		Direction: domain.DirectionOutbound,
		Kind:      kind,
		Payload:   string(payload),
	}
	if err := o.factory.journal.Append(ctx, event); err != nil {
		logrus.WithError(err).Warnf("[JOURNAL] Could not record %s for dialog %s", kind, dialogID)
	}
}

// injectDialogID clones the operation body and sets dialogId only when the
// engine did not supply one; an explicit value always wins.
func injectDialogID(body gjson.Result, dialogID string) []byte {
	params := map[string]any{}
	if body.IsObject() {
		_ = json.Unmarshal([]byte(body.Raw), &params)
	}
	if _, ok := params[fieldDialogID]; !ok {
		params[fieldDialogID] = dialogID
	}
	b, _ := json.Marshal(params)
	return b
}
