package domain

import "strings"

// OperationPrefix marks entries of a custom-JSON payload that are Gateway
// operations; anything without it is ignored so mixed payloads stay valid.
const OperationPrefix = "cvg_"

// Dialog-level operation names (prefix already stripped).
const (
	OpDialogDelete = "dialog_delete"
	OpDialogData   = "dialog_data"
)

// Call-control operations with special completion handling.
const (
	OpCallBridge  = "call_bridge"
	OpCallForward = "call_forward"
	OpCallRefer   = "call_refer"
)

// OperationClass separates call control from dialog management.
type OperationClass int

const (
	OperationClassUnknown OperationClass = iota
	OperationClassCall
	OperationClassDialog
)

// ResultHandling describes what the completion of an asynchronous call
// operation does.
type ResultHandling int

const (
	// ResultNone: fire and forget.
	ResultNone ResultHandling = iota
	// ResultOutboundCall: on HTTP success the body's status field decides
	// between the outbound-success and outbound-failure marker events.
	ResultOutboundCall
	// ResultRefer: only an HTTP failure produces the failure marker event.
	ResultRefer
)

// Operation is one parsed entry of a custom-JSON payload.
type Operation struct {
	Name   string // prefix-stripped, e.g. "call_say"
	Class  OperationClass
	Result ResultHandling
}

// resultTable is the closed rule set for completion handling; every call
// operation not listed here is plain fire-and-forget.
var resultTable = map[string]ResultHandling{
	OpCallBridge:  ResultOutboundCall,
	OpCallForward: ResultOutboundCall,
	OpCallRefer:   ResultRefer,
}

// ParseOperation resolves a payload key into an Operation. The second return
// is false when the key does not carry the operation prefix and the entry
// must be skipped silently.
func ParseOperation(key string) (Operation, bool) {
	if !strings.HasPrefix(key, OperationPrefix) {
		return Operation{}, false
	}
	name := strings.TrimPrefix(key, OperationPrefix)

	op := Operation{Name: name, Result: resultTable[name]}
	switch {
	case strings.HasPrefix(name, "call_"):
		op.Class = OperationClassCall
	case strings.HasPrefix(name, "dialog_"):
		op.Class = OperationClassDialog
	default:
		op.Class = OperationClassUnknown
	}
	return op, true
}

// Path derives the Gateway REST path from the operation name:
// call_recording_start -> /call/recording/start.
func (op Operation) Path() string {
	return "/" + strings.ReplaceAll(op.Name, "_", "/")
}
