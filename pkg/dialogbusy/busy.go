// Package dialogbusy tracks which dialogs currently have a callback being
// processed by the dialogue engine. The set is process-local: busy tracking
// is only correct while a single instance owns a given dialog id for the
// lifetime of the call.
package dialogbusy

import (
	"strings"
	"sync"
)

var (
	mu     sync.Mutex
	active = map[string]struct{}{}
)

// TryAcquire marks the dialog as busy. It returns false when the dialog is
// already being processed. Empty ids are never tracked.
func TryAcquire(dialogID string) bool {
	dialogID = strings.TrimSpace(dialogID)
	if dialogID == "" {
		return true
	}

	mu.Lock()
	defer mu.Unlock()
	if _, busy := active[dialogID]; busy {
		return false
	}
	active[dialogID] = struct{}{}
	return true
}

// Release removes the dialog from the busy set. Releasing an id that is not
// tracked is a no-op, so callers can defer it unconditionally.
func Release(dialogID string) {
	dialogID = strings.TrimSpace(dialogID)
	if dialogID == "" {
		return
	}

	mu.Lock()
	delete(active, dialogID)
	mu.Unlock()
}

// IsBusy reports whether the dialog currently holds the busy mark.
func IsBusy(dialogID string) bool {
	dialogID = strings.TrimSpace(dialogID)
	if dialogID == "" {
		return false
	}

	mu.Lock()
	_, busy := active[dialogID]
	mu.Unlock()
	return busy
}

// Count returns the number of dialogs currently marked busy.
func Count() int {
	mu.Lock()
	n := len(active)
	mu.Unlock()
	return n
}
