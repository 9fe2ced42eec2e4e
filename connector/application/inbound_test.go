package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
	coreconfig "github.com/VIER-CognitiveVoice/cvg-connect/core/config"
	"github.com/VIER-CognitiveVoice/cvg-connect/pkg/dialogbusy"
	"github.com/VIER-CognitiveVoice/cvg-connect/pkg/taskrunner"
)

type handlerRecorder struct {
	mu     sync.Mutex
	msgs   []*domain.InboundMessage
	gate   chan struct{}
	panics bool
}

func (h *handlerRecorder) handle(_ context.Context, msg *domain.InboundMessage) error {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	gate := h.gate
	h.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if h.panics {
		panic("engine exploded")
	}
	return nil
}

func (h *handlerRecorder) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func (h *handlerRecorder) last() *domain.InboundMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.msgs) == 0 {
		return nil
	}
	return h.msgs[len(h.msgs)-1]
}

func newTestService(t *testing.T, cfg coreconfig.CVGConfig, handler domain.MessageHandler) (*InboundService, *taskrunner.Pool) {
	t.Helper()
	pool := taskrunner.NewPool(2, 32)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	outputs := NewOutputFactory(cfg, pool, nil)
	outputs.SetMessageHandler(handler)
	return NewInboundService(cfg, outputs, nil, pool, handler), pool
}

func testCallback(dialogID string) *domain.CallbackRequest {
	return &domain.CallbackRequest{
		DialogID: dialogID,
		Callback: "https://cvg.test/v1",
		ProjectContext: &domain.ProjectContext{
			ResellerToken: "rt-1",
			ProjectToken:  "pt-1",
		},
	}
}

func TestProcess_StripsTrailingPeriod(t *testing.T) {
	recorder := &handlerRecorder{}
	svc, _ := newTestService(t, coreconfig.CVGConfig{BlockingEndpoints: true}, recorder.handle)

	svc.Process(context.Background(), &Inbound{
		Kind:     "message",
		Text:     "I want pizza.",
		Callback: testCallback("d1"),
		RawBody:  []byte(`{"dialogId":"d1","text":"I want pizza."}`),
	})

	require.Equal(t, 1, recorder.count())
	assert.Equal(t, "I want pizza", recorder.last().Text)
}

func TestProcess_SenderIDRoundTrips(t *testing.T) {
	recorder := &handlerRecorder{}
	svc, _ := newTestService(t, coreconfig.CVGConfig{BlockingEndpoints: true}, recorder.handle)

	svc.Process(context.Background(), &Inbound{Kind: "message", Text: "hi", Callback: testCallback("d42")})

	require.Equal(t, 1, recorder.count())
	identity, err := domain.DecodeRecipientID(recorder.last().SenderID)
	require.NoError(t, err)
	assert.Equal(t, "d42", identity.DialogID)
	assert.Equal(t, "pt-1", identity.ProjectToken)
	assert.Equal(t, "rt-1", identity.ResellerToken)
}

func TestProcess_MetadataCarriesRawBody(t *testing.T) {
	recorder := &handlerRecorder{}
	svc, _ := newTestService(t, coreconfig.CVGConfig{BlockingEndpoints: true}, recorder.handle)

	svc.Process(context.Background(), &Inbound{
		Kind:     "message",
		Text:     "hi",
		Callback: testCallback("d1"),
		RawBody:  []byte(`{"dialogId":"d1","extra":"field"}`),
	})

	require.Equal(t, 1, recorder.count())
	body, ok := recorder.last().Metadata["cvg_body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "field", body["extra"])
}

func TestProcess_PanicInEngineIsAbsorbed(t *testing.T) {
	recorder := &handlerRecorder{panics: true}
	svc, _ := newTestService(t, coreconfig.CVGConfig{BlockingEndpoints: true, IgnoreMessagesWhenBusy: true}, recorder.handle)

	assert.NotPanics(t, func() {
		svc.Process(context.Background(), &Inbound{Kind: "message", Text: "boom", Callback: testCallback("d-panic")})
	})
	assert.False(t, dialogbusy.IsBusy("d-panic"), "busy slot must be released after a panic")
}

func TestProcess_BusyDialogIsDropped(t *testing.T) {
	recorder := &handlerRecorder{gate: make(chan struct{})}
	cfg := coreconfig.CVGConfig{BlockingEndpoints: true, IgnoreMessagesWhenBusy: true}
	svc, _ := newTestService(t, cfg, recorder.handle)

	first := make(chan struct{})
	go func() {
		svc.Process(context.Background(), &Inbound{Kind: "message", Text: "first", Callback: testCallback("d-busy")})
		close(first)
	}()

	require.Eventually(t, func() bool { return dialogbusy.IsBusy("d-busy") }, time.Second, time.Millisecond)

	// Second callback while the first is still inside the engine.
	svc.Process(context.Background(), &Inbound{Kind: "message", Text: "second", Callback: testCallback("d-busy")})
	assert.Equal(t, 1, recorder.count(), "busy dialog must be dropped, engine invoked once")

	// A closed gate no longer blocks later invocations.
	close(recorder.gate)
	<-first

	// After completion the dialog accepts messages again.
	svc.Process(context.Background(), &Inbound{Kind: "message", Text: "third", Callback: testCallback("d-busy")})
	assert.Equal(t, 2, recorder.count())
}

func TestProcess_DeferredModeDoesNotBlock(t *testing.T) {
	recorder := &handlerRecorder{gate: make(chan struct{})}
	svc, _ := newTestService(t, coreconfig.CVGConfig{BlockingEndpoints: false}, recorder.handle)

	done := make(chan struct{})
	go func() {
		svc.Process(context.Background(), &Inbound{Kind: "message", Text: "deferred", Callback: testCallback("d-defer")})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Process must return before the engine finishes in deferred mode")
	}

	close(recorder.gate)
	require.Eventually(t, func() bool { return recorder.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestProcess_ForceBlockingOverridesDeferral(t *testing.T) {
	recorder := &handlerRecorder{}
	svc, _ := newTestService(t, coreconfig.CVGConfig{BlockingEndpoints: false}, recorder.handle)

	svc.Process(context.Background(), &Inbound{
		Kind:          "session",
		Text:          "/cvg_session",
		Callback:      testCallback("d-session"),
		ForceBlocking: true,
	})

	// No Eventually here: with ForceBlocking the engine ran before Process
	// returned.
	assert.Equal(t, 1, recorder.count())
}
