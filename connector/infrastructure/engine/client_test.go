package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/VIER-CognitiveVoice/cvg-connect/core/config"
	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type recordedOutput struct {
	texts   []string
	customs []string
}

func (o *recordedOutput) SendText(_ context.Context, _ string, text string) error {
	o.texts = append(o.texts, text)
	return nil
}

func (o *recordedOutput) SendCustomJSON(_ context.Context, _ string, payload []byte) error {
	o.customs = append(o.customs, string(payload))
	return nil
}

func stubEngine(t *testing.T, responses string, capture *webhookRequest) {
	t.Helper()
	origClient := httpClient
	t.Cleanup(func() { httpClient = origClient })
	httpClient = &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if capture != nil && req.Body != nil {
				b, _ := io.ReadAll(req.Body)
				_ = json.Unmarshal(b, capture)
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader([]byte(responses))),
				Header:     make(http.Header),
			}, nil
		}),
	}
}

func TestHandle_PostsCanonicalEvent(t *testing.T) {
	var got webhookRequest
	stubEngine(t, `[]`, &got)

	handler := NewHandler(coreconfig.EngineConfig{URL: "https://engine.test/webhooks/rest/webhook"})
	output := &recordedOutput{}
	msg := domain.NewInboundMessage("hello there", "sender-abc", output, map[string]any{"callback": "message"})

	require.NoError(t, handler(context.Background(), msg))

	assert.Equal(t, "sender-abc", got.Sender)
	assert.Equal(t, "hello there", got.Message)
	require.NotNil(t, got.Metadata)
	assert.Contains(t, got.Metadata, "cvg_body")
}

func TestHandle_DispatchesTextAndCustom(t *testing.T) {
	stubEngine(t, `[
		{"recipient_id":"sender-abc","text":"plain reply"},
		{"recipient_id":"sender-abc","custom":{"cvg_call_say":{"text":"spoken"}}}
	]`, nil)

	handler := NewHandler(coreconfig.EngineConfig{URL: "https://engine.test/webhook"})
	output := &recordedOutput{}
	msg := domain.NewInboundMessage("hi", "sender-abc", output, nil)

	require.NoError(t, handler(context.Background(), msg))

	assert.Equal(t, []string{"plain reply"}, output.texts)
	require.Len(t, output.customs, 1)
	assert.JSONEq(t, `{"cvg_call_say":{"text":"spoken"}}`, output.customs[0])
}

func TestHandle_CustomSuppressesTextOnSameReply(t *testing.T) {
	stubEngine(t, `[
		{"recipient_id":"s","text":"duplicate","custom":{"cvg_call_drop":{}}}
	]`, nil)

	handler := NewHandler(coreconfig.EngineConfig{URL: "https://engine.test/webhook"})
	output := &recordedOutput{}
	msg := domain.NewInboundMessage("bye", "s", output, nil)

	require.NoError(t, handler(context.Background(), msg))

	assert.Empty(t, output.texts, "text alongside a custom payload must not be spoken twice")
	assert.Len(t, output.customs, 1)
}

func TestHandle_EngineErrorSurfaces(t *testing.T) {
	origClient := httpClient
	t.Cleanup(func() { httpClient = origClient })
	httpClient = &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(bytes.NewReader([]byte(`boom`))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	handler := NewHandler(coreconfig.EngineConfig{URL: "https://engine.test/webhook"})
	msg := domain.NewInboundMessage("hi", "s", &recordedOutput{}, nil)

	assert.Error(t, handler(context.Background(), msg))
}

func TestNewHandler_EmptyURLIsLogOnly(t *testing.T) {
	handler := NewHandler(coreconfig.EngineConfig{})
	msg := domain.NewInboundMessage("hi", "s", &recordedOutput{}, nil)
	assert.NoError(t, handler(context.Background(), msg))
}
