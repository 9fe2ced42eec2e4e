package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VIER-CognitiveVoice/cvg-connect/connector/domain"
	coreconfig "github.com/VIER-CognitiveVoice/cvg-connect/core/config"
)

const maxResponseBytes = 4 << 20

var httpClient = &http.Client{}

// NewHandler builds the dialogue-engine boundary from configuration. With an
// engine URL it posts every event to the REST webhook and dispatches the
// replies; without one it degrades to the log-only handler.
func NewHandler(cfg coreconfig.EngineConfig) domain.MessageHandler {
	if strings.TrimSpace(cfg.URL) == "" {
		logrus.Warn("[ENGINE] No engine URL configured, events will only be logged")
		return LogOnlyHandler
	}

	c := &client{
		url:     strings.TrimSpace(cfg.URL),
		timeout: cfg.Timeout,
	}
	return c.Handle
}

type client struct {
	url     string
	timeout time.Duration
}

// Handle posts the event and speaks or executes every reply before
// returning, so callers can rely on the turn being fully applied.
func (c *client) Handle(ctx context.Context, msg *domain.InboundMessage) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	responses, err := c.post(ctx, webhookRequest{
		Sender:   msg.SenderID,
		Message:  msg.Text,
		Metadata: msg.Metadata,
	})
	if err != nil {
		return fmt.Errorf("engine webhook: %w", err)
	}

	logrus.Debugf("[ENGINE] Event %s produced %d responses", msg.ID, len(responses))

	var lastErr error
	for _, r := range responses {
		if len(r.Custom) > 0 {
			if err := msg.Output.SendCustomJSON(ctx, msg.SenderID, r.Custom); err != nil {
				logrus.WithError(err).Errorf("[ENGINE] Custom payload dispatch failed for event %s", msg.ID)
				lastErr = err
			}
			continue
		}
		if r.Text == "" {
			continue
		}
		if err := msg.Output.SendText(ctx, msg.SenderID, r.Text); err != nil {
			logrus.WithError(err).Errorf("[ENGINE] Text dispatch failed for event %s", msg.ID)
			lastErr = err
		}
	}
	return lastErr
}

func (c *client) post(ctx context.Context, body webhookRequest) ([]botResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(data))
	}

	var responses []botResponse
	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("decoding engine response: %w", err)
	}
	return responses, nil
}
