// Package gateway implements the HTTP client towards the Cognitive Voice
// Gateway. Requests are either awaited by the caller (dialog operations that
// feed their response back into the conversation) or handed to the task pool
// and executed in dispatch order per dialog.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VIER-CognitiveVoice/cvg-connect/pkg/taskrunner"
)

const (
	httpTimeout = 15 * time.Second

	// Extra attempts after the first try on connection-level failures.
	maxRetries = 3

	maxBodyBytes = 1 << 20
)

var httpClient = &http.Client{Timeout: httpTimeout}

// NewHTTPClient builds the HTTP client shared by every Gateway request of one
// connector instance. An empty proxy keeps the default transport; a malformed
// proxy is logged and ignored rather than refusing to start.
func NewHTTPClient(proxy string) *http.Client {
	c := &http.Client{Timeout: httpTimeout}
	if proxy == "" {
		return c
	}

	proxyURL, err := url.Parse(proxy)
	if err != nil {
		logrus.WithError(err).Errorf("[GATEWAY] Invalid proxy %q, continuing without proxy", proxy)
		return c
	}
	c.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	logrus.Infof("[GATEWAY] Routing requests through proxy %s", proxyURL.Redacted())
	return c
}

// CallResult is the terminal outcome of one Gateway request. A zero
// StatusCode means the request never completed: every attempt failed at the
// transport level before a response arrived.
type CallResult struct {
	StatusCode int
	Body       []byte
}

// Completed reports whether any attempt produced an HTTP response.
func (r CallResult) Completed() bool {
	return r.StatusCode != 0
}

// Success reports whether the Gateway accepted the request.
func (r CallResult) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues operation requests against a single Gateway base URL, the
// callback URL delivered with the inbound event that triggered them.
type Client struct {
	baseURL string
	http    *http.Client
	tasks   *taskrunner.Pool
}

// NewClient builds a Gateway client on top of an existing HTTP client, so all
// clients of one connector instance share a single transport and connection
// pool. A nil httpc falls back to the package default.
func NewClient(baseURL string, httpc *http.Client, tasks *taskrunner.Pool) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpc,
		tasks:   tasks,
	}
}

func (c *Client) doer() *http.Client {
	if c.http != nil {
		return c.http
	}
	return httpClient
}

// Request sends body as JSON to baseURL+path and waits for the terminal
// result. Transport failures are retried up to maxRetries times; an HTTP
// response of any status ends the attempt chain. The body bytes must be
// valid JSON already, the client does not re-encode them. dialogID is only
// used for log correlation.
func (c *Client) Request(ctx context.Context, method, path string, body []byte, dialogID string) CallResult {
	return c.attempt(ctx, method, path, body, dialogID, maxRetries)
}

// RequestAsync schedules the request on the task pool keyed by dialog id, so
// requests for the same dialog reach the Gateway in the order they were
// scheduled. onResult (optional) runs with the terminal result, including the
// absent-status result after exhausted retries.
func (c *Client) RequestAsync(dialogID, method, path string, body []byte, onResult func(ctx context.Context, result CallResult)) {
	ok := c.tasks.Run(dialogID, func(ctx context.Context) error {
		result := c.Request(ctx, method, path, body, dialogID)
		if onResult != nil {
			onResult(ctx, result)
		}
		return nil
	})
	if !ok {
		logrus.Errorf("[GATEWAY] Could not schedule %s %s for dialog %s", method, path, dialogID)
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, dialogID string, retriesLeft int) CallResult {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		logrus.WithError(err).Errorf("[GATEWAY] Cannot build request %s %s (dialog %s)", method, path, dialogID)
		return CallResult{}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer().Do(req)
	if err != nil {
		if retriesLeft > 0 && ctx.Err() == nil {
			logrus.WithError(err).Warnf("[GATEWAY] %s %s failed for dialog %s, retrying (%d attempts left)", method, path, dialogID, retriesLeft)
			return c.attempt(ctx, method, path, body, dialogID, retriesLeft-1)
		}
		logrus.WithError(err).Errorf("[GATEWAY] %s %s failed for dialog %s, giving up", method, path, dialogID)
		return CallResult{}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return CallResult{StatusCode: resp.StatusCode}
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode >= 400 {
		logrus.Errorf("[GATEWAY] %s %s returned status=%d for dialog %s body=%s", method, path, resp.StatusCode, dialogID, string(data))
	}
	return CallResult{StatusCode: resp.StatusCode, Body: data}
}
