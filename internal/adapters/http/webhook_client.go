package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
	"github.com/bft-labs/inboxship/pkg/log"
)

// Request headers set on every delivery.
const (
	HeaderFingerprint = "X-Inbox-Fingerprint"
	contentTypeJSON   = "application/json; charset=utf-8"
)

// maxReasonBytes caps how much of a rejecting response body ends up in the outcome.
const maxReasonBytes = 512

// WebhookClient implements ports.WebhookClient with a single POST per message.
type WebhookClient struct {
	client    ports.HTTPClient
	logger    log.Logger
	userAgent string
	settings  ports.Settings
}

var _ ports.WebhookClient = (*WebhookClient)(nil)

// NewWebhookClient creates a webhook client. settings may be nil; when set,
// the auth token is read from it on every delivery.
func NewWebhookClient(client ports.HTTPClient, logger log.Logger, userAgent string, settings ports.Settings) *WebhookClient {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &WebhookClient{
		client:    client,
		logger:    logger,
		userAgent: userAgent,
		settings:  settings,
	}
}

// Deliver posts msg.Fields as a JSON object to endpoint. It never retries and
// never returns an error; every result is classified into a domain.Outcome.
//
// The request is detached from ctx cancellation so an upload that has begun
// finishes or times out on the client's own deadline.
func (c *WebhookClient) Deliver(ctx context.Context, msg domain.Message, fp domain.Fingerprint, endpoint string) domain.Outcome {
	if err := domain.ValidateEndpoint(endpoint); err != nil {
		return domain.Outcome{Kind: domain.Rejected, Reason: err.Error(), Err: err}
	}

	payload, err := json.Marshal(msg.Fields)
	if err != nil {
		return domain.Outcome{Kind: domain.Rejected, Reason: fmt.Sprintf("encode payload: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.Outcome{Kind: domain.Rejected, Reason: fmt.Sprintf("create request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set(HeaderFingerprint, fp.String())
	if token := c.authToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Outcome{Kind: domain.TransportError, Reason: err.Error(), Err: err}
	}
	defer c.closeBody(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return domain.Outcome{Kind: domain.Delivered, StatusCode: resp.StatusCode}
	case http.StatusConflict:
		return domain.Outcome{Kind: domain.AlreadyExists, StatusCode: resp.StatusCode}
	}

	reason, readErr := readReason(resp.Body)
	if readErr != nil {
		return domain.Outcome{
			Kind:       domain.TransportError,
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("read response: %v", readErr),
			Err:        readErr,
		}
	}
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return domain.Outcome{Kind: domain.Rejected, StatusCode: resp.StatusCode, Reason: reason}
}

func (c *WebhookClient) authToken() string {
	if c.settings == nil {
		return ""
	}
	return c.settings.Get(ports.SettingAuthToken, "")
}

// closeBody drains and closes the response body. Failures are logged only.
func (c *WebhookClient) closeBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	if err := body.Close(); err != nil {
		c.logger.Warn("failed to close webhook response body", log.Err(err))
	}
}

func readReason(body io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(body, maxReasonBytes))
	if err != nil {
		return "", err
	}
	// Avoid cutting a multi-byte rune in half.
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return strings.TrimSpace(string(b)), nil
}
