package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/sigfuse/internal/core"
)

// Webhook POSTs each fused signal as JSON to a URL
type Webhook struct {
	url     string
	headers map[string]string
	minConf float64
	client  *http.Client
}

// NewWebhook creates a webhook sink. Signals below minConfidence or with a
// HOLD action are not sent.
func NewWebhook(url string, headers map[string]string, minConfidence float64) (*Webhook, error) {
	if url == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("webhook: url is required"))
	}
	return &Webhook{
		url:     url,
		headers: headers,
		minConf: minConfidence,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Publish(ctx context.Context, rec Record, ttl time.Duration) error {
	sig := rec.Signal
	if sig.Action == core.ActionHold || sig.Confidence < w.minConf {
		return nil
	}
	return w.post(ctx, payload(sig, ttl))
}

func payload(sig core.FusedSignal, ttl time.Duration) map[string]any {
	p := map[string]any{
		"type":         "signal",
		"id":           sig.ID,
		"symbol":       sig.Symbol,
		"action":       sig.Action,
		"confidence":   sig.Confidence,
		"score":        sig.Score,
		"reason":       sig.Reason,
		"components":   sig.Components,
		"generated_at": sig.GeneratedAt.Format(time.RFC3339),
	}
	if sig.Market.Available {
		p["price"] = sig.Market.Price
		p["change_pct"] = sig.Market.ChangePct
	}
	if ttl > 0 {
		p["expires_at"] = sig.GeneratedAt.Add(ttl).Format(time.RFC3339)
	}
	return p
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrSinkFailed, fmt.Errorf("webhook: request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return core.WrapError(core.ErrSinkFailed, fmt.Errorf("webhook: server returned %d", resp.StatusCode))
	}
	return nil
}
