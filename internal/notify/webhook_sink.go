package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"game-deal-tracker/internal/domain"
)

// WebhookSink POSTs notification payloads to a configured endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

// WebhookPayload is the JSON body sent to the webhook.
type WebhookPayload struct {
	Title             string               `json:"title"`
	TitleID           string               `json:"title_id"`
	Store             domain.Store         `json:"store"`
	Price             float64              `json:"price"`
	DiscountPercent   float64              `json:"discount_percent"`
	ObservedAt        int64                `json:"observed_at"`
	URL               string               `json:"url,omitempty"`
	Trigger           Trigger              `json:"trigger"`
	Reason            domain.VerdictReason `json:"reason"`
	HistoricalMinimum *float64             `json:"historical_minimum,omitempty"`
	TargetPrice       *float64             `json:"target_price,omitempty"`
	Message           string               `json:"message"`
}

// NewWebhookSink creates a webhook sink for the given endpoint.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Notify delivers the event. Non-2xx responses are errors; the caller treats
// them as log-only.
func (s *WebhookSink) Notify(ctx context.Context, e *Event) error {
	payload := WebhookPayload{
		Title:             e.Title.DisplayName,
		TitleID:           e.Title.TitleID,
		Store:             e.Quote.Store,
		Price:             e.Quote.PriceAmount,
		DiscountPercent:   e.Quote.DiscountPercent,
		ObservedAt:        e.Quote.ObservedAt,
		URL:               e.Quote.URL,
		Trigger:           e.Trigger,
		Reason:            e.Verdict.Reason,
		HistoricalMinimum: e.Verdict.HistoricalMinimum,
		TargetPrice:       e.TargetPrice,
		Message:           FormatMessage(e),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() {
		// Drain so the keep-alive connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Sink = (*WebhookSink)(nil)
