package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smallbiznis/pricewatch/internal/alert/domain"
	"github.com/smallbiznis/pricewatch/pkg/money"
)

// Webhook posts alerts as JSON to a URL.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Name() string { return "webhook" }

type webhookAlert struct {
	Name     string `json:"name"`
	Source   string `json:"source"`
	Price    string `json:"price"`
	MaxPrice string `json:"max_price"`
	URL      string `json:"url,omitempty"`
}

type webhookPayload struct {
	Alerts []webhookAlert `json:"alerts"`
}

func (w *Webhook) Notify(ctx context.Context, alerts []domain.TriggeredAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	payload := webhookPayload{Alerts: make([]webhookAlert, 0, len(alerts))}
	for _, a := range alerts {
		payload.Alerts = append(payload.Alerts, webhookAlert{
			Name:     a.Name,
			Source:   a.Source,
			Price:    money.Format(a.Price),
			MaxPrice: money.Format(a.MaxPrice),
			URL:      a.URL,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
