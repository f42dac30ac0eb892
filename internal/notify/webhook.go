// Package notify posts search results to the outbound n8n webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/uncovercity/BistroHunter/internal/search"
)

const (
	// webhookTimeout bounds each delivery attempt.
	webhookTimeout = 10 * time.Second
)

// Notifier delivers a finished result set to an external consumer.
type Notifier interface {
	// NotifyResults is fire-and-forget: it returns immediately and delivery
	// failures are only logged.
	NotifyResults(city string, results []search.Restaurant)
}

// WebhookNotifier posts results as JSON to a configured URL.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	// afterSend is an optional hook called after every delivery attempt.
	// Used in tests for synchronization.
	afterSend func()
}

// NewWebhookNotifier creates a Notifier for the given URL. An empty URL
// yields a notifier that does nothing, so callers never need to branch.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: webhookTimeout},
	}
}

// NotifyResults posts the result list in the background. The goroutine uses
// its own context so a finished request doesn't cancel the delivery.
func (n *WebhookNotifier) NotifyResults(city string, results []search.Restaurant) {
	if n.url == "" {
		return
	}

	go func() {
		defer func() {
			if n.afterSend != nil {
				n.afterSend()
			}
		}()

		if err := n.send(city, results); err != nil {
			log.Printf("notify: webhook delivery failed: %v", err)
		}
	}()
}

func (n *WebhookNotifier) send(city string, results []search.Restaurant) error {
	payload := struct {
		City       string              `json:"city"`
		Resultados []search.Restaurant `json:"resultados"`
	}{City: city, Resultados: results}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
