package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds push gateway configuration.
type Config struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BatchSize int           `mapstructure:"batch_size"`
}

// HTTPGateway sends batched pushes to the external gateway over HTTP.
type HTTPGateway struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPGateway creates the HTTP push gateway client.
func NewHTTPGateway(cfg Config) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

type pushPayload struct {
	RecipientIDs []string          `json:"recipient_ids"`
	Heading      string            `json:"heading"`
	Body         string            `json:"body"`
	IconURL      string            `json:"icon_url,omitempty"`
	DeepLinkURL  string            `json:"deep_link_url,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// SendBatch issues one outbound gateway call for up to the batch ceiling
// of recipients.
func (g *HTTPGateway) SendBatch(ctx context.Context, recipientIDs []string, n Notification) (BatchResult, error) {
	if len(recipientIDs) > DefaultBatchSize {
		return BatchResult{}, fmt.Errorf("batch of %d exceeds gateway ceiling %d", len(recipientIDs), DefaultBatchSize)
	}

	body, err := json.Marshal(pushPayload{
		RecipientIDs: recipientIDs,
		Heading:      n.Heading,
		Body:         n.Body,
		IconURL:      n.IconURL,
		DeepLinkURL:  n.DeepLinkURL,
		Data:         n.Data,
	})
	if err != nil {
		return BatchResult{}, fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return BatchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return BatchResult{}, fmt.Errorf("push gateway call: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	return BatchResult{
		Size:     len(recipientIDs),
		Ok:       resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:   resp.StatusCode,
		Response: string(respBody),
	}, nil
}
