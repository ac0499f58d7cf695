package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ticket-marketplace/internal/models"
)

// RemoteCatalogProvider fetches events from an HTTP catalog endpoint
type RemoteCatalogProvider struct {
	url    string
	apiKey string
	client *http.Client
}

// NewRemoteCatalogProvider creates a provider for url
func NewRemoteCatalogProvider(url, apiKey string, timeout time.Duration) *RemoteCatalogProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteCatalogProvider{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// LoadEvents fetches the catalog. The endpoint may answer with either a bare
// array of events or an object with an "events" field.
func (p *RemoteCatalogProvider) LoadEvents(ctx context.Context) ([]models.EventPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog endpoint returned status %d", resp.StatusCode)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []models.EventPayload
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("failed to decode catalog: %w", err)
		}
		return events, nil
	}

	var doc catalogDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return doc.Events, nil
}
