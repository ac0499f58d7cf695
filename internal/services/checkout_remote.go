package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPCheckoutBackend submits orders to a remote checkout API
type HTTPCheckoutBackend struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPCheckoutBackend creates a new checkout backend client
func NewHTTPCheckoutBackend(baseURL, apiKey string, timeout time.Duration) *HTTPCheckoutBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPCheckoutBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Submit posts the order to /orders. Non-2xx answers are returned as errors.
func (b *HTTPCheckoutBackend) Submit(ctx context.Context, req *CheckoutRequest) (*CheckoutConfirmation, error) {
	var conf CheckoutConfirmation
	if err := b.post(ctx, "/orders", req, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (b *HTTPCheckoutBackend) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &BackendError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// BackendError is a non-2xx answer from a remote backend
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPCheckInClient reports validations to a remote check-in API
type HTTPCheckInClient struct {
	backend *HTTPCheckoutBackend
}

// NewHTTPCheckInClient creates a new check-in client
func NewHTTPCheckInClient(baseURL, apiKey string, timeout time.Duration) *HTTPCheckInClient {
	return &HTTPCheckInClient{backend: NewHTTPCheckoutBackend(baseURL, apiKey, timeout)}
}

type checkInResponse struct {
	Status CheckInStatus `json:"status"`
}

// CheckIn posts to /tickets/{id}/check-in. A 404 maps to CheckInNotFound.
func (c *HTTPCheckInClient) CheckIn(ctx context.Context, ticketID string) (CheckInStatus, error) {
	var resp checkInResponse
	err := c.backend.post(ctx, "/tickets/"+url.PathEscape(ticketID)+"/check-in", struct{}{}, &resp)
	if err != nil {
		if be, ok := err.(*BackendError); ok && be.StatusCode == http.StatusNotFound {
			return CheckInNotFound, nil
		}
		return "", err
	}

	switch resp.Status {
	case CheckInValidated, CheckInAlreadyValidated, CheckInNotFound:
		return resp.Status, nil
	default:
		return "", fmt.Errorf("unknown check-in status %q", resp.Status)
	}
}
