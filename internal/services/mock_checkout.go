package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MockCheckoutBackend accepts every order without issuing ticket credentials.
// It is used when no checkout backend URL is configured.
type MockCheckoutBackend struct {
	mu          sync.Mutex
	submissions []CheckoutRequest
}

// NewMockCheckoutBackend creates a new mock checkout backend
func NewMockCheckoutBackend() *MockCheckoutBackend {
	return &MockCheckoutBackend{}
}

// Submit records the request and confirms it
func (m *MockCheckoutBackend) Submit(ctx context.Context, req *CheckoutRequest) (*CheckoutConfirmation, error) {
	m.mu.Lock()
	m.submissions = append(m.submissions, *req)
	m.mu.Unlock()

	ref := strings.ToUpper(strings.ReplaceAll(req.OrderID, "-", ""))
	if len(ref) > 12 {
		ref = ref[:12]
	}

	return &CheckoutConfirmation{
		Success:   true,
		Reference: "MOCK-" + ref,
		Message:   "Mock checkout successful",
	}, nil
}

// Submissions returns the requests seen so far
func (m *MockCheckoutBackend) Submissions() []CheckoutRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CheckoutRequest, len(m.submissions))
	copy(out, m.submissions)
	return out
}

// NewCheckoutBackend returns the HTTP backend when baseURL is set and the mock otherwise
func NewCheckoutBackend(baseURL, apiKey string, timeout time.Duration, logger *logrus.Entry) CheckoutBackend {
	if baseURL != "" {
		logger.WithField("url", baseURL).Info("Checkout backend: using remote API")
		return NewHTTPCheckoutBackend(baseURL, apiKey, timeout)
	}
	logger.Info("Checkout backend: using mock (no CHECKOUT_BACKEND_URL provided)")
	return NewMockCheckoutBackend()
}
