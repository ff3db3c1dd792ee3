package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"

	"correction_pricing/internal/models"
)

// HTTPSource reads the catalog from another instance's GET /api/tariffs.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source for the instance at baseURL. timeout bounds
// each request.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchCatalog requests the public catalog. Client errors other than 429 and
// malformed bodies are permanent and not retried.
func (s *HTTPSource) FetchCatalog(ctx context.Context) ([]models.TariffRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tariffs", nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build catalog request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	var doc document
	if err := sonic.Unmarshal(body, &doc); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode catalog response: %w", err))
	}
	return activeOnly(doc.Tariffs), nil
}
