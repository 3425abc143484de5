package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	integrationapp "github.com/erp/ordersync/internal/application/integration"
)

// MaxImageBytes caps one downloaded image
const MaxImageBytes = 20 << 20

var _ integrationapp.ImageFetcher = (*HTTPImageFetcher)(nil)

// HTTPImageFetcher downloads images from the ERP's CDN
type HTTPImageFetcher struct {
	client *http.Client
}

// NewHTTPImageFetcher creates a fetcher; a nil client gets a 30s timeout client
func NewHTTPImageFetcher(client *http.Client) *HTTPImageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPImageFetcher{client: client}
}

// Fetch returns the body and content type of url
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
