// Package integration holds the use cases that move orders, stock and catalog
// data between the local store and the ERP.
package integration

import (
	"context"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
)

// CredentialVault seals ERP tokens and masks them for display
type CredentialVault interface {
	integration.SecretCipher
	Mask(token string) string
}

// ImageStore is the object storage that receives mirrored product images
type ImageStore interface {
	// Key returns the object key for the index-th image of a product
	Key(productID string, index int, sourceURL string) string
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ImageFetcher downloads an image from the ERP's image host
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// RunRecorder receives sync run and job measurements
type RunRecorder interface {
	RecordSyncRun(ctx context.Context, syncType, status string, d time.Duration, processed, skipped int)
	RecordJob(ctx context.Context, jobType, outcome string)
}

type noopRunRecorder struct{}

func (noopRunRecorder) RecordSyncRun(context.Context, string, string, time.Duration, int, int) {}
func (noopRunRecorder) RecordJob(context.Context, string, string)                              {}

// NoopRunRecorder discards measurements
func NoopRunRecorder() RunRecorder { return noopRunRecorder{} }
