// Package store persists finished pipeline results for audit. The
// pipeline only depends on the sink interface; schema knowledge stays in
// the implementations.
package store

import (
	"context"
	"time"

	"github.com/previewforge/previewforge/pkg/quality"
)

// Record is the audit row for one chosen variant: plan metadata plus the
// quality report, never the pixels themselves.
type Record struct {
	RunID      string         `json:"runId" bson:"runId"`
	URL        string         `json:"url" bson:"url"`
	CreatedAt  time.Time      `json:"createdAt" bson:"createdAt"`
	VariantKey string         `json:"variantKey" bson:"variantKey"`
	Template   string         `json:"template" bson:"template"`
	Revision   int            `json:"revision" bson:"revision"`
	Palette    []string       `json:"palette" bson:"palette"`
	Degraded   bool           `json:"degraded" bson:"degraded"`
	Exhausted  bool           `json:"exhausted" bson:"exhausted"`
	ImageRef   string         `json:"imageRef,omitempty" bson:"imageRef,omitempty"`
	Report     quality.Report `json:"report" bson:"report"`
}

// Store is the result sink consumed by the pipeline.
type Store interface {
	SaveResult(ctx context.Context, rec Record) error
	Close(ctx context.Context) error
}
