// Package cache provides content-addressed caching for the pipeline's three
// expensive stages: DNA extraction, composition planning, and artifact
// rendering.
//
// Backends: FileCache for CLI usage, RedisCache for multi-instance
// deployments, NullCache to disable caching. Keys are produced by a Keyer so
// multi-tenant deployments can namespace them with ScopedKeyer.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL; ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Stage TTLs. Extraction results age with page redesigns; plans and
// artifacts are pure functions of their inputs and can live longer.
const (
	TTLDNA      = 24 * time.Hour
	TTLPlan     = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
	TTLFetch    = time.Hour
)

// OrNull returns c, or a NullCache when c is nil, so callers never need a
// nil check.
func OrNull(c Cache) Cache {
	if c == nil {
		return NewNullCache()
	}
	return c
}

// DNAKeyOpts parameterizes extraction cache keys.
type DNAKeyOpts struct {
	Model         string
	HasScreenshot bool
}

// PlanKeyOpts parameterizes composition-plan cache keys.
type PlanKeyOpts struct {
	Template  string
	Treatment string
	Emphasis  string
	Width     int
	Height    int
}

// ArtifactKeyOpts parameterizes rendered-artifact cache keys.
type ArtifactKeyOpts struct {
	Format   string
	Platform string
	Scale    float64
}

// Keyer generates cache keys for each pipeline stage.
type Keyer interface {
	// DNAKey keys an extraction result by source-content hash and options.
	DNAKey(contentHash string, opts DNAKeyOpts) string

	// PlanKey keys a composition plan by DNA hash and options.
	PlanKey(dnaHash string, opts PlanKeyOpts) string

	// ArtifactKey keys a rendered artifact by plan hash and options.
	ArtifactKey(planHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// DNAKey generates a key for an extraction result.
func (k *DefaultKeyer) DNAKey(contentHash string, opts DNAKeyOpts) string {
	return hashKey("dna", contentHash, opts)
}

// PlanKey generates a key for a composition plan.
func (k *DefaultKeyer) PlanKey(dnaHash string, opts PlanKeyOpts) string {
	return hashKey("plan", dnaHash, opts)
}

// ArtifactKey generates a key for a rendered artifact.
func (k *DefaultKeyer) ArtifactKey(planHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", planHash, opts)
}

// FetchKey keys a cached HTTP response by URL.
func FetchKey(url string) string {
	return hashKey("fetch", url)
}
