package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// Different organizations rendering previews for the same URL must not see
// each other's cached artifacts (brand colors differ even when content
// hashes collide).
//
// Example usage:
//
//	// Organization-specific keys
//	orgKeyer := NewScopedKeyer(NewDefaultKeyer(), "org:abc123:")
//
//	// Global keys for anonymous CLI usage
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DNAKey generates a prefixed key for an extraction result.
func (k *ScopedKeyer) DNAKey(contentHash string, opts DNAKeyOpts) string {
	return k.prefix + k.inner.DNAKey(contentHash, opts)
}

// PlanKey generates a prefixed key for a composition plan.
func (k *ScopedKeyer) PlanKey(dnaHash string, opts PlanKeyOpts) string {
	return k.prefix + k.inner.PlanKey(dnaHash, opts)
}

// ArtifactKey generates a prefixed key for a rendered artifact.
func (k *ScopedKeyer) ArtifactKey(planHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(planHash, opts)
}
