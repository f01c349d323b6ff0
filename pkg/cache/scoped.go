package cache

// ScopedKeyer wraps a Keyer with a prefix so several tenants can share one
// backend. The API server scopes its keys this way.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "tenant:metro:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer uses
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SchematicKey returns the prefixed schematic key.
func (k *ScopedKeyer) SchematicKey(networkHash string, opts SchematicKeyOpts) string {
	return k.prefix + k.inner.SchematicKey(networkHash, opts)
}

// ArtifactKey returns the prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(networkHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(networkHash, opts)
}
