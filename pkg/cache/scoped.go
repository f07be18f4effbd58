package cache

// ScopedKeyer wraps a Keyer with a prefix so several tools or schema sets
// can share one backend without their keys colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "normalizr:")
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

// NormalizeKey generates a prefixed normalize key.
func (k *ScopedKeyer) NormalizeKey(schemaID, inputHash string) string {
	return k.prefix + k.inner.NormalizeKey(schemaID, inputHash)
}

// DenormalizeKey generates a prefixed denormalize key.
func (k *ScopedKeyer) DenormalizeKey(schemaID, inputHash string) string {
	return k.prefix + k.inner.DenormalizeKey(schemaID, inputHash)
}
