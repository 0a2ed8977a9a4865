package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation, for
// example one namespace per analysis project sharing a cache directory.
//
// Example usage:
//
//	projectKeyer := NewScopedKeyer(NewDefaultKeyer(), "project:crispr-2024:")
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

// TableKey generates a prefixed key for library table caching.
func (k *ScopedKeyer) TableKey(inputHash string, opts TableKeyOpts) string {
	return k.prefix + k.inner.TableKey(inputHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(layoutVersion string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutVersion, opts)
}
