package core

// FileHandle is the interned identity of a file, produced by the
// file-interning cache. Its representation is deliberately opaque here:
// the low-level file-item interning layer is treated as an external
// collaborator, so the core only ever compares handles for equality and
// never inspects their internals.
type FileHandle uint64

// DependencyInfo is the per-input-file record the dependency cache
// stores, keyed by output file.
type DependencyInfo struct {
	LastWriteTimeTicks int64
	Dependencies       []FileHandle
}

// Equal reports whether two DependencyInfo records are identical, used to
// verify that deserialize(serialize(info)) == info.
func (d *DependencyInfo) Equal(other *DependencyInfo) bool {
	if d.LastWriteTimeTicks != other.LastWriteTimeTicks {
		return false
	}
	if len(d.Dependencies) != len(other.Dependencies) {
		return false
	}
	for i, h := range d.Dependencies {
		if other.Dependencies[i] != h {
			return false
		}
	}
	return true
}
