package reachability

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// BitSet tracks visited node indices in a Roaring bitmap.
type BitSet struct {
	bitmap *roaring.Bitmap
	mu     sync.RWMutex
}

// NewBitSet creates an empty set.
func NewBitSet() *BitSet {
	return &BitSet{bitmap: roaring.New()}
}

// Set marks index.
func (b *BitSet) Set(index uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bitmap.Add(index)
}

// TrySet marks index and reports whether it was previously unset.
func (b *BitSet) TrySet(index uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bitmap.CheckedAdd(index)
}

// IsSet checks if index is marked.
func (b *BitSet) IsSet(index uint32) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bitmap.Contains(index)
}

// SetBatch marks multiple indices.
func (b *BitSet) SetBatch(indices []uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bitmap.AddMany(indices)
}

// CountSet returns the number of marked indices.
func (b *BitSet) CountSet() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bitmap.GetCardinality()
}
