package index

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitmap is a set of local document ids backed by a 32-bit Roaring Bitmap.
// It wraps the official roaring implementation.
type Bitmap struct {
	rb *roaring.Bitmap
}

// NewBitmap creates a new empty bitmap.
func NewBitmap() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// Add adds a local id to the bitmap.
func (b *Bitmap) Add(id uint32) {
	b.rb.Add(id)
}

// Remove removes a local id from the bitmap.
func (b *Bitmap) Remove(id uint32) {
	b.rb.Remove(id)
}

// Contains checks if a local id is in the bitmap.
func (b *Bitmap) Contains(id uint32) bool {
	return b.rb.Contains(id)
}

// IsEmpty returns true if the bitmap is empty.
func (b *Bitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// Cardinality returns the number of ids in the bitmap.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// Clone returns a deep copy of the bitmap.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// Iterator returns an iterator over the bitmap in ascending id order.
func (b *Bitmap) Iterator() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := b.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// And computes the intersection of two bitmaps in place.
func (b *Bitmap) And(other *Bitmap) {
	b.rb.And(other.rb)
}

// Or computes the union of two bitmaps in place.
func (b *Bitmap) Or(other *Bitmap) {
	b.rb.Or(other.rb)
}

// Clear removes all ids from the bitmap.
func (b *Bitmap) Clear() {
	b.rb.Clear()
}
