package ring

import (
	"cmp"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

// ErrPositionTaken is returned when inserting at an occupied position.
var ErrPositionTaken = errors.New("ring position already taken")

// Entry is one placement on the ring. Label is the id that was hashed to
// obtain Position: a server id or one of its virtual ids.
type Entry[T any] struct {
	Position uint32
	Label    uint32
	Value    T
}

// Ring keeps entries sorted by position. It is not safe for concurrent
// use; the owner serializes access.
type Ring[T any] struct {
	entries []Entry[T]
}

// New creates an empty ring.
func New[T any]() *Ring[T] {
	return &Ring[T]{entries: make([]Entry[T], 0)}
}

// Len returns the number of entries.
func (r *Ring[T]) Len() int {
	return len(r.entries)
}

// At returns the i-th entry in ascending position order.
func (r *Ring[T]) At(i int) Entry[T] {
	return r.entries[i]
}

// Entries returns a copy of all entries in ascending position order.
func (r *Ring[T]) Entries() []Entry[T] {
	return slices.Clone(r.entries)
}

func comparePosition[T any](e Entry[T], pos uint32) int {
	return cmp.Compare(e.Position, pos)
}

// Has reports whether an entry sits at pos.
func (r *Ring[T]) Has(pos uint32) bool {
	_, found := slices.BinarySearchFunc(r.entries, pos, comparePosition[T])
	return found
}

// Insert places e at its sorted position.
func (r *Ring[T]) Insert(e Entry[T]) error {
	idx, found := slices.BinarySearchFunc(r.entries, e.Position, comparePosition[T])
	if found {
		return fmt.Errorf("%w: %d", ErrPositionTaken, e.Position)
	}
	r.entries = slices.Insert(r.entries, idx, e)
	return nil
}

// Remove deletes the entry at pos.
func (r *Ring[T]) Remove(pos uint32) (Entry[T], bool) {
	idx, found := slices.BinarySearchFunc(r.entries, pos, comparePosition[T])
	if !found {
		return Entry[T]{}, false
	}
	e := r.entries[idx]
	r.entries = slices.Delete(r.entries, idx, idx+1)
	return e, true
}

// Search returns the index of the entry owning hash: the first entry
// with position >= hash, or the lowest entry when hash is above every
// position. It returns -1 on an empty ring.
func (r *Ring[T]) Search(hash uint32) int {
	if len(r.entries) == 0 {
		return -1
	}
	// Binary search for first entry with position >= hash
	idx, _ := slices.BinarySearchFunc(r.entries, hash, comparePosition[T])
	// Wrap around if hash is greater than all positions
	if idx >= len(r.entries) {
		idx = 0
	}
	return idx
}

// Owner returns the entry owning hash.
func (r *Ring[T]) Owner(hash uint32) (Entry[T], bool) {
	idx := r.Search(hash)
	if idx < 0 {
		return Entry[T]{}, false
	}
	return r.entries[idx], true
}

// Index returns the index of the entry at pos, or -1.
func (r *Ring[T]) Index(pos uint32) int {
	idx, found := slices.BinarySearchFunc(r.entries, pos, comparePosition[T])
	if !found {
		return -1
	}
	return idx
}

// Predecessor returns the entry just below index i, wrapping to the
// highest entry.
func (r *Ring[T]) Predecessor(i int) Entry[T] {
	return r.entries[(i-1+len(r.entries))%len(r.entries)]
}

// Successor returns the entry just above index i, wrapping to the lowest
// entry.
func (r *Ring[T]) Successor(i int) Entry[T] {
	return r.entries[(i+1)%len(r.entries)]
}

// OwnedRange returns the bounds (lo, hi] owned by the entry at index i.
// lo == hi means the entry is alone and owns the whole hash space.
func (r *Ring[T]) OwnedRange(i int) (lo, hi uint32) {
	return r.Predecessor(i).Position, r.entries[i].Position
}

// InRange reports whether hash lies in the circular range (lo, hi].
func InRange(hash, lo, hi uint32) bool {
	switch {
	case lo < hi:
		return hash > lo && hash <= hi
	case lo > hi:
		return hash > lo || hash <= hi
	default:
		return true
	}
}

// Sorted reports whether positions are strictly ascending.
func (r *Ring[T]) Sorted() bool {
	return slices.IsSortedFunc(r.entries, func(a, b Entry[T]) int {
		return cmp.Compare(a.Position, b.Position)
	}) && !r.hasDuplicates()
}

func (r *Ring[T]) hasDuplicates() bool {
	for i := 1; i < len(r.entries); i++ {
		if r.entries[i].Position == r.entries[i-1].Position {
			return true
		}
	}
	return false
}
