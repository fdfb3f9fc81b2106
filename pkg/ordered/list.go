// Package ordered provides a slice-backed list kept sorted by a comparator.
package ordered

import (
	"iter"
	"slices"
	"sort"
)

// List keeps its elements sorted by cmp. Elements that compare equal keep
// their insertion order. free, when set, releases an element on Delete and
// Clear.
type List[T any] struct {
	items []T
	cmp   func(a, b T) int
	free  func(T)
}

// New creates an empty list
func New[T any](cmp func(a, b T) int, free func(T)) *List[T] {
	return &List[T]{
		items: make([]T, 0),
		cmp:   cmp,
		free:  free,
	}
}

// Insert places v after every element that sorts before or equal to it and
// returns its index
func (l *List[T]) Insert(v T) int {
	i := sort.Search(len(l.items), func(i int) bool {
		return l.cmp(l.items[i], v) > 0
	})
	l.items = slices.Insert(l.items, i, v)
	return i
}

// Len returns the number of elements
func (l *List[T]) Len() int {
	return len(l.items)
}

// At returns the element at index i
func (l *List[T]) At(i int) T {
	return l.items[i]
}

// IndexFunc returns the index of the first element satisfying f, or -1
func (l *List[T]) IndexFunc(f func(T) bool) int {
	return slices.IndexFunc(l.items, f)
}

// Remove takes the element at index i out of the list without releasing it
func (l *List[T]) Remove(i int) T {
	v := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	return v
}

// Delete removes and releases the element at index i
func (l *List[T]) Delete(i int) {
	v := l.Remove(i)
	if l.free != nil {
		l.free(v)
	}
}

// Fix restores ordering after element keys changed in place
func (l *List[T]) Fix() {
	slices.SortStableFunc(l.items, l.cmp)
}

// All iterates over index/element pairs in order
func (l *List[T]) All() iter.Seq2[int, T] {
	return slices.All(l.items)
}

// Slice returns a copy of the elements in order
func (l *List[T]) Slice() []T {
	return slices.Clone(l.items)
}

// Clear releases every element and empties the list
func (l *List[T]) Clear() {
	if l.free != nil {
		for _, v := range l.items {
			l.free(v)
		}
	}
	clear(l.items)
	l.items = l.items[:0]
}
