package scene

import (
	"iter"
	"slices"
)

// Layered is an ordered collection where order is z-order: the last member
// renders on top and wins hit-testing ties. It is not safe for concurrent
// use.
type Layered[T comparable] struct {
	items []T
}

// NewLayered creates a container holding items in order.
func NewLayered[T comparable](items ...T) *Layered[T] {
	return &Layered[T]{items: slices.Clone(items)}
}

func (l *Layered[T]) Len() int { return len(l.items) }

// LastIndex is the index of the topmost member, or -1 when empty.
func (l *Layered[T]) LastIndex() int { return len(l.items) - 1 }

func (l *Layered[T]) At(i int) T { return l.items[i] }

// Items returns a copy of the members in z-order.
func (l *Layered[T]) Items() []T { return slices.Clone(l.items) }

// All iterates bottom to top.
func (l *Layered[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range l.items {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Backward iterates top to bottom, the hit-testing order.
func (l *Layered[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := len(l.items) - 1; i >= 0; i-- {
			if !yield(i, l.items[i]) {
				return
			}
		}
	}
}

func (l *Layered[T]) Index(member T) int { return slices.Index(l.items, member) }

func (l *Layered[T]) Contains(member T) bool { return l.Index(member) >= 0 }

// Push appends members on top.
func (l *Layered[T]) Push(members ...T) {
	l.items = append(l.items, members...)
}

// Remove deletes member and reports whether it was present.
func (l *Layered[T]) Remove(member T) bool {
	i := l.Index(member)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

// RemoveFunc deletes every member for which del returns true and returns
// them in their former order.
func (l *Layered[T]) RemoveFunc(del func(T) bool) []T {
	var removed []T
	l.items = slices.DeleteFunc(l.items, func(v T) bool {
		if del(v) {
			removed = append(removed, v)
			return true
		}
		return false
	})
	return removed
}

// Set replaces the contents in place.
func (l *Layered[T]) Set(items []T) {
	l.items = slices.Clone(items)
}

// ToPosition moves member to index. A negative index counts from the end
// of the container as it was before the move, so -1 is the top. No-op if
// member is absent.
func (l *Layered[T]) ToPosition(member T, index int) {
	if index < 0 {
		index += len(l.items)
	}

	i := l.Index(member)
	if i < 0 {
		return
	}
	l.items = slices.Delete(l.items, i, i+1)
	l.insert(index, member)
}

// ToRelativePosition moves member by offset places. The target index follows
// the same rules as a splice: it is clamped to the end, and a negative target
// counts back from the end. No-op if member is absent.
func (l *Layered[T]) ToRelativePosition(member T, offset int) {
	i := l.Index(member)
	if i < 0 {
		return
	}
	l.items = slices.Delete(l.items, i, i+1)
	l.insert(i+offset, member)
}

// ToStart moves member to the bottom.
func (l *Layered[T]) ToStart(member T) { l.ToPosition(member, 0) }

// ToEnd moves member to the top.
func (l *Layered[T]) ToEnd(member T) { l.ToPosition(member, -1) }

// insert places v at a splice-style start index.
func (l *Layered[T]) insert(start int, v T) {
	n := len(l.items)
	switch {
	case start < 0:
		start = max(n+start, 0)
	case start > n:
		start = n
	}
	l.items = slices.Insert(l.items, start, v)
}
