package table

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/exp/constraints"
)

// Key identifies a row. Untimed frames keep T at zero; timed frames index
// rows by the (ID, T) pair and lookups by ID alone match every time point.
type Key struct {
	ID int64
	T  int64
}

// K returns an untimed key
func K(id int64) Key {
	return Key{ID: id}
}

// KT returns a timed key
func KT(id, t int64) Key {
	return Key{ID: id, T: t}
}

// Keys returns untimed keys for the given ids
func Keys(ids ...int64) []Key {
	keys := make([]Key, len(ids))
	for i, id := range ids {
		keys[i] = Key{ID: id}
	}
	return keys
}

// String returns the key as "(id, t)"
func (k Key) String() string {
	return fmt.Sprintf("(%d, %d)", k.ID, k.T)
}

// Compare orders keys by ID, then T
func (k Key) Compare(other Key) int {
	if c := cmp.Compare(k.ID, other.ID); c != 0 {
		return c
	}
	return cmp.Compare(k.T, other.T)
}

// SortKeys sorts keys in index order
func SortKeys(keys []Key) {
	slices.SortFunc(keys, Key.Compare)
}

// KeySet is a set of row keys
type KeySet map[Key]struct{}

// NewKeySet builds a set from keys
func NewKeySet(keys ...Key) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Has reports whether k is in the set
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Add inserts keys into the set
func (s KeySet) Add(keys ...Key) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

// Sorted returns the keys of the set in index order
func (s KeySet) Sorted() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Equal reports whether both sets hold the same keys
func (s KeySet) Equal(other KeySet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// SortedNames returns the keys of m in ascending order.
func SortedNames[K constraints.Ordered, V any](m map[K]V) []K {
	names := make([]K, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
