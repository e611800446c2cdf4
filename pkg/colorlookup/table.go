// Package colorlookup maps colours to values by nearest match.
package colorlookup

import (
	"fmt"
	"image/color"
	"strings"
)

// Table is an ordered list of colour keys and their values. The zero value is
// an empty table. A Table is not safe for concurrent mutation; concurrent Get
// calls are fine once it is built.
type Table[V any] struct {
	keys   []color.RGBA
	values []V
}

// Insert appends key with value v. Earlier entries win distance ties.
func (t *Table[V]) Insert(key color.RGBA, v V) {
	t.keys = append(t.keys, key)
	t.values = append(t.values, v)
}

// Len returns the number of entries.
func (t *Table[V]) Len() int { return len(t.keys) }

// Remove deletes entry i.
func (t *Table[V]) Remove(i int) {
	t.keys = append(t.keys[:i], t.keys[i+1:]...)
	t.values = append(t.values[:i], t.values[i+1:]...)
}

// Keys returns the colour keys in insertion order.
func (t *Table[V]) Keys() []color.RGBA { return t.keys }

// Values returns the values in insertion order.
func (t *Table[V]) Values() []V { return t.values }

// Get returns the value whose key is closest to c by Manhattan distance over
// the four channels. ok is false on an empty table.
func (t *Table[V]) Get(c color.RGBA) (v V, ok bool) {
	if len(t.keys) == 0 {
		return v, false
	}
	best, bestDelta := 0, -1
	for i, k := range t.keys {
		d := Distance(c, k)
		if bestDelta < 0 || d < bestDelta {
			best, bestDelta = i, d
			if d == 0 {
				break
			}
		}
	}
	return t.values[best], true
}

// Distance returns the Manhattan distance between a and b over RGBA.
func Distance(a, b color.RGBA) int {
	return absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B) + absDiff(a.A, b.A)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func (t *Table[V]) String() string {
	var sb strings.Builder
	for i, k := range t.keys {
		fmt.Fprintf(&sb, "rgba(%d, %d, %d, %d) %v\n", k.R, k.G, k.B, k.A, t.values[i])
	}
	return sb.String()
}
