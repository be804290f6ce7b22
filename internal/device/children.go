package device

import (
	"cmp"
	"iter"
	"slices"
)

// Children is an immutable, deduplicated set of child devices. Membership is
// full structural equality. Iteration follows a canonical order: variant rank,
// then identity attribute, then content hash, so equal sets always iterate
// the same way.
type Children struct {
	entries []entry
}

type entry struct {
	dev Device
	sum uint64
}

// NewChildren builds a set from ds, dropping structural duplicates and nil
// values.
func NewChildren(ds ...Device) Children {
	entries := make([]entry, 0, len(ds))
	for _, d := range ds {
		if d == nil {
			continue
		}
		entries = append(entries, entry{dev: d, sum: Sum(d)})
	}
	return Children{entries: normalize(entries)}
}

func normalize(entries []entry) []entry {
	slices.SortStableFunc(entries, compareEntries)

	out := entries[:0]
	for _, e := range entries {
		if !containsEntry(out, e) {
			out = append(out, e)
		}
	}
	return slices.Clip(out)
}

// containsEntry scans back over the run of entries sharing e's identity and
// hash; only those can be structurally equal to e.
func containsEntry(sorted []entry, e entry) bool {
	id := e.dev.Identity()
	for i := len(sorted) - 1; i >= 0; i-- {
		o := sorted[i]
		if o.sum != e.sum || o.dev.Identity() != id {
			return false
		}
		if equal(o.dev, e.dev) {
			return true
		}
	}
	return false
}

func compareEntries(a, b entry) int {
	ai, bi := a.dev.Identity(), b.dev.Identity()
	if c := cmp.Compare(ai.Kind.rank(), bi.Kind.rank()); c != 0 {
		return c
	}
	if ai.Known != bi.Known {
		if !ai.Known {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(ai.Value, bi.Value); c != 0 {
		return c
	}
	return cmp.Compare(a.sum, b.sum)
}

// Len returns the number of children.
func (c Children) Len() int {
	return len(c.entries)
}

// At returns the i-th child in canonical order.
func (c Children) At(i int) Device {
	return c.entries[i].dev
}

// All iterates the children in canonical order.
func (c Children) All() iter.Seq[Device] {
	return func(yield func(Device) bool) {
		for _, e := range c.entries {
			if !yield(e.dev) {
				return
			}
		}
	}
}

// Slice returns the children in canonical order as a fresh slice.
func (c Children) Slice() []Device {
	out := make([]Device, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.dev
	}
	return out
}

// Contains reports whether a child structurally equal to d is in the set.
func (c Children) Contains(d Device) bool {
	e := entry{dev: d, sum: Sum(d)}
	for _, o := range c.entries {
		if o.sum == e.sum && equal(o.dev, d) {
			return true
		}
	}
	return false
}

// Replace returns a new set with the i-th child swapped for d. The result is
// re-normalized, so d collapses into an existing equal sibling.
func (c Children) Replace(i int, d Device) Children {
	entries := slices.Clone(c.entries)
	entries[i] = entry{dev: d, sum: Sum(d)}
	return Children{entries: normalize(entries)}
}

// Equal reports whether both sets hold structurally equal members.
func (c Children) Equal(o Children) bool {
	if len(c.entries) != len(o.entries) {
		return false
	}
	for i := range c.entries {
		if c.entries[i].sum != o.entries[i].sum || !equal(c.entries[i].dev, o.entries[i].dev) {
			return false
		}
	}
	return true
}
