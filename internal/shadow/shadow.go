// Package shadow provides a brute-force page-address map used as an
// independent oracle in property tests: it answers "what owns this
// page" without going anywhere near an interval tree, so tests can
// cross-check the tree-based Table against it. It is adapted from the
// source's fibonacci-hashed open-addressing map, widened to 64-bit
// keys since page indices are not bounded to 32 bits here.
package shadow

// PageMap is a hash map from a page index to an arbitrary owner tag.
// Uses open addressing with linear probing and fibonacci hashing, the
// same technique as the source's integer map, traded for a value slot
// instead of an unsafe.Pointer since tests only ever store small tags.
type PageMap struct {
	buckets []bucket
	count   int
	mask    uint64
}

type bucket struct {
	key   uint64
	value any
	used  bool
}

// fibHash64 is 2^64 divided by the golden ratio, rounded to an odd
// integer, for the same distribution fibonacci hashing gives the
// source's 32-bit map.
const fibHash64 = 11400714819323198485

func (m *PageMap) hash(key uint64) uint64 {
	return key * fibHash64
}

// Get returns the tag stored for page, and whether one was present.
func (m *PageMap) Get(page uint64) (any, bool) {
	if len(m.buckets) == 0 {
		return nil, false
	}
	idx := m.hash(page) & m.mask
	for {
		b := &m.buckets[idx]
		if !b.used {
			return nil, false
		}
		if b.key == page {
			return b.value, true
		}
		idx = (idx + 1) & m.mask
	}
}

// Set stores a tag for page, overwriting any existing tag.
func (m *PageMap) Set(page uint64, tag any) {
	if len(m.buckets) == 0 {
		m.buckets = make([]bucket, 16)
		m.mask = 15
	} else if m.count >= len(m.buckets)*3/4 {
		m.grow()
	}

	idx := m.hash(page) & m.mask
	for {
		b := &m.buckets[idx]
		if !b.used {
			b.key = page
			b.value = tag
			b.used = true
			m.count++
			return
		}
		if b.key == page {
			b.value = tag
			return
		}
		idx = (idx + 1) & m.mask
	}
}

// SetRange tags every page in [start, start+length).
func (m *PageMap) SetRange(start, length uint64, tag any) {
	for p := start; p < start+length; p++ {
		m.Set(p, tag)
	}
}

// DeleteRange removes the tag for every page in [start, start+length).
func (m *PageMap) DeleteRange(start, length uint64) {
	for p := start; p < start+length; p++ {
		m.delete(p)
	}
}

func (m *PageMap) delete(page uint64) {
	if len(m.buckets) == 0 {
		return
	}
	idx := m.hash(page) & m.mask
	for {
		b := &m.buckets[idx]
		if !b.used {
			return
		}
		if b.key == page {
			// Standard open-addressing deletion: clear the slot, then
			// re-insert every entry in the probe run after it so later
			// lookups don't stop short at the hole.
			b.used = false
			m.count--
			idx = (idx + 1) & m.mask
			for m.buckets[idx].used {
				victim := m.buckets[idx]
				m.buckets[idx].used = false
				m.count--
				m.Set(victim.key, victim.value)
				idx = (idx + 1) & m.mask
			}
			return
		}
		idx = (idx + 1) & m.mask
	}
}

func (m *PageMap) grow() {
	oldBuckets := m.buckets
	newSize := len(oldBuckets) * 2
	m.buckets = make([]bucket, newSize)
	m.mask = uint64(newSize - 1)
	m.count = 0

	for i := range oldBuckets {
		if oldBuckets[i].used {
			m.Set(oldBuckets[i].key, oldBuckets[i].value)
		}
	}
}

// ForEach calls fn for every tagged page, in unspecified order.
func (m *PageMap) ForEach(fn func(page uint64, tag any)) {
	for i := range m.buckets {
		if m.buckets[i].used {
			fn(m.buckets[i].key, m.buckets[i].value)
		}
	}
}

// Len returns the number of tagged pages.
func (m *PageMap) Len() int {
	return m.count
}
