// Package dedup suppresses repeated content within a single collection pass.
//
// The same rendered item often shows up as several overlapping nodes that
// match different candidate selectors. Identity resolution may assign those
// nodes different IDs, so the pass also compares a cheap content fingerprint.
package dedup

import "unicode/utf16"

const (
	// SampleLen is how many UTF-16 code units of content feed the fingerprint.
	SampleLen = 100
	// MinLen is the shortest content that gets fingerprinted at all.
	MinLen = 10
)

// Fingerprint returns a 32-bit rolling hash (h = h*31 + c) over the first
// SampleLen UTF-16 code units of content. ok is false for content shorter
// than MinLen code units; such content is never considered a duplicate.
func Fingerprint(content string) (hash uint32, ok bool) {
	units := utf16.Encode([]rune(content))
	if len(units) < MinLen {
		return 0, false
	}
	if len(units) > SampleLen {
		units = units[:SampleLen]
	}
	var h uint32
	for _, c := range units {
		h = h*31 + uint32(c)
	}
	return h, true
}

// Batch tracks fingerprints seen during one pass. Not safe for concurrent
// use; a pass owns its Batch.
type Batch struct {
	seen map[uint32]struct{}
}

// NewBatch creates an empty Batch.
func NewBatch() *Batch {
	return &Batch{seen: make(map[uint32]struct{})}
}

// Seen reports whether content's fingerprint already occurred in this batch,
// recording it if not. Unhashable content always reports false.
func (b *Batch) Seen(content string) bool {
	h, ok := Fingerprint(content)
	if !ok {
		return false
	}
	if _, dup := b.seen[h]; dup {
		return true
	}
	b.seen[h] = struct{}{}
	return false
}

// Len returns the number of distinct fingerprints recorded.
func (b *Batch) Len() int {
	return len(b.seen)
}
