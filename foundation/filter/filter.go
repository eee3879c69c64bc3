// Package filter implements a probabilistic set membership filter used to
// avoid re-transmitting transactions a peer already holds. The filter never
// reports a false negative and reports false positives at a bounded,
// configurable rate.
package filter

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Filter represents a fixed size bit array with k derived hash projections.
// The bit array size and projection count are fixed at construction and the
// content only grows by insertion.
type Filter struct {
	bits  []uint64
	m     uint64 // number of bits
	k     int    // number of hash projections
	count int    // number of inserted identifiers
}

// New constructs a filter sized for an expected item count n and a target
// false positive rate p using the standard sizing rule:
// m = ceil(-n*ln(p)/ln(2)^2) bits and k = round((m/n)*ln(2)) projections.
func New(n int, p float64) (*Filter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("expected item count must be positive, got %d", n)
	}
	if p <= 0 || p >= 1 {
		return nil, fmt.Errorf("false positive rate must be in (0,1), got %g", p)
	}

	ln2 := math.Ln2
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2)))

	// Round up to a whole number of 64 bit words.
	if m == 0 {
		m = 64
	}
	words := (m + 63) / 64
	m = words * 64

	k := int(math.Round(float64(m) / float64(n) * ln2))
	if k < 1 {
		k = 1
	}

	f := Filter{
		bits: make([]uint64, words),
		m:    m,
		k:    k,
	}

	return &f, nil
}

// Insert records an identifier in the filter. Insertion is monotone and
// idempotent, bits are never cleared.
func (f *Filter) Insert(id uint64) {
	h1, h2 := f.project(id)
	for i := 0; i < f.k; i++ {
		bit := (h1 + uint64(i)*h2) % f.m
		f.bits[bit/64] |= 1 << (bit % 64)
	}
	f.count++
}

// MightContain reports whether the identifier may have been inserted. A false
// result is definitive, a true result may be a false positive.
func (f *Filter) MightContain(id uint64) bool {
	h1, h2 := f.project(id)
	for i := 0; i < f.k; i++ {
		bit := (h1 + uint64(i)*h2) % f.m
		if f.bits[bit/64]&(1<<(bit%64)) == 0 {
			return false
		}
	}
	return true
}

// SizeBytes returns the serialized size of the filter's bit array. This is
// the byte count charged against bandwidth when two parties exchange filters.
func (f *Filter) SizeBytes() int {
	return int(f.m / 8)
}

// Bits returns the configured size of the bit array.
func (f *Filter) Bits() uint64 {
	return f.m
}

// Projections returns the configured number of hash projections.
func (f *Filter) Projections() int {
	return f.k
}

// Count returns the number of identifiers inserted so far.
func (f *Filter) Count() int {
	return f.count
}

// =============================================================================

// project derives the two base hashes used for double hashing. The k
// projections are cheap linear combinations of these, not k distinct hash
// families.
func (f *Filter) project(id uint64) (uint64, uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)

	h := xxhash.Sum64(buf[:])
	h1 := h
	h2 := (h >> 33) | (h << 31)

	// An even second hash would cycle through a subset of the bits.
	h2 |= 1

	return h1, h2
}
