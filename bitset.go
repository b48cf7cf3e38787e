package detecs

import "encoding/binary"

const bitsPerWord = 64

// Bitset is a dense, auto-growing bit array used for liveness and
// component presence checks. Reads beyond the current capacity return
// false instead of failing; writes grow the backing words while
// preserving every previously set bit. Capacity rounds up to the word
// size, trading a little memory for branch-free presence checks.
type Bitset struct {
	words []uint64
}

// Test reports whether bit i is set. Out-of-range indices read false.
func (b *Bitset) Test(i int) bool {
	if i < 0 {
		return false
	}
	w := i / bitsPerWord
	if w >= len(b.words) {
		return false
	}
	return b.words[w]&(1<<uint(i%bitsPerWord)) != 0
}

// Set turns bit i on, growing the backing storage as needed.
func (b *Bitset) Set(i int) {
	if i < 0 {
		return
	}
	w := i / bitsPerWord
	b.grow(w + 1)
	b.words[w] |= 1 << uint(i%bitsPerWord)
}

// Clear turns bit i off. Clearing beyond capacity is a no-op.
func (b *Bitset) Clear(i int) {
	if i < 0 {
		return
	}
	w := i / bitsPerWord
	if w >= len(b.words) {
		return
	}
	b.words[w] &^= 1 << uint(i%bitsPerWord)
}

// Len returns the current capacity in bits.
func (b *Bitset) Len() int {
	return len(b.words) * bitsPerWord
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		for ; w != 0; w &= w - 1 {
			n++
		}
	}
	return n
}

// Reset clears every bit without releasing capacity.
func (b *Bitset) Reset() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// Bytes returns the raw word-array bytes in native order. It is the
// low-level building block for snapshot formats owned outside this
// package; SetBytes restores the exact bit pattern.
func (b *Bitset) Bytes() []byte {
	out := make([]byte, len(b.words)*8)
	for i, w := range b.words {
		binary.NativeEndian.PutUint64(out[i*8:], w)
	}
	return out
}

// SetBytes replaces the bitset contents from a Bytes round trip.
// Trailing bytes short of a full word are ignored.
func (b *Bitset) SetBytes(data []byte) {
	n := len(data) / 8
	b.words = make([]uint64, n)
	for i := 0; i < n; i++ {
		b.words[i] = binary.NativeEndian.Uint64(data[i*8:])
	}
}

func (b *Bitset) grow(words int) {
	if words <= len(b.words) {
		return
	}
	b.words = append(b.words, make([]uint64, words-len(b.words))...)
}
