package bits

// This package implements a fixed-length bit vector indexed by validator position.
//
// Layout:
// - Bit i lives in Bytes[i/8] at bit offset i%8 (LSB-first inside each byte).
// - Size is the logical length; the trailing bits of the last byte are always zero.
//
// Use Case:
// - Signalling which validators of a set signed a commitment (the "initial bitfield").
// - Representing the randomly sampled challenge subset of those validators.

import (
	"errors"
	"fmt"
	mbits "math/bits"
)

var (
	// ErrOutOfRange is returned when an index does not fit into the array length.
	ErrOutOfRange = errors.New("bit index out of range")
	// ErrSizeMismatch is returned when two arrays of different length are combined.
	ErrSizeMismatch = errors.New("bit array size mismatch")
	// ErrNonCanonical is returned when bits beyond Size are set.
	ErrNonCanonical = errors.New("bit array has bits set beyond its size")
)

// Array is a fixed-size bitfield.
type Array struct {
	Bytes []byte
	Size  uint64
}

// bytesToFit returns the number of bytes needed to hold n bits.
func bytesToFit(n uint64) uint64 {
	return (n + 7) / 8
}

// New allocates a zeroed array able to hold exactly size bits.
func New(size uint64) Array {
	return Array{
		Bytes: make([]byte, bytesToFit(size)),
		Size:  size,
	}
}

// FromBytes wraps raw bytes, rejecting encodings whose padding bits are set.
func FromBytes(raw []byte, size uint64) (Array, error) {
	if uint64(len(raw)) != bytesToFit(size) {
		return Array{}, fmt.Errorf("%w: %d bytes for %d bits", ErrSizeMismatch, len(raw), size)
	}
	a := Array{Bytes: append([]byte(nil), raw...), Size: size}
	if rem := size % 8; rem != 0 {
		if a.Bytes[len(a.Bytes)-1]>>rem != 0 {
			return Array{}, ErrNonCanonical
		}
	}
	return a, nil
}

// Set marks bit i.
func (a *Array) Set(i uint64) error {
	if i >= a.Size {
		return ErrOutOfRange
	}
	a.Bytes[i/8] |= 1 << (i % 8)
	return nil
}

// Clear unmarks bit i.
func (a *Array) Clear(i uint64) error {
	if i >= a.Size {
		return ErrOutOfRange
	}
	a.Bytes[i/8] &^= 1 << (i % 8)
	return nil
}

// Has reports whether bit i is set. Indices beyond Size, or beyond a
// truncated Bytes, are never set.
func (a Array) Has(i uint64) bool {
	if i >= a.Size || i/8 >= uint64(len(a.Bytes)) {
		return false
	}
	return a.Bytes[i/8]&(1<<(i%8)) != 0
}

// Count returns the number of set bits below Size. Padding bits are ignored.
func (a Array) Count() uint64 {
	var n int
	full := a.Size / 8
	for i, b := range a.Bytes {
		switch {
		case uint64(i) < full:
			n += mbits.OnesCount8(b)
		case uint64(i) == full:
			n += mbits.OnesCount8(b & (1<<(a.Size%8) - 1))
		}
	}
	return uint64(n)
}

// Positions lists the indices of set bits in ascending order.
func (a Array) Positions() []uint64 {
	res := make([]uint64, 0, a.Count())
	for i := uint64(0); i < a.Size; i++ {
		if a.Has(i) {
			res = append(res, i)
		}
	}
	return res
}

// Copy returns a deep copy.
func (a Array) Copy() Array {
	return Array{
		Bytes: append([]byte(nil), a.Bytes...),
		Size:  a.Size,
	}
}

// And returns the intersection of two equally sized arrays.
func (a Array) And(b Array) (Array, error) {
	if a.Size != b.Size {
		return Array{}, ErrSizeMismatch
	}
	res := New(a.Size)
	for i := range res.Bytes {
		res.Bytes[i] = a.Bytes[i] & b.Bytes[i]
	}
	return res, nil
}

// Or returns the union of two equally sized arrays.
func (a Array) Or(b Array) (Array, error) {
	if a.Size != b.Size {
		return Array{}, ErrSizeMismatch
	}
	res := New(a.Size)
	for i := range res.Bytes {
		res.Bytes[i] = a.Bytes[i] | b.Bytes[i]
	}
	return res, nil
}

// IsSubsetOf reports whether every bit of a is also set in b.
func (a Array) IsSubsetOf(b Array) bool {
	if a.Size != b.Size {
		return false
	}
	for i := range a.Bytes {
		if a.Bytes[i]&^b.Bytes[i] != 0 {
			return false
		}
	}
	return true
}

// Equal compares size and content.
func (a Array) Equal(b Array) bool {
	if a.Size != b.Size || len(a.Bytes) != len(b.Bytes) {
		return false
	}
	for i := range a.Bytes {
		if a.Bytes[i] != b.Bytes[i] {
			return false
		}
	}
	return true
}

// String renders the bitfield as x/_ characters, lowest index first.
func (a Array) String() string {
	buf := make([]byte, a.Size)
	for i := uint64(0); i < a.Size; i++ {
		if a.Has(i) {
			buf[i] = 'x'
		} else {
			buf[i] = '_'
		}
	}
	return string(buf)
}
