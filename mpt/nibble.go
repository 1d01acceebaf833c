// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package mpt

// Nibble is a 4-bit value in the range 0-F, the unit of navigation through
// an MPT. Every byte on the wire decomposes into two Nibbles, high first.
type Nibble byte

// Rune renders a Nibble as a hexadecimal digit.
func (n Nibble) Rune() rune {
	switch {
	case n < 10:
		return rune('0' + n)
	case n < 16:
		return rune('a' + n - 10)
	default:
		return '?'
	}
}

func (n Nibble) String() string {
	return string(n.Rune())
}

func bytesToNibbles(data []byte) []Nibble {
	res := make([]Nibble, len(data)*2)
	for i, b := range data {
		res[2*i] = Nibble(b >> 4)
		res[2*i+1] = Nibble(b & 0xF)
	}
	return res
}

// nibblesToBytes packs an even-length nibble slice back into bytes. It
// panics if the length is odd; callers are expected to only call this on
// paths known to have come from byte-aligned sources.
func nibblesToBytes(nibbles []Nibble) []byte {
	if len(nibbles)%2 != 0 {
		panic("nibblesToBytes: odd nibble count")
	}
	res := make([]byte, len(nibbles)/2)
	for i := range res {
		res[i] = byte(nibbles[2*i]<<4) | byte(nibbles[2*i+1])
	}
	return res
}

// commonPrefixLength computes the length of the common prefix of a and b.
func commonPrefixLength(a, b []Nibble) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for i := 0; i < max; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return max
}
