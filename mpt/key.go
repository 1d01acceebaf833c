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

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TrieKey is the canonical navigation path used throughout this package: an
// ordered sequence of 0 to 64 Nibbles. State and storage tries are keyed by
// the Keccak-256 hash of an address or storage slot (64 Nibbles); the
// transaction and receipt tries are keyed by the RLP encoding of a small
// integer index (2-4 Nibbles, typically).
type TrieKey struct {
	nibbles []Nibble
}

// KeyFromAddress hashes addr and returns the resulting 64-Nibble path, the
// key used to index an account in a StateMpt.
func KeyFromAddress(addr common.Address) TrieKey {
	h := crypto.Keccak256Hash(addr[:])
	return TrieKey{nibbles: bytesToNibbles(h[:])}
}

// KeyFromHash converts an already-hashed 32-byte value (typically the
// Keccak-256 hash of a storage slot) into its 64-Nibble path. Unlike
// KeyFromAddress, the input is not hashed again.
func KeyFromHash(h common.Hash) TrieKey {
	return TrieKey{nibbles: bytesToNibbles(h[:])}
}

// KeyFromNibbles wraps an already-decomposed Nibble sequence, such as the
// path recovered while parsing a combined pre-image.
func KeyFromNibbles(nibbles []Nibble) TrieKey {
	cp := make([]Nibble, len(nibbles))
	copy(cp, nibbles)
	return TrieKey{nibbles: cp}
}

// EmptyKey returns the zero-length path, the key at the root of a trie.
func EmptyKey() TrieKey {
	return TrieKey{}
}

// Nibbles returns the (shared) Nibble slice backing this key. Callers must
// not mutate the result.
func (k TrieKey) Nibbles() []Nibble {
	return k.nibbles
}

// Len reports the number of Nibbles in the path.
func (k TrieKey) Len() int {
	return len(k.nibbles)
}

// Hash converts the path back into a 32-byte hash. It only succeeds for
// full-length (64 Nibble) keys, i.e. those produced by KeyFromAddress or
// KeyFromHash and not subsequently truncated.
func (k TrieKey) Hash() (common.Hash, bool) {
	if len(k.nibbles) != 64 {
		return common.Hash{}, false
	}
	var h common.Hash
	copy(h[:], nibblesToBytes(k.nibbles))
	return h, true
}

// Less orders keys lexicographically over their Nibble sequence, the
// iteration order every replay loop in this module commits to for
// determinism (spec-mandated: no hash-randomized iteration).
func (k TrieKey) Less(other TrieKey) bool {
	n := len(k.nibbles)
	if len(other.nibbles) < n {
		n = len(other.nibbles)
	}
	for i := 0; i < n; i++ {
		if k.nibbles[i] != other.nibbles[i] {
			return k.nibbles[i] < other.nibbles[i]
		}
	}
	return len(k.nibbles) < len(other.nibbles)
}

// String renders the key as a hex-ish nibble string, for debugging.
func (k TrieKey) String() string {
	if len(k.nibbles) == 0 {
		return "-empty-"
	}
	b := make([]rune, len(k.nibbles))
	for i, n := range k.nibbles {
		b[i] = n.Rune()
	}
	return string(b)
}
