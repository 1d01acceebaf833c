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

// KeySet is a deduplicating, insertion-order-independent collection of
// TrieKey, the accumulator every mask/witness computation in this module
// builds up before calling Trie.Mask. TrieKey cannot be a Go map key
// directly (it carries a slice), so KeySet indexes by its string form
// instead.
type KeySet struct {
	byString map[string]TrieKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{byString: map[string]TrieKey{}}
}

// Add inserts key, a no-op if already present.
func (s *KeySet) Add(key TrieKey) {
	s.byString[key.String()] = key
}

// Merge adds every key of other into s.
func (s *KeySet) Merge(other *KeySet) {
	if other == nil {
		return
	}
	for str, key := range other.byString {
		s.byString[str] = key
	}
}

// Has reports whether key was added.
func (s *KeySet) Has(key TrieKey) bool {
	_, ok := s.byString[key.String()]
	return ok
}

// Len reports the number of distinct keys.
func (s *KeySet) Len() int {
	return len(s.byString)
}

// Keys returns the accumulated keys, order unspecified.
func (s *KeySet) Keys() []TrieKey {
	keys := make([]TrieKey, 0, len(s.byString))
	for _, key := range s.byString {
		keys = append(keys, key)
	}
	return keys
}
