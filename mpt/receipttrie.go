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

import "github.com/ethereum/go-ethereum/common"

// ReceiptTrie is the per-block receipts trie: a Trie keyed by
// KeyFromIndex(i) whose leaf values are a receipt's consensus encoding,
// normalized the same way as TransactionTrie's entries.
type ReceiptTrie struct {
	trie *Trie
}

// NewReceiptTrie returns an empty receipts trie.
func NewReceiptTrie() *ReceiptTrie {
	return &ReceiptTrie{trie: New()}
}

// Clone returns an independent snapshot; see Trie.Clone.
func (t *ReceiptTrie) Clone() *ReceiptTrie {
	return &ReceiptTrie{trie: t.trie.Clone()}
}

// Hash returns the trie's root hash.
func (t *ReceiptTrie) Hash() (common.Hash, error) {
	return t.trie.Hash()
}

// Insert stores encoded at the position of the i-th receipt.
func (t *ReceiptTrie) Insert(i int, encoded []byte) error {
	return t.trie.Insert(KeyFromIndex(i), encoded)
}

// Get returns the encoding stored at position i.
func (t *ReceiptTrie) Get(i int) ([]byte, error) {
	return t.trie.Get(KeyFromIndex(i))
}

// MaskRange prunes the trie to the minimal witness proving every index in
// [lo, hi), leaving Hash unchanged.
func (t *ReceiptTrie) MaskRange(lo, hi int) error {
	return t.trie.Mask(indexKeyRange(lo, hi))
}
