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

// TransactionTrie is the per-block transactions trie: a Trie keyed by
// KeyFromIndex(i) whose leaf values are a transaction's consensus
// encoding (legacy RLP for a legacy transaction, or the EIP-2718 typed
// envelope otherwise).
type TransactionTrie struct {
	trie *Trie
}

// NewTransactionTrie returns an empty transactions trie.
func NewTransactionTrie() *TransactionTrie {
	return &TransactionTrie{trie: New()}
}

// Clone returns an independent snapshot; see Trie.Clone.
func (t *TransactionTrie) Clone() *TransactionTrie {
	return &TransactionTrie{trie: t.trie.Clone()}
}

// Hash returns the trie's root hash.
func (t *TransactionTrie) Hash() (common.Hash, error) {
	return t.trie.Hash()
}

// Insert stores encoded at the position of the i-th transaction.
func (t *TransactionTrie) Insert(i int, encoded []byte) error {
	return t.trie.Insert(KeyFromIndex(i), encoded)
}

// Get returns the encoding stored at position i.
func (t *TransactionTrie) Get(i int) ([]byte, error) {
	return t.trie.Get(KeyFromIndex(i))
}

// MaskRange prunes the trie to the minimal witness proving every index in
// [lo, hi), leaving Hash unchanged.
func (t *TransactionTrie) MaskRange(lo, hi int) error {
	return t.trie.Mask(indexKeyRange(lo, hi))
}
