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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// StateMpt is the account trie: a Trie keyed by KeyFromAddress(addr) whose
// leaf values are RLP-encoded AccountInfo records.
type StateMpt struct {
	trie *Trie
}

// NewStateMpt returns an empty account trie.
func NewStateMpt() *StateMpt {
	return &StateMpt{trie: New()}
}

// NewStateMptWithRootHash returns an account trie known only by its root
// hash, used when a pre-image leaves the whole state trie unexpanded.
func NewStateMptWithRootHash(h common.Hash) *StateMpt {
	return &StateMpt{trie: NewWithRootHash(h)}
}

// Clone returns an independent snapshot; see Trie.Clone.
func (s *StateMpt) Clone() *StateMpt {
	return &StateMpt{trie: s.trie.Clone()}
}

// Hash returns the trie's root hash.
func (s *StateMpt) Hash() (common.Hash, error) {
	return s.trie.Hash()
}

// Get returns the account stored at addr.
func (s *StateMpt) Get(addr common.Address) (AccountInfo, error) {
	data, err := s.trie.Get(KeyFromAddress(addr))
	if err != nil {
		return AccountInfo{}, err
	}
	return DecodeAccount(data)
}

// Update writes (inserting or overwriting) the account stored at addr.
func (s *StateMpt) Update(addr common.Address, account AccountInfo) error {
	return s.trie.Insert(KeyFromAddress(addr), account.Encode())
}

// InsertHash attaches a subtree for addr known only by hash.
func (s *StateMpt) InsertHash(addr common.Address, h common.Hash) error {
	return s.trie.InsertHash(KeyFromAddress(addr), h)
}

// ReportingRemove deletes the account stored at addr, reporting the keys
// of every sibling whose content had to be inspected to complete the
// resulting structural collapse; see Trie.ReportingRemove.
func (s *StateMpt) ReportingRemove(addr common.Address) ([]TrieKey, error) {
	return s.trie.ReportingRemove(KeyFromAddress(addr))
}

// Mask prunes the trie to the minimal witness proving the given addresses,
// leaving Hash unchanged.
func (s *StateMpt) Mask(addrs []common.Address) error {
	keys := make([]TrieKey, len(addrs))
	for i, a := range addrs {
		keys[i] = KeyFromAddress(a)
	}
	return s.trie.Mask(keys)
}

// MaskAtKeys prunes the trie to the minimal witness proving the given
// already-derived keys, for callers (such as the replay loop) whose mask
// accumulates sibling keys reported by ReportingRemove alongside ordinary
// address keys and so cannot re-derive every entry from an address.
func (s *StateMpt) MaskAtKeys(keys []TrieKey) error {
	return s.trie.Mask(keys)
}

// GetAtKey, InsertAtKey, and InsertHashAtKey operate on an already-derived
// TrieKey rather than an address, for loaders that only ever see a
// pre-hashed path (the direct pre-image format never carries the original
// address, only its hash).

func (s *StateMpt) GetAtKey(key TrieKey) (AccountInfo, error) {
	data, err := s.trie.Get(key)
	if err != nil {
		return AccountInfo{}, err
	}
	return DecodeAccount(data)
}

func (s *StateMpt) InsertAtKey(key TrieKey, account AccountInfo) error {
	return s.trie.Insert(key, account.Encode())
}

func (s *StateMpt) InsertHashAtKey(key TrieKey, h common.Hash) error {
	return s.trie.InsertHash(key, h)
}

// ForEach visits every (hashed address, account) pair in the trie, in
// byte-lexicographic hashed-address order.
func (s *StateMpt) ForEach(fn func(addrHash common.Hash, account AccountInfo) error) error {
	return s.trie.ForEach(func(key TrieKey, value []byte) error {
		h, ok := key.Hash()
		if !ok {
			return fmt.Errorf("mpt: state trie key %s is not a full 64-nibble hash", key)
		}
		account, err := DecodeAccount(value)
		if err != nil {
			return err
		}
		return fn(h, account)
	})
}
