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
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/mpt/rlp"
)

// StorageTrie is the per-account storage trie: a Trie keyed by
// KeyFromHash(slot) whose leaf values are RLP-encoded u256 integers, with
// the canonical Ethereum convention that a zero value is represented by
// the slot's absence rather than by an explicit zero leaf.
type StorageTrie struct {
	trie *Trie
}

// NewStorageTrie returns an empty storage trie.
func NewStorageTrie() *StorageTrie {
	return &StorageTrie{trie: New()}
}

// NewStorageTrieWithRootHash returns a storage trie known only by its root
// hash, the representation for an account whose storage was never touched
// by the block being replayed.
func NewStorageTrieWithRootHash(h common.Hash) *StorageTrie {
	return &StorageTrie{trie: NewWithRootHash(h)}
}

// Clone returns an independent snapshot; see Trie.Clone.
func (s *StorageTrie) Clone() *StorageTrie {
	return &StorageTrie{trie: s.trie.Clone()}
}

// Hash returns the trie's root hash.
func (s *StorageTrie) Hash() (common.Hash, error) {
	return s.trie.Hash()
}

// Get returns the value stored at slot, or zero if the slot has no entry.
func (s *StorageTrie) Get(slot common.Hash) (*uint256.Int, error) {
	data, err := s.trie.Get(KeyFromHash(slot))
	if err == ErrKeyNotFound {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStorageValue(data)
}

// Update writes value at slot. A zero value removes the slot entirely,
// matching Ethereum's convention that storage tries never carry explicit
// zero leaves.
func (s *StorageTrie) Update(slot common.Hash, value *uint256.Int) error {
	if value == nil || value.IsZero() {
		_, err := s.trie.ReportingRemove(KeyFromHash(slot))
		if err == ErrKeyNotFound {
			return nil
		}
		return err
	}
	return s.trie.Insert(KeyFromHash(slot), encodeStorageValue(value))
}

// InsertHash attaches a subtree for slot known only by hash.
func (s *StorageTrie) InsertHash(slot common.Hash, h common.Hash) error {
	return s.trie.InsertHash(KeyFromHash(slot), h)
}

// ReportingRemove deletes the value at slot, reporting the keys of every
// sibling whose content had to be inspected to complete the resulting
// structural collapse; see Trie.ReportingRemove.
func (s *StorageTrie) ReportingRemove(slot common.Hash) ([]TrieKey, error) {
	return s.trie.ReportingRemove(KeyFromHash(slot))
}

// InsertAtKey stores raw RLP-encoded value at an already-derived key, for
// loaders that only ever see a pre-hashed path.
func (s *StorageTrie) InsertAtKey(key TrieKey, value []byte) error {
	return s.trie.Insert(key, value)
}

// InsertHashAtKey attaches a subtree known only by hash at an
// already-derived key.
func (s *StorageTrie) InsertHashAtKey(key TrieKey, h common.Hash) error {
	return s.trie.InsertHash(key, h)
}

// Mask prunes the trie to the minimal witness proving the given slots,
// leaving Hash unchanged.
func (s *StorageTrie) Mask(slots []common.Hash) error {
	keys := make([]TrieKey, len(slots))
	for i, sl := range slots {
		keys[i] = KeyFromHash(sl)
	}
	return s.trie.Mask(keys)
}

// MaskAtKeys prunes the trie to the minimal witness proving the given
// already-derived keys; see StateMpt.MaskAtKeys.
func (s *StorageTrie) MaskAtKeys(keys []TrieKey) error {
	return s.trie.Mask(keys)
}

func encodeStorageValue(v *uint256.Int) []byte {
	return rlp.Encode(rlp.BigInt{Value: v.ToBig()})
}

func decodeStorageValue(data []byte) (*uint256.Int, error) {
	item, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	str, ok := item.(rlp.String)
	if !ok {
		return nil, ErrInvalidKey
	}
	v, overflow := uint256.FromBig(str.BigInt())
	if overflow {
		return nil, ErrInvalidKey
	}
	return v, nil
}
