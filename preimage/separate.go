// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package preimage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/okx/zk-evm/mpt"
)

// DirectEntry is one (path, value-or-hash) binding out of an
// already-structured trie dump: exactly one of Value or Hash is set.
type DirectEntry struct {
	Path  []mpt.Nibble
	Value []byte
	Hash  *common.Hash
}

// SeparateInput is the already-structured "separate" pre-image: a direct
// state trie dump plus one direct storage trie dump per account that has
// one.
type SeparateInput struct {
	State   []DirectEntry
	Storage map[common.Hash][]DirectEntry
}

// SeparateResult is the trie frontend recovered from a SeparateInput. It
// carries no code: the separate format never embeds bytecode, which
// arrives instead through the block trace's own code_db at the entrypoint.
type SeparateResult struct {
	State   *mpt.StateMpt
	Storage map[common.Hash]*mpt.StorageTrie
}

// LoadSeparate populates typed MPTs directly from an already-structured
// dump, without parsing any wire opcodes.
func LoadSeparate(in SeparateInput) (*SeparateResult, error) {
	state := mpt.NewStateMpt()
	for _, e := range in.State {
		key := mpt.KeyFromNibbles(e.Path)
		if e.Hash != nil {
			if err := state.InsertHashAtKey(key, *e.Hash); err != nil {
				return nil, fmt.Errorf("loading state trie: %w", err)
			}
			continue
		}
		if len(e.Path) != 64 {
			return nil, fmt.Errorf("%w: state path has %d nibbles, want 64", ErrInvalidPreImage, len(e.Path))
		}
		account, err := mpt.DecodeAccount(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding account at %s: %v", ErrInvalidPreImage, key, err)
		}
		if err := state.InsertAtKey(key, account); err != nil {
			return nil, fmt.Errorf("loading state trie: %w", err)
		}
	}

	storage := make(map[common.Hash]*mpt.StorageTrie, len(in.Storage))
	for addrHash, entries := range in.Storage {
		trie := mpt.NewStorageTrie()
		for _, e := range entries {
			key := mpt.KeyFromNibbles(e.Path)
			if e.Hash != nil {
				if err := trie.InsertHashAtKey(key, *e.Hash); err != nil {
					return nil, fmt.Errorf("loading storage trie for %s: %w", addrHash, err)
				}
				continue
			}
			if err := trie.InsertAtKey(key, e.Value); err != nil {
				return nil, fmt.Errorf("loading storage trie for %s: %w", addrHash, err)
			}
		}
		storage[addrHash] = trie
	}

	return &SeparateResult{State: state, Storage: storage}, nil
}
