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

// Hash2Code is the registry mapping a contract's Keccak-256 code hash back
// to its bytecode. Unlike the teacher's disk-backed, checkpointed code
// store, this is a one-shot, purely in-memory lookup: a decoder run never
// outlives a single block, so nothing here needs to survive a restart.
type Hash2Code struct {
	codes map[common.Hash][]byte
}

// NewHash2Code returns a registry pre-populated with the empty code hash,
// the one entry every account implicitly has even if its CodeHash was
// never explicitly inserted.
func NewHash2Code() *Hash2Code {
	return &Hash2Code{
		codes: map[common.Hash][]byte{
			EmptyCodeHash: {},
		},
	}
}

// Insert records code under its own Keccak-256 hash, overwriting nothing
// if an identical entry already exists (the hash determines the content).
func (h *Hash2Code) Insert(code []byte) common.Hash {
	hash := keccak256Code(code)
	if _, ok := h.codes[hash]; !ok {
		cp := make([]byte, len(code))
		copy(cp, code)
		h.codes[hash] = cp
	}
	return hash
}

// Get returns the code registered under hash, and whether it was found.
func (h *Hash2Code) Get(hash common.Hash) ([]byte, bool) {
	code, ok := h.codes[hash]
	return code, ok
}

// Extend merges another registry's entries into h; entries already present
// in h are kept as they are.
func (h *Hash2Code) Extend(other *Hash2Code) {
	for hash, code := range other.codes {
		if _, ok := h.codes[hash]; !ok {
			h.codes[hash] = code
		}
	}
}

// Len reports the number of distinct code entries registered, including
// the implicit empty-code entry.
func (h *Hash2Code) Len() int {
	return len(h.codes)
}
