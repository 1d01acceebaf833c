// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package decoder glues the trie loaders, batcher, and replay loop into the
// single entrypoint a prover-input pipeline calls: one BlockTrace plus its
// companion OtherBlockData in, one GenerationInput per batch out.
package decoder

// ConstError is a trivial comparable error type, mirroring mpt.ConstError.
type ConstError string

func (e ConstError) Error() string { return string(e) }

const (
	// ErrEmptyInputs is returned when batch_size_hint == 0 at the
	// entrypoint. The internal batcher tolerates 0 as "1"; the entrypoint
	// itself does not.
	ErrEmptyInputs ConstError = "decoder: batch_size_hint must be greater than 0"

	// ErrMissingTriePreImages is returned when neither the Separate nor the
	// Combined variant of TriePreImages is populated.
	ErrMissingTriePreImages ConstError = "decoder: trie_pre_images carries neither a separate nor a combined pre-image"
)
