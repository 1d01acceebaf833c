// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package middle implements the block replay and witness-builder loop: it
// walks a block's per-transaction traces against a block's pre-state tries,
// producing one Batch per prover unit with its before/after witnesses.
package middle

// ConstError is a string constant usable as a sentinel error, the same
// pattern used by mpt.ConstError and preimage.ConstError.
type ConstError string

func (e ConstError) Error() string { return string(e) }

const (
	// ErrInconsistentInitialStorage is returned when an account's declared
	// storage root disagrees with the storage trie supplied for it.
	ErrInconsistentInitialStorage ConstError = "middle: account storage root disagrees with supplied storage trie"

	// ErrMissingStorageTrie is returned when a write targets an account's
	// storage but no storage trie was ever created for it and the account
	// was not newly born this access.
	ErrMissingStorageTrie ConstError = "middle: no storage trie for address"

	// ErrMissingBeaconContract is returned when the beacon-roots account or
	// its storage trie is absent at the point the beacon hook runs.
	ErrMissingBeaconContract ConstError = "middle: beacon roots contract or its storage is absent"

	// ErrUnknownCode is returned when a trace reads code by hash and no
	// such code was ever registered.
	ErrUnknownCode ConstError = "middle: no code registered for hash"

	// ErrStateUnreachable is returned when a trace touches an address whose
	// witness nodes are insufficient to materialize it.
	ErrStateUnreachable ConstError = "middle: address unreachable in the supplied witness"

	// ErrInvalidReceipt is returned when receipt bytes parse as neither
	// legacy RLP nor a typed envelope.
	ErrInvalidReceipt ConstError = "middle: receipt bytes are neither valid legacy RLP nor a typed envelope"

	// ErrInvalidWithdrawalAddress is returned when a withdrawal names an
	// address that cannot be resolved against the state trie.
	ErrInvalidWithdrawalAddress ConstError = "middle: withdrawal names an unreachable address"
)
