// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package mpt implements the Merkle-Patricia trie used to represent
// Ethereum account state, per-account storage, and per-block transaction
// and receipt collections.
//
// Trie is the single generic engine: a Nibble-keyed, hash-preserving,
// partially-populated trie that may hold some subtrees only by hash. The
// four typed wrappers, StateMpt, StorageTrie, TransactionTrie, and
// ReceiptTrie, add the key derivation and leaf (de)serialization specific
// to each of those four trie kinds.
package mpt
