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

import "github.com/okx/zk-evm/mpt/rlp"

// KeyFromIndex builds the key used by TransactionTrie and ReceiptTrie: the
// raw Nibble decomposition of the RLP encoding of i, unhashed. Both tries
// index their leaves by transaction position within the block rather than
// by a hashed key.
func KeyFromIndex(i int) TrieKey {
	data := rlp.Encode(rlp.Uint64{Value: uint64(i)})
	return KeyFromNibbles(bytesToNibbles(data))
}

// indexKeyRange returns the TrieKey for every index in [lo, hi).
func indexKeyRange(lo, hi int) []TrieKey {
	if hi < lo {
		hi = lo
	}
	keys := make([]TrieKey, 0, hi-lo)
	for i := lo; i < hi; i++ {
		keys = append(keys, KeyFromIndex(i))
	}
	return keys
}
