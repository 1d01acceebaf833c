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

// Node is the element type of the generic hashed partial trie shared by all
// four typed wrappers (StateMpt, StorageTrie, TransactionTrie, ReceiptTrie).
// A nil Node represents the empty trie or an empty branch slot.
//
// Unlike the teacher's database/mpt package, these nodes are plain in-memory
// values with no paging, caching, or concurrent access support: the decoder
// builds, mutates, and discards a handful of tries once per block, never
// persisting them, so none of that machinery earns its keep here.
type Node interface {
	isNode()
}

// hashNode is a placeholder for a subtree whose content is known only by its
// Keccak-256 hash: either because a wire pre-image represented it with the
// Hash opcode, a direct pre-image dump left it unresolved, or Trie.Mask
// pruned it out of the witness. Attempts to read or write through a
// hashNode fail with ErrUnresolvedSubtree.
type hashNode common.Hash

func (hashNode) isNode() {}

// valueNode is the RLP-encoded payload stored at a leaf: an encoded account
// for StateMpt, an encoded u256 for StorageTrie, or raw transaction/receipt
// bytes for TransactionTrie/ReceiptTrie.
type valueNode []byte

func (valueNode) isNode() {}

// shortNode represents both MPT "leaf" and "extension" nodes: a Key of one
// or more Nibbles followed by either a value (Val is a valueNode or
// hashNode standing for a leaf) or another node to descend into (Val is a
// *fullNode, *shortNode, or hashNode standing for an extension).
type shortNode struct {
	Key []Nibble
	Val Node
}

func (*shortNode) isNode() {}

// fullNode represents an MPT "branch" node: 16 children, one per Nibble
// value, plus a 17th slot for a value terminating exactly at this node.
// None of the four trie kinds used by this decoder ever populate the 17th
// slot (transaction and receipt indices, and hashed addresses/slots, never
// collide with a branch prefix), but it is retained for RLP fidelity with
// the canonical Ethereum encoding.
type fullNode struct {
	Children [17]Node
}

func (*fullNode) isNode() {}

// countChildren reports how many of the 17 slots are occupied and returns
// the index of the last one found, for use when collapsing a branch that
// has been reduced to a single child.
func (n *fullNode) countChildren() (count int, lastIndex int) {
	for i, child := range n.Children {
		if child != nil {
			count++
			lastIndex = i
		}
	}
	return count, lastIndex
}
