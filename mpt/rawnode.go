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

// RawNode is an opaque handle onto a trie node, used by the pre-image
// loaders to assemble a trie structurally, bottom-up, rather than through
// Trie's key-at-a-time Insert. Its zero value represents the empty node.
type RawNode struct {
	node Node
}

// RawLeaf builds a leaf: path followed directly by value, with no further
// descendants.
func RawLeaf(path []Nibble, value []byte) RawNode {
	return RawNode{node: &shortNode{Key: cloneNibbles(path), Val: valueNode(value)}}
}

// RawExtension builds the node reached by consuming path before reaching
// child, merging path into child's own key when child is already a
// leaf/extension so that the canonical "no two adjacent extension nodes"
// rule is preserved regardless of how the pre-image happened to group its
// opcodes.
func RawExtension(path []Nibble, child RawNode) RawNode {
	if len(path) == 0 {
		return child
	}
	if cs, ok := child.node.(*shortNode); ok {
		return RawNode{node: &shortNode{Key: concatNibbles(path, cs.Key), Val: cs.Val}}
	}
	return RawNode{node: &shortNode{Key: cloneNibbles(path), Val: child.node}}
}

// RawBranch builds a 16-ary branch from the given children, any of which
// may be the zero RawNode to denote an empty slot. None of this module's
// four trie kinds ever terminate exactly at a branch, so there is no value
// slot here.
func RawBranch(children [16]RawNode) RawNode {
	var fn fullNode
	for i := 0; i < 16; i++ {
		fn.Children[i] = children[i].node
	}
	return RawNode{node: &fn}
}

// RawHashPlaceholder builds a subtree known only by its hash.
func RawHashPlaceholder(h common.Hash) RawNode {
	return RawNode{node: hashNode(h)}
}

// RawEmpty returns the empty node.
func RawEmpty() RawNode {
	return RawNode{}
}

// IsEmpty reports whether r represents the empty node.
func (r RawNode) IsEmpty() bool {
	return r.node == nil
}

// Hash computes r's own root hash without requiring it be wrapped in a Trie.
func (r RawNode) Hash() (common.Hash, error) {
	h, _, err := hashAndEncode(r.node)
	return h, err
}

// TrieFromRawNode wraps a fully assembled RawNode as the root of a Trie.
func TrieFromRawNode(r RawNode) *Trie {
	return &Trie{root: r.node}
}

// StateMptFromRawNode wraps a fully assembled RawNode as a StateMpt.
func StateMptFromRawNode(r RawNode) *StateMpt {
	return &StateMpt{trie: TrieFromRawNode(r)}
}

// StorageTrieFromRawNode wraps a fully assembled RawNode as a StorageTrie.
func StorageTrieFromRawNode(r RawNode) *StorageTrie {
	return &StorageTrie{trie: TrieFromRawNode(r)}
}
