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
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/okx/zk-evm/mpt/rlp"
)

// emptyRootHash is the Keccak-256 hash of the RLP encoding of the empty
// string, the canonical root hash of an empty Ethereum trie.
var emptyRootHash = crypto.Keccak256Hash(rlp.Encode(rlp.String{}))

// keccak256Code hashes contract code for the registry using the pure-Go
// sha3.NewLegacyKeccak256 hasher directly rather than crypto.Keccak256:
// code blobs are hashed once per distinct contract and then never again,
// so there is no call-volume reason to route through go-ethereum's own
// (potentially cgo-accelerated) wrapper for this one site.
func keccak256Code(code []byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(code)
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// encodeNode produces the canonical RLP encoding of n on its own, the bytes
// that are either embedded verbatim in a parent node or hashed to produce
// the 32-byte reference stored there. It is an error to call encodeNode on
// a hashNode: a hash placeholder by definition has no known encoding.
func encodeNode(n Node) ([]byte, error) {
	switch t := n.(type) {
	case nil:
		return rlp.Encode(rlp.String{}), nil
	case hashNode:
		return nil, fmt.Errorf("%w: cannot re-encode a hash-only placeholder", ErrUnresolvedSubtree)
	case valueNode:
		return rlp.Encode(rlp.String{Str: t}), nil
	case *shortNode:
		_, isLeaf := t.Val.(valueNode)
		path := encodeCompactPath(t.Key, isLeaf)
		var valItem rlp.Item
		if vn, ok := t.Val.(valueNode); ok {
			valItem = rlp.String{Str: vn}
		} else {
			ref, err := childReference(t.Val)
			if err != nil {
				return nil, err
			}
			valItem = ref
		}
		return rlp.Encode(rlp.List{Items: []rlp.Item{rlp.String{Str: path}, valItem}}), nil
	case *fullNode:
		items := make([]rlp.Item, 17)
		for i := 0; i < 16; i++ {
			ref, err := childReference(t.Children[i])
			if err != nil {
				return nil, err
			}
			items[i] = ref
		}
		if vn, ok := t.Children[16].(valueNode); ok {
			items[16] = rlp.String{Str: vn}
		} else {
			items[16] = rlp.String{}
		}
		return rlp.Encode(rlp.List{Items: items}), nil
	default:
		return nil, fmt.Errorf("unsupported node type %T", n)
	}
}

// childReference encodes n the way it is referenced from its parent: the
// verbatim RLP encoding when that encoding is shorter than 32 bytes (the
// Ethereum "embedded node" rule), or the 32-byte Keccak-256 hash of that
// encoding otherwise. A nil child is referenced as the empty string.
func childReference(n Node) (rlp.Item, error) {
	if n == nil {
		return rlp.String{}, nil
	}
	if hn, ok := n.(hashNode); ok {
		return rlp.String{Str: common.Hash(hn).Bytes()}, nil
	}
	data, err := encodeNode(n)
	if err != nil {
		return nil, err
	}
	if len(data) < 32 {
		return rlp.Encoded{Data: data}, nil
	}
	h := crypto.Keccak256Hash(data)
	return rlp.String{Str: h.Bytes()}, nil
}

// hashAndEncode returns both the hash and, where one exists, the raw
// encoding of n. For a hashNode the encoding is unavailable (only the hash
// is known) and the second return value is nil.
func hashAndEncode(n Node) (common.Hash, []byte, error) {
	if n == nil {
		return emptyRootHash, rlp.Encode(rlp.String{}), nil
	}
	if hn, ok := n.(hashNode); ok {
		return common.Hash(hn), nil, nil
	}
	data, err := encodeNode(n)
	if err != nil {
		return common.Hash{}, nil, err
	}
	return crypto.Keccak256Hash(data), data, nil
}

// isEmbedded reports whether n's own RLP encoding is short enough (under 32
// bytes) to be embedded directly in its parent rather than referenced by
// hash. Mask uses this to decide whether a subtree outside the keep set can
// be replaced by a hashNode stub without perturbing the root hash: an
// embedded node's bytes are part of the parent's encoding directly, so
// there is no 32-byte reference to stand in for it.
func isEmbedded(n Node) (bool, error) {
	if n == nil {
		return true, nil
	}
	if _, ok := n.(hashNode); ok {
		return false, nil
	}
	data, err := encodeNode(n)
	if err != nil {
		return false, err
	}
	return len(data) < 32, nil
}

// encodeCompactPath implements Ethereum's hex-prefix encoding, packing a
// Nibble path plus a leaf/extension flag into a byte string whose first
// nibble carries two flag bits (odd-length, terminator) and whose remaining
// nibbles are the path itself, left-padded by one nibble when the path has
// even length.
func encodeCompactPath(nibbles []Nibble, isLeaf bool) []byte {
	var flag byte
	if isLeaf {
		flag = 2
	}
	odd := len(nibbles)%2 == 1
	if odd {
		flag |= 1
	}
	out := make([]byte, 0, len(nibbles)/2+1)
	if odd {
		out = append(out, flag<<4|byte(nibbles[0]))
		nibbles = nibbles[1:]
	} else {
		out = append(out, flag<<4)
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, byte(nibbles[i])<<4|byte(nibbles[i+1]))
	}
	return out
}

// decodeCompactPath inverts encodeCompactPath, reporting the recovered
// Nibble path and whether it terminates in a value (leaf) or continues
// into another node (extension).
func decodeCompactPath(data []byte) (nibbles []Nibble, isLeaf bool, err error) {
	if len(data) == 0 {
		return nil, false, fmt.Errorf("empty compact path")
	}
	flag := data[0] >> 4
	isLeaf = flag&2 != 0
	odd := flag&1 != 0
	all := bytesToNibbles(data)
	if odd {
		nibbles = all[1:]
	} else {
		nibbles = all[2:]
	}
	return nibbles, isLeaf, nil
}
