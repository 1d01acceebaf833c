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
)

// Trie is the generic hashed partial trie underlying StateMpt, StorageTrie,
// TransactionTrie, and ReceiptTrie. It stores an arbitrary-depth set of
// Nibble-keyed byte values, some of whose subtrees may be known only by
// hash (a "partial" or witness trie), and computes the same root hash a
// fully populated trie over the same key-value set would.
//
// Every mutation is copy-on-write: no operation ever mutates a Node
// reachable from a previous snapshot, so Clone is a trivial, O(1) struct
// copy rather than a deep traversal.
type Trie struct {
	root Node
}

// New returns an empty trie, whose Hash is the canonical empty-trie root.
func New() *Trie {
	return &Trie{}
}

// NewWithRootHash returns a trie whose entire content is known only by its
// root hash, the representation used for a storage trie reached through an
// account whose concrete storage was never touched by the block.
func NewWithRootHash(h common.Hash) *Trie {
	return &Trie{root: hashNode(h)}
}

// Clone returns an independent snapshot of t. Because all mutation is
// copy-on-write, this never needs to traverse the trie: it shares the
// existing node tree and only diverges from it on the clone's next write.
func (t *Trie) Clone() *Trie {
	return &Trie{root: t.root}
}

// Hash computes the Keccak-256 root hash of the trie as it currently
// stands, whether or not parts of it are only known by hash.
func (t *Trie) Hash() (common.Hash, error) {
	h, _, err := hashAndEncode(t.root)
	return h, err
}

// Get returns the value stored at key. It fails with ErrUnresolvedSubtree
// if the path to key passes through a subtree known only by hash, and with
// ErrKeyNotFound if no value is stored there.
func (t *Trie) Get(key TrieKey) ([]byte, error) {
	return getNode(t.root, key.Nibbles())
}

// Insert stores value at key, creating or splitting nodes as needed.
func (t *Trie) Insert(key TrieKey, value []byte) error {
	newRoot, err := insertNode(t.root, key.Nibbles(), valueNode(value))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// InsertHash attaches a subtree known only by its hash at key. When key is
// the empty path this replaces the whole trie's root, the representation
// used for a storage trie whose account was never accessed in the block
// being replayed.
func (t *Trie) InsertHash(key TrieKey, hash common.Hash) error {
	if key.Len() == 0 {
		t.root = hashNode(hash)
		return nil
	}
	newRoot, err := insertNode(t.root, key.Nibbles(), hashNode(hash))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// ReportingRemove deletes the value at key and returns the keys of every
// sibling node whose content had to be inspected to structurally collapse
// the trie after the deletion (a branch reduced to its last remaining
// child). Those keys must already be present and fully resolved in the
// trie, and the caller must keep them in the resulting witness: the
// collapsed shape - and therefore the post-removal root hash - depends on
// having actually seen them, not merely on their hash.
//
// It fails with ErrUnresolvedSubtree if completing the collapse would
// require inspecting a sibling that is itself only known by hash; callers
// are expected to have already materialized such siblings (for example via
// a preceding probe insert) before calling ReportingRemove.
func (t *Trie) ReportingRemove(key TrieKey) ([]TrieKey, error) {
	var reported []TrieKey
	newRoot, _, err := deleteNode(t.root, nil, key.Nibbles(), &reported)
	if err != nil {
		return nil, err
	}
	t.root = newRoot
	return reported, nil
}

// Mask prunes every subtree not required to prove membership of the given
// keys, replacing each with a hashNode stub, while leaving Hash unchanged.
// A subtree whose own encoding is short enough to be embedded in its
// parent is never pruned, since there is no 32-byte reference that could
// stand in for it without perturbing the parent's hash.
func (t *Trie) Mask(keep []TrieKey) error {
	newRoot, err := maskNode(t.root, nil, keep)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// ForEach visits every (key, value) pair reachable in the trie, in
// byte-lexicographic key order, the iteration order this module commits to
// for determinism. It fails with ErrUnresolvedSubtree if any reachable
// subtree is known only by hash.
func (t *Trie) ForEach(fn func(key TrieKey, value []byte) error) error {
	return forEachNode(t.root, nil, fn)
}

func forEachNode(n Node, prefix []Nibble, fn func(key TrieKey, value []byte) error) error {
	switch t := n.(type) {
	case nil:
		return nil
	case hashNode:
		return ErrUnresolvedSubtree
	case valueNode:
		return fn(KeyFromNibbles(prefix), []byte(t))
	case *shortNode:
		return forEachNode(t.Val, concatNibbles(prefix, t.Key), fn)
	case *fullNode:
		for i := 0; i < 16; i++ {
			if err := forEachNode(t.Children[i], concatNibbles(prefix, []Nibble{Nibble(i)}), fn); err != nil {
				return err
			}
		}
		if vn, ok := t.Children[16].(valueNode); ok {
			return fn(KeyFromNibbles(prefix), []byte(vn))
		}
		return nil
	default:
		return fmt.Errorf("mpt: unsupported node type %T", n)
	}
}

// ---------------------------------------------------------------------
// Recursive implementation
// ---------------------------------------------------------------------

func getNode(n Node, key []Nibble) ([]byte, error) {
	switch t := n.(type) {
	case nil:
		return nil, ErrKeyNotFound
	case hashNode:
		return nil, ErrUnresolvedSubtree
	case valueNode:
		if len(key) != 0 {
			return nil, fmt.Errorf("%w: key longer than stored value", ErrInvalidKey)
		}
		return []byte(t), nil
	case *shortNode:
		match := commonPrefixLength(t.Key, key)
		if match != len(t.Key) {
			return nil, ErrKeyNotFound
		}
		rest := key[match:]
		if len(rest) == 0 {
			if vn, ok := t.Val.(valueNode); ok {
				return []byte(vn), nil
			}
			if _, ok := t.Val.(hashNode); ok {
				return nil, ErrUnresolvedSubtree
			}
			return nil, ErrKeyNotFound
		}
		return getNode(t.Val, rest)
	case *fullNode:
		if len(key) == 0 {
			if vn, ok := t.Children[16].(valueNode); ok {
				return []byte(vn), nil
			}
			return nil, ErrKeyNotFound
		}
		return getNode(t.Children[key[0]], key[1:])
	default:
		return nil, fmt.Errorf("mpt: unsupported node type %T", n)
	}
}

func insertNode(n Node, key []Nibble, value Node) (Node, error) {
	if len(key) == 0 {
		return value, nil
	}
	switch t := n.(type) {
	case nil:
		return &shortNode{Key: cloneNibbles(key), Val: value}, nil

	case *shortNode:
		match := commonPrefixLength(t.Key, key)
		if match == len(t.Key) {
			newVal, err := insertNode(t.Val, key[match:], value)
			if err != nil {
				return nil, err
			}
			return &shortNode{Key: t.Key, Val: newVal}, nil
		}

		branch := &fullNode{}
		if rem := t.Key[match+1:]; len(rem) == 0 && !isValueNode(t.Val) {
			branch.Children[t.Key[match]] = t.Val
		} else {
			branch.Children[t.Key[match]] = &shortNode{Key: cloneNibbles(rem), Val: t.Val}
		}

		switch {
		case match == len(key):
			branch.Children[16] = value
		default:
			if rem := key[match+1:]; len(rem) == 0 && !isValueNode(value) {
				branch.Children[key[match]] = value
			} else {
				branch.Children[key[match]] = &shortNode{Key: cloneNibbles(rem), Val: value}
			}
		}

		if match == 0 {
			return branch, nil
		}
		return &shortNode{Key: cloneNibbles(key[:match]), Val: branch}, nil

	case *fullNode:
		idx := key[0]
		child, err := insertNode(t.Children[idx], key[1:], value)
		if err != nil {
			return nil, err
		}
		if isValueNode(child) {
			// A value ending right below a branch is a leaf with an empty
			// path, never a bare value in one of the 16 child slots.
			child = &shortNode{Key: []Nibble{}, Val: child}
		}
		nb := *t
		nb.Children[idx] = child
		return &nb, nil

	case hashNode:
		return nil, fmt.Errorf("%w: cannot insert through an unresolved node", ErrUnresolvedSubtree)

	case valueNode:
		return nil, fmt.Errorf("%w: key extends beyond a stored value", ErrInvalidKey)

	default:
		return nil, fmt.Errorf("mpt: unsupported node type %T", n)
	}
}

func isValueNode(n Node) bool {
	_, ok := n.(valueNode)
	return ok
}

func deleteNode(n Node, selfPath []Nibble, key []Nibble, reported *[]TrieKey) (Node, bool, error) {
	switch t := n.(type) {
	case nil:
		return nil, false, ErrKeyNotFound

	case valueNode:
		return nil, false, fmt.Errorf("%w: key extends beyond a stored value", ErrInvalidKey)

	case hashNode:
		return nil, false, ErrUnresolvedSubtree

	case *shortNode:
		match := commonPrefixLength(t.Key, key)
		if match < len(t.Key) {
			return t, false, ErrKeyNotFound
		}
		if match == len(key) {
			if _, isLeaf := t.Val.(valueNode); !isLeaf {
				return t, false, fmt.Errorf("%w: key targets an internal node, not a leaf", ErrInvalidKey)
			}
			return nil, true, nil
		}
		childPath := append(cloneNibbles(selfPath), t.Key...)
		newChild, changed, err := deleteNode(t.Val, childPath, key[match:], reported)
		if err != nil || !changed {
			return t, changed, err
		}
		if newChild == nil {
			return nil, true, nil
		}
		if cs, ok := newChild.(*shortNode); ok {
			return &shortNode{Key: concatNibbles(t.Key, cs.Key), Val: cs.Val}, true, nil
		}
		return &shortNode{Key: t.Key, Val: newChild}, true, nil

	case *fullNode:
		if len(key) == 0 {
			return t, false, fmt.Errorf("%w: reporting_remove does not target branch values", ErrInvalidKey)
		}
		idx := key[0]
		childPath := append(cloneNibbles(selfPath), idx)
		newChild, changed, err := deleteNode(t.Children[idx], childPath, key[1:], reported)
		if err != nil || !changed {
			return t, changed, err
		}
		nb := *t
		nb.Children[idx] = newChild

		count, pos := nb.countChildren()
		if count > 1 {
			return &nb, true, nil
		}

		remaining := nb.Children[pos]
		if pos == 16 {
			*reported = append(*reported, KeyFromNibbles(selfPath))
			return remaining, true, nil
		}
		if _, ok := remaining.(hashNode); ok {
			remPath := append(cloneNibbles(selfPath), Nibble(pos))
			return nil, false, fmt.Errorf("%w: sibling at key %s must be resolved before this removal can complete", ErrUnresolvedSubtree, KeyFromNibbles(remPath))
		}
		remPath := append(cloneNibbles(selfPath), Nibble(pos))
		*reported = append(*reported, KeyFromNibbles(remPath))
		return prependNibble(Nibble(pos), remaining), true, nil

	default:
		return nil, false, fmt.Errorf("mpt: unsupported node type %T", n)
	}
}

// prependNibble builds the node reached by taking one extra step p before
// reaching n, merging p into n's own Key when n is already a shortNode so
// that two immediately adjacent extension/leaf nodes are never represented
// as two distinct nodes: Ethereum's canonical trie construction always
// folds such runs into a single node with a combined path.
func prependNibble(p Nibble, n Node) Node {
	if cs, ok := n.(*shortNode); ok {
		return &shortNode{Key: concatNibbles([]Nibble{p}, cs.Key), Val: cs.Val}
	}
	return &shortNode{Key: []Nibble{p}, Val: n}
}

func maskNode(n Node, prefix []Nibble, keep []TrieKey) (Node, error) {
	if n == nil {
		return nil, nil
	}
	if !anyKeepHasPrefix(keep, prefix) {
		embedded, err := isEmbedded(n)
		if err != nil {
			return nil, err
		}
		if embedded {
			return n, nil
		}
		h, _, err := hashAndEncode(n)
		if err != nil {
			return nil, err
		}
		return hashNode(h), nil
	}

	switch t := n.(type) {
	case hashNode:
		return t, nil
	case valueNode:
		return t, nil
	case *shortNode:
		if _, isLeaf := t.Val.(valueNode); isLeaf {
			return t, nil
		}
		childPrefix := append(cloneNibbles(prefix), t.Key...)
		newVal, err := maskNode(t.Val, childPrefix, keep)
		if err != nil {
			return nil, err
		}
		return &shortNode{Key: t.Key, Val: newVal}, nil
	case *fullNode:
		var nb fullNode
		for i := 0; i < 16; i++ {
			childPrefix := append(cloneNibbles(prefix), Nibble(i))
			c, err := maskNode(t.Children[i], childPrefix, keep)
			if err != nil {
				return nil, err
			}
			nb.Children[i] = c
		}
		nb.Children[16] = t.Children[16]
		return &nb, nil
	default:
		return nil, fmt.Errorf("mpt: unsupported node type %T", n)
	}
}

func anyKeepHasPrefix(keep []TrieKey, prefix []Nibble) bool {
	for _, k := range keep {
		nb := k.Nibbles()
		if len(nb) < len(prefix) {
			continue
		}
		match := true
		for i, p := range prefix {
			if nb[i] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func cloneNibbles(n []Nibble) []Nibble {
	cp := make([]Nibble, len(n))
	copy(cp, n)
	return cp
}

func concatNibbles(a, b []Nibble) []Nibble {
	cp := make([]Nibble, 0, len(a)+len(b))
	cp = append(cp, a...)
	cp = append(cp, b...)
	return cp
}
