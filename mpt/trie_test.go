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
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func mustHash(t *testing.T, tr *Trie) common.Hash {
	t.Helper()
	h, err := tr.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return h
}

func TestTrieEmptyHash(t *testing.T) {
	tr := New()
	h := mustHash(t, tr)
	if h != emptyRootHash {
		t.Fatalf("empty trie hash = %x, want %x", h, emptyRootHash)
	}
}

func TestTrieInsertGet(t *testing.T) {
	tr := New()
	keys := []TrieKey{
		KeyFromNibbles([]Nibble{1, 2, 3, 4}),
		KeyFromNibbles([]Nibble{1, 2, 5, 6}),
		KeyFromNibbles([]Nibble{7, 8, 9, 0}),
	}
	for i, k := range keys {
		if err := tr.Insert(k, []byte{byte(i)}); err != nil {
			t.Fatalf("Insert(%v) failed: %v", k, err)
		}
	}
	for i, k := range keys {
		got, err := tr.Get(k)
		if err != nil {
			t.Fatalf("Get(%v) failed: %v", k, err)
		}
		if !bytes.Equal(got, []byte{byte(i)}) {
			t.Fatalf("Get(%v) = %v, want %v", k, got, []byte{byte(i)})
		}
	}
}

func TestTrieOverwrite(t *testing.T) {
	tr := New()
	k := KeyFromNibbles([]Nibble{1, 2, 3, 4})
	if err := tr.Insert(k, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(k, []byte("b")); err != nil {
		t.Fatal(err)
	}
	got, err := tr.Get(k)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "b" {
		t.Fatalf("Get after overwrite = %q, want %q", got, "b")
	}
}

func TestTrieGetNotFound(t *testing.T) {
	tr := New()
	if err := tr.Insert(KeyFromNibbles([]Nibble{1, 2}), []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Get(KeyFromNibbles([]Nibble{3, 4})); err != ErrKeyNotFound {
		t.Fatalf("Get of missing key = %v, want ErrKeyNotFound", err)
	}
}

func TestTrieHashOrderIndependent(t *testing.T) {
	keys := []TrieKey{
		KeyFromNibbles([]Nibble{1, 2, 3, 4}),
		KeyFromNibbles([]Nibble{1, 2, 5, 6}),
		KeyFromNibbles([]Nibble{7, 8, 9, 0}),
		KeyFromNibbles([]Nibble{7, 8, 9, 1}),
	}
	values := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}

	forward := New()
	for i, k := range keys {
		if err := forward.Insert(k, values[i]); err != nil {
			t.Fatal(err)
		}
	}

	backward := New()
	for i := len(keys) - 1; i >= 0; i-- {
		if err := backward.Insert(keys[i], values[i]); err != nil {
			t.Fatal(err)
		}
	}

	if mustHash(t, forward) != mustHash(t, backward) {
		t.Fatalf("trie hash depends on insertion order")
	}
}

func TestTrieReportingRemove(t *testing.T) {
	tr := New()
	keys := []TrieKey{
		KeyFromNibbles([]Nibble{1, 2, 3, 4}),
		KeyFromNibbles([]Nibble{1, 2, 5, 6}),
	}
	for i, k := range keys {
		if err := tr.Insert(k, []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}

	reference := New()
	if err := reference.Insert(keys[1], []byte{1}); err != nil {
		t.Fatal(err)
	}

	if _, err := tr.ReportingRemove(keys[0]); err != nil {
		t.Fatalf("ReportingRemove failed: %v", err)
	}
	if _, err := tr.Get(keys[0]); err != ErrKeyNotFound {
		t.Fatalf("removed key still present: %v", err)
	}
	if mustHash(t, tr) != mustHash(t, reference) {
		t.Fatalf("post-removal hash = %x, want %x matching a trie built without the removed key", mustHash(t, tr), mustHash(t, reference))
	}
}

func TestTrieReportingRemoveUnresolvedSibling(t *testing.T) {
	keyA := KeyFromNibbles([]Nibble{1, 2, 3, 4})
	keyB := KeyFromNibbles([]Nibble{1, 5, 6, 7})
	valA := bytes.Repeat([]byte{0xaa}, 32)
	valB := bytes.Repeat([]byte{0xbb}, 32)

	full := New()
	if err := full.Insert(keyA, valA); err != nil {
		t.Fatal(err)
	}
	if err := full.Insert(keyB, valB); err != nil {
		t.Fatal(err)
	}
	if err := full.Mask([]TrieKey{keyA}); err != nil {
		t.Fatalf("Mask failed: %v", err)
	}

	if _, err := full.ReportingRemove(keyA); err == nil {
		t.Fatalf("expected ReportingRemove to fail when the collapsing sibling is unresolved")
	}
}

func TestTrieMaskPreservesHash(t *testing.T) {
	tr := New()
	keys := []TrieKey{
		KeyFromNibbles([]Nibble{1, 2, 3, 4}),
		KeyFromNibbles([]Nibble{1, 2, 5, 6}),
		KeyFromNibbles([]Nibble{7, 8, 9, 0}),
	}
	for i, k := range keys {
		if err := tr.Insert(k, []byte{byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i),
			byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i),
			byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i)}); err != nil {
			t.Fatal(err)
		}
	}

	before := mustHash(t, tr)
	if err := tr.Mask([]TrieKey{keys[0]}); err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	after := mustHash(t, tr)
	if before != after {
		t.Fatalf("Mask changed the root hash: before %x after %x", before, after)
	}

	if _, err := tr.Get(keys[0]); err != nil {
		t.Fatalf("masked trie lost the kept key: %v", err)
	}
	if _, err := tr.Get(keys[1]); err != ErrUnresolvedSubtree {
		t.Fatalf("Get on a pruned key = %v, want ErrUnresolvedSubtree", err)
	}
}

func TestTrieMaskIsIdempotentOnRoot(t *testing.T) {
	build := func() *Trie {
		tr := New()
		for i, n := range [][]Nibble{{1, 2, 3, 4}, {1, 2, 5, 6}, {7, 8, 9, 0}} {
			if err := tr.Insert(KeyFromNibbles(n), []byte{byte(i), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}); err != nil {
				panic(err)
			}
		}
		return tr
	}
	a := KeyFromNibbles([]Nibble{1, 2, 3, 4})
	b := KeyFromNibbles([]Nibble{7, 8, 9, 0})

	chained := build().Clone()
	if err := chained.Mask([]TrieKey{a}); err != nil {
		t.Fatal(err)
	}
	if err := chained.Mask([]TrieKey{b}); err != nil {
		t.Fatal(err)
	}

	union := build().Clone()
	if err := union.Mask([]TrieKey{a, b}); err != nil {
		t.Fatal(err)
	}

	if mustHash(t, chained) != mustHash(t, union) {
		t.Fatalf("chained masking diverged from a single union mask")
	}
}

func TestTrieCloneIsIndependent(t *testing.T) {
	tr := New()
	k := KeyFromNibbles([]Nibble{1, 2, 3, 4})
	if err := tr.Insert(k, []byte("a")); err != nil {
		t.Fatal(err)
	}
	clone := tr.Clone()
	if err := clone.Insert(k, []byte("b")); err != nil {
		t.Fatal(err)
	}
	got, err := tr.Get(k)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a" {
		t.Fatalf("mutating a clone affected the original: Get = %q", got)
	}
}

func TestTrieInsertHashAtRoot(t *testing.T) {
	tr := New()
	h := common.HexToHash("0x1234")
	if err := tr.InsertHash(EmptyKey(), h); err != nil {
		t.Fatal(err)
	}
	got, err := tr.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("Hash of a root hash-only trie = %x, want %x", got, h)
	}
	if _, err := tr.Get(KeyFromNibbles([]Nibble{1})); err != ErrUnresolvedSubtree {
		t.Fatalf("Get on a hash-only trie = %v, want ErrUnresolvedSubtree", err)
	}
}
