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

import "testing"

func TestTransactionTrieInsertGet(t *testing.T) {
	tr := NewTransactionTrie()
	if err := tr.Insert(0, []byte{0x01, 0x02}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(1, []byte{0x03}); err != nil {
		t.Fatal(err)
	}
	got, err := tr.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "\x01\x02" {
		t.Fatalf("Get(0) = %x, want 0102", got)
	}
}

func TestTransactionTrieMaskRangePreservesHash(t *testing.T) {
	tr := NewTransactionTrie()
	// 32-byte values keep every leaf too large to be embedded in its parent,
	// so Mask can replace the leaves outside the range with hash stubs.
	for i := 0; i < 5; i++ {
		value := make([]byte, 32)
		value[0] = byte(i)
		if err := tr.Insert(i, value); err != nil {
			t.Fatal(err)
		}
	}
	before, err := tr.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.MaskRange(1, 3); err != nil {
		t.Fatal(err)
	}
	after, err := tr.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Fatalf("hash changed after MaskRange: %x != %x", before, after)
	}
	if _, err := tr.Get(1); err != nil {
		t.Fatalf("Get(1) after mask = %v, want nil", err)
	}
	if _, err := tr.Get(0); err != ErrUnresolvedSubtree {
		t.Fatalf("Get(0) after mask excluding it = %v, want ErrUnresolvedSubtree", err)
	}
}

func TestReceiptTrieInsertGet(t *testing.T) {
	tr := NewReceiptTrie()
	if err := tr.Insert(0, []byte{0xaa}); err != nil {
		t.Fatal(err)
	}
	got, err := tr.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 0xaa {
		t.Fatalf("Get(0) = %x, want aa", got)
	}
}

func TestReceiptTrieClone(t *testing.T) {
	tr := NewReceiptTrie()
	if err := tr.Insert(0, []byte{0x01}); err != nil {
		t.Fatal(err)
	}
	clone := tr.Clone()
	if err := tr.Insert(1, []byte{0x02}); err != nil {
		t.Fatal(err)
	}
	if _, err := clone.Get(1); err != ErrKeyNotFound {
		t.Fatalf("clone.Get(1) = %v, want ErrKeyNotFound", err)
	}
}
