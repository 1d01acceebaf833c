// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package preimage

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/mpt"
)

// buf is a tiny byte-slice builder used to hand-assemble combined
// pre-images the way an upstream encoder would.
type buf struct{ b []byte }

func (w *buf) byte(b byte) *buf { w.b = append(w.b, b); return w }
func (w *buf) bytes(b []byte) *buf { w.b = append(w.b, b...); return w }
func (w *buf) lenPrefixed(b []byte) *buf {
	w.byte(byte(len(b)))
	return w.bytes(b)
}
func (w *buf) path(nibbles []mpt.Nibble) *buf {
	w.byte(byte(len(nibbles)))
	for i := 0; i < len(nibbles); i += 2 {
		hi := nibbles[i]
		var lo mpt.Nibble
		if i+1 < len(nibbles) {
			lo = nibbles[i+1]
		}
		w.byte(byte(hi)<<4 | byte(lo))
	}
	return w
}

func nibblesOf(h common.Hash) []mpt.Nibble {
	return mpt.KeyFromHash(h).Nibbles()
}

func TestParseCombinedSingleAccountLeaf(t *testing.T) {
	addrHash := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111a")
	path := nibblesOf(addrHash)

	w := &buf{}
	w.byte(opAccountLeaf).path(path).lenPrefixed([]byte{0x01}).lenPrefixed([]byte{0x64}).byte(0x00).byte(0x00)
	w.byte(opNewTrie)

	result, err := ParseCombined(w.b)
	if err != nil {
		t.Fatalf("ParseCombined failed: %v", err)
	}

	got, err := result.State.GetAtKey(mpt.KeyFromNibbles(path))
	if err != nil {
		t.Fatalf("GetAtKey failed: %v", err)
	}
	if got.Nonce != 1 {
		t.Fatalf("Nonce = %d, want 1", got.Nonce)
	}
	if got.Balance.Cmp(uint256.NewInt(0x64)) != 0 {
		t.Fatalf("Balance = %s, want 100", got.Balance)
	}
	if got.StorageRoot != mpt.EmptyRootHash {
		t.Fatalf("StorageRoot = %x, want empty root", got.StorageRoot)
	}
	if got.CodeHash != mpt.EmptyCodeHash {
		t.Fatalf("CodeHash = %x, want empty code hash", got.CodeHash)
	}

	reference := mpt.NewStateMpt()
	if err := reference.InsertAtKey(mpt.KeyFromNibbles(path), got); err != nil {
		t.Fatal(err)
	}
	wantHash, err := reference.Hash()
	if err != nil {
		t.Fatal(err)
	}
	gotHash, err := result.State.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if gotHash != wantHash {
		t.Fatalf("parsed trie hash = %x, want %x", gotHash, wantHash)
	}
}

func TestParseCombinedAccountWithStorageAndCode(t *testing.T) {
	addrHash := common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222b")
	path := nibblesOf(addrHash)
	slotPath := nibblesOf(common.HexToHash("0x00"))
	code := []byte{0x60, 0x01, 0x60, 0x01, 0x01, 0x00}

	w := &buf{}
	// Code, pushed first so it sits below the storage subtree: AccountLeaf
	// pops storage (top of stack) before code.
	w.byte(opCode).lenPrefixed(code)
	// Storage subtree: a single leaf, then seal it.
	w.byte(opLeaf).path(slotPath).lenPrefixed([]byte{0x02})
	w.byte(opNewTrie)
	// Account leaf consuming both, in (storage, code) pop order.
	w.byte(opAccountLeaf).path(path).lenPrefixed([]byte{0x00}).lenPrefixed([]byte{0x00}).byte(0x01).byte(0x01)
	w.byte(opNewTrie)

	result, err := ParseCombined(w.b)
	if err != nil {
		t.Fatalf("ParseCombined failed: %v", err)
	}

	account, err := result.State.GetAtKey(mpt.KeyFromNibbles(path))
	if err != nil {
		t.Fatalf("GetAtKey failed: %v", err)
	}

	codeHash := crypto.Keccak256Hash(code)
	if account.CodeHash != codeHash {
		t.Fatalf("CodeHash = %x, want %x", account.CodeHash, codeHash)
	}

	storageTrie, ok := result.Storage[addrHash]
	if !ok {
		t.Fatalf("no storage trie registered for %x", addrHash)
	}
	storageRoot, err := storageTrie.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if account.StorageRoot != storageRoot {
		t.Fatalf("account.StorageRoot = %x, want %x matching the parsed storage trie", account.StorageRoot, storageRoot)
	}

	if _, ok := result.Code.Get(codeHash); !ok {
		t.Fatalf("code registry missing entry for %x", codeHash)
	}
}

func TestParseCombinedRejectsReservedOpcode(t *testing.T) {
	_, err := ParseCombined([]byte{opReserved})
	if err == nil {
		t.Fatalf("expected ParseCombined to reject the reserved opcode")
	}
}

func TestParseCombinedRejectsTruncatedInput(t *testing.T) {
	_, err := ParseCombined([]byte{opLeaf, 0x04})
	if err == nil {
		t.Fatalf("expected ParseCombined to reject a truncated Leaf operand")
	}
}

func TestParseCombinedRejectsStackUnderflow(t *testing.T) {
	_, err := ParseCombined([]byte{opNewTrie})
	if err == nil {
		t.Fatalf("expected ParseCombined to reject NewTrie with an empty stack")
	}
}

func TestParseCombinedRejectsTrailingStack(t *testing.T) {
	w := &buf{}
	w.byte(opEmptyRoot)
	w.byte(opNewTrie)
	w.byte(opEmptyRoot)
	w.byte(opNewTrie)
	if _, err := ParseCombined(w.b); err == nil {
		t.Fatalf("expected ParseCombined to reject two sealed tries left on the stack")
	}
}
