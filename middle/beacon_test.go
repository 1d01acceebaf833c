// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package middle

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/mpt"
)

func newBeaconState(t *testing.T) (*mpt.StateMpt, map[common.Hash]*mpt.StorageTrie) {
	t.Helper()
	state := mpt.NewStateMpt()
	if err := state.Update(BeaconRootsContractAddress, mpt.EmptyAccount()); err != nil {
		t.Fatalf("seeding beacon account: %v", err)
	}
	addrHash := crypto.Keccak256Hash(BeaconRootsContractAddress[:])
	storage := map[common.Hash]*mpt.StorageTrie{addrHash: mpt.NewStorageTrie()}
	return state, storage
}

func slotHashFor(slotIndex uint64) common.Hash {
	var be [32]byte
	binary.BigEndian.PutUint64(be[24:], slotIndex)
	return crypto.Keccak256Hash(be[:])
}

func TestApplyBeaconRootWritesSlots(t *testing.T) {
	state, storage := newBeaconState(t)
	const timestamp = uint64(1_700_000_123)
	parentRoot := common.HexToHash("0xABABABABABABABABABABABABABABABABABABABABABABABABABABABABABABCD")

	mask := mpt.NewKeySet()
	tries := IntraBlockTries{State: state, Storage: storage}
	if _, err := ApplyBeaconRoot(tries, mask, timestamp, parentRoot); err != nil {
		t.Fatalf("ApplyBeaconRoot: %v", err)
	}

	addrHash := crypto.Keccak256Hash(BeaconRootsContractAddress[:])
	st := storage[addrHash]

	historyTimestamp := timestamp % HistoryBufferLength
	v, err := st.Get(slotHashFor(historyTimestamp))
	if err != nil {
		t.Fatalf("Get(timestamp slot): %v", err)
	}
	if v.Cmp(uint256.NewInt(timestamp)) != 0 {
		t.Fatalf("timestamp slot = %s, want %d", v, timestamp)
	}

	v, err = st.Get(slotHashFor(historyTimestamp + HistoryBufferLength))
	if err != nil {
		t.Fatalf("Get(root slot): %v", err)
	}
	want := new(uint256.Int).SetBytes(parentRoot[:])
	if v.Cmp(want) != 0 {
		t.Fatalf("root slot = %s, want %s", v, want)
	}
}

func TestApplyBeaconRootIdempotentOnZeroRoot(t *testing.T) {
	state, storage := newBeaconState(t)
	before, err := state.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	mask := mpt.NewKeySet()
	tries := IntraBlockTries{State: state, Storage: storage}
	if _, err := ApplyBeaconRoot(tries, mask, 0, common.Hash{}); err != nil {
		t.Fatalf("ApplyBeaconRoot: %v", err)
	}

	after, err := state.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if before != after {
		t.Fatalf("state root changed on a zero-valued beacon hook: %s -> %s", before, after)
	}
}

func TestApplyBeaconRootMissingContract(t *testing.T) {
	state := mpt.NewStateMpt()
	storage := map[common.Hash]*mpt.StorageTrie{}
	mask := mpt.NewKeySet()
	tries := IntraBlockTries{State: state, Storage: storage}
	_, err := ApplyBeaconRoot(tries, mask, 1, common.Hash{})
	if !errors.Is(err, ErrMissingBeaconContract) {
		t.Fatalf("ApplyBeaconRoot = %v, want ErrMissingBeaconContract", err)
	}
}
