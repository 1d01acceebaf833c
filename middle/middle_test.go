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
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/batch"
	"github.com/okx/zk-evm/mpt"
)

// newChain seeds a state trie with the beacon-roots account plus one fresh,
// empty account per address in extra, every one backed by a real (not
// hash-only) empty storage trie so later writes against it succeed.
func newChain(t *testing.T, extra ...common.Address) (*mpt.StateMpt, map[common.Hash]*mpt.StorageTrie) {
	t.Helper()
	state := mpt.NewStateMpt()
	storage := map[common.Hash]*mpt.StorageTrie{}

	seed := func(addr common.Address) {
		if err := state.Update(addr, mpt.EmptyAccount()); err != nil {
			t.Fatalf("seeding %s: %v", addr, err)
		}
		storage[crypto.Keccak256Hash(addr[:])] = mpt.NewStorageTrie()
	}
	seed(BeaconRootsContractAddress)
	for _, addr := range extra {
		seed(addr)
	}
	return state, storage
}

func realTxn(gasUsed uint64, status uint64, traces map[common.Address]TxnTrace) TxnInfo {
	return TxnInfo{
		Traces: traces,
		Meta: TxnMeta{
			ByteCode:     []byte{0x60, 0x01, 0x00},
			ReceiptBytes: legacyReceipt(status),
			GasUsed:      gasUsed,
		},
	}
}

func TestRunEmptyBlock(t *testing.T) {
	state, storage := newChain(t)
	before, err := state.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	batches := batch.Split([]TxnInfo{}, 0)
	results, err := Run(state, storage, batches, mpt.NewHash2Code(), 0, common.Hash{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d batches, want 2 dummy batches", len(results))
	}

	last := results[len(results)-1]
	if last.After.StateRoot != before {
		t.Fatalf("after.state_root = %s, want unchanged %s", last.After.StateRoot, before)
	}
	var totalGas uint64
	for _, b := range results {
		totalGas += b.GasUsed
	}
	if totalGas != 0 {
		t.Fatalf("gas_used_after[last] = %d, want 0", totalGas)
	}
}

func TestRunGasMonotonicity(t *testing.T) {
	addr := common.HexToAddress("0x1234000000000000000000000000000000abcd")
	state, storage := newChain(t, addr)

	txns := []TxnInfo{
		realTxn(100, 1, nil),
		realTxn(200, 1, nil),
		realTxn(300, 1, nil),
	}
	batches := batch.Split(txns, 2)
	results, err := Run(state, storage, batches, mpt.NewHash2Code(), 0, common.Hash{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var cumulative uint64
	var prev uint64
	for i, b := range results {
		cumulative += b.GasUsed
		if cumulative < prev {
			t.Fatalf("batch %d: cumulative gas went down: %d -> %d", i, prev, cumulative)
		}
		prev = cumulative
	}
	if cumulative != 600 {
		t.Fatalf("total gas = %d, want 600", cumulative)
	}
}

func TestRunStorageRootCoherence(t *testing.T) {
	addr := common.HexToAddress("0x1234000000000000000000000000000000abcd")
	state, storage := newChain(t, addr)

	trace := TxnTrace{
		StorageWritten: map[common.Hash]*uint256.Int{
			{}: uint256.NewInt(2),
		},
	}
	txns := []TxnInfo{realTxn(21000, 1, map[common.Address]TxnTrace{addr: trace})}
	batches := batch.Split(txns, 0)

	_, err := Run(state, storage, batches, mpt.NewHash2Code(), 0, common.Hash{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	acct, err := state.Get(addr)
	if err != nil {
		t.Fatalf("Get(addr): %v", err)
	}
	addrHash := crypto.Keccak256Hash(addr[:])
	storageRoot, err := storage[addrHash].Hash()
	if err != nil {
		t.Fatalf("storage.Hash: %v", err)
	}
	if acct.StorageRoot != storageRoot {
		t.Fatalf("account storage_root = %s, want %s", acct.StorageRoot, storageRoot)
	}
}

func TestRunSelfDestruct(t *testing.T) {
	addr := common.HexToAddress("0x1234000000000000000000000000000000abcd")
	state, storage := newChain(t, addr)

	trace := TxnTrace{SelfDestructed: true}
	txns := []TxnInfo{realTxn(21000, 1, map[common.Address]TxnTrace{addr: trace})}
	batches := batch.Split(txns, 0)

	_, err := Run(state, storage, batches, mpt.NewHash2Code(), 0, common.Hash{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := state.Get(addr); !errors.Is(err, mpt.ErrKeyNotFound) {
		t.Fatalf("state.Get(addr) after self-destruct = %v, want ErrKeyNotFound", err)
	}
	if _, ok := storage[crypto.Keccak256Hash(addr[:])]; ok {
		t.Fatalf("storage map still holds an entry for a self-destructed address")
	}
}

func TestRunPrecompileElision(t *testing.T) {
	precompile := common.HexToAddress("0x0000000000000000000000000000000000000a")

	t.Run("successful access omitted", func(t *testing.T) {
		state, storage := newChain(t, precompile)
		txns := []TxnInfo{realTxn(21000, 1, map[common.Address]TxnTrace{precompile: {}})}
		batches := batch.Split(txns, 0)
		results, err := Run(state, storage, batches, mpt.NewHash2Code(), 0, common.Hash{}, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if _, err := results[0].Before.State.Get(precompile); err == nil {
			t.Fatalf("successful precompile access was kept in the witness")
		}
	})

	t.Run("failed access kept", func(t *testing.T) {
		state, storage := newChain(t, precompile)
		txns := []TxnInfo{realTxn(21000, 0, map[common.Address]TxnTrace{precompile: {}})}
		batches := batch.Split(txns, 0)
		results, err := Run(state, storage, batches, mpt.NewHash2Code(), 0, common.Hash{}, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if _, err := results[0].Before.State.Get(precompile); err != nil {
			t.Fatalf("failed precompile access was dropped from the witness: %v", err)
		}
	})
}

func TestRunWithdrawals(t *testing.T) {
	addr1 := common.HexToAddress("0x1111000000000000000000000000000000abcd")
	addr2 := common.HexToAddress("0x2222000000000000000000000000000000abcd")
	state, storage := newChain(t, addr1, addr2)

	for _, addr := range []common.Address{addr1, addr2} {
		acct, err := state.Get(addr)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		acct.Balance = uint256.NewInt(1_000_000)
		if err := state.Update(addr, acct); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	withdrawals := []Withdrawal{
		{Address: addr1, AmountWei: uint256.NewInt(5_000_000_000)},
		{Address: addr2, AmountWei: uint256.NewInt(7_000_000_000)},
	}
	batches := batch.Split([]TxnInfo{}, 0)
	results, err := Run(state, storage, batches, mpt.NewHash2Code(), 0, common.Hash{}, withdrawals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	acct1, err := state.Get(addr1)
	if err != nil {
		t.Fatalf("Get(addr1): %v", err)
	}
	if acct1.Balance.Cmp(uint256.NewInt(1_000_000+5_000_000_000)) != 0 {
		t.Fatalf("addr1 balance = %s, want %d", acct1.Balance, uint64(1_000_000+5_000_000_000))
	}
	acct2, err := state.Get(addr2)
	if err != nil {
		t.Fatalf("Get(addr2): %v", err)
	}
	if acct2.Balance.Cmp(uint256.NewInt(1_000_000+7_000_000_000)) != 0 {
		t.Fatalf("addr2 balance = %s, want %d", acct2.Balance, uint64(1_000_000+7_000_000_000))
	}

	last := results[len(results)-1]
	if _, err := last.Before.State.Get(addr1); err != nil {
		t.Fatalf("addr1 missing from final batch's state mask: %v", err)
	}
	if _, err := last.Before.State.Get(addr2); err != nil {
		t.Fatalf("addr2 missing from final batch's state mask: %v", err)
	}
}
