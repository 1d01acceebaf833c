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
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/batch"
	"github.com/okx/zk-evm/mpt"
)

// Run replays every batch's transactions against the supplied pre-state,
// producing one middle.Batch per input batch: its before/after witnesses,
// gas usage, referenced code, and (on the final batch) the withdrawals.
//
// state and storageMap are taken as the block's pre-state and are mutated
// in place as replay proceeds; callers that need the original pre-state
// afterwards should clone beforehand.
func Run(
	state *mpt.StateMpt,
	storageMap map[common.Hash]*mpt.StorageTrie,
	batches []batch.Batch[TxnInfo],
	code *mpt.Hash2Code,
	blockTimestamp uint64,
	parentBeaconBlockRoot common.Hash,
	withdrawals []Withdrawal,
) ([]Batch, error) {
	if err := reconcileStorage(state, storageMap); err != nil {
		return nil, err
	}

	r := &replay{
		live: IntraBlockTries{
			State:       state,
			Storage:     storageMap,
			Transaction: mpt.NewTransactionTrie(),
			Receipt:     mpt.NewReceiptTrie(),
		},
		code: code,
	}

	totalSlots := 0
	for _, b := range batches {
		totalSlots += b.Len()
	}

	results := make([]Batch, 0, len(batches))
	txnIx, loopIx := 0, 0
	remainingWithdrawals := withdrawals

	for _, b := range batches {
		before := r.live.Clone()
		firstTxnIx := txnIx
		r.startBatch()

		if txnIx == 0 {
			beaconMask, err := ApplyBeaconRoot(r.live, r.stateMask, blockTimestamp, parentBeaconBlockRoot)
			if err != nil {
				return nil, err
			}
			beaconAddrHash := crypto.Keccak256Hash(BeaconRootsContractAddress[:])
			r.storageMaskFor(beaconAddrHash).Merge(beaconMask)
		}

		for _, slot := range b.Txns {
			if err := r.applySlot(txnIx, slot); err != nil {
				return nil, err
			}
			if slot != nil {
				txnIx++
			}
			loopIx++

			if loopIx == totalSlots {
				applied, err := r.applyWithdrawals(remainingWithdrawals)
				if err != nil {
					return nil, err
				}
				r.batchWithdrawals = applied
				remainingWithdrawals = nil
			}
		}

		after, err := r.maskAndSealBatch(before, firstTxnIx, txnIx)
		if err != nil {
			return nil, err
		}
		results = append(results, Batch{
			FirstTxnIx:   firstTxnIx,
			GasUsed:      r.batchGasUsed,
			ContractCode: r.batchContractCode,
			ByteCode:     r.batchByteCode,
			Before:       before,
			After:        after,
			Withdrawals:  r.batchWithdrawals,
		})
	}

	return results, nil
}

// reconcileStorage implements Phase A: every account's declared storage
// root must match the supplied storage trie, and every account without one
// gets a synthetic hash-only trie standing in for its untouched storage.
func reconcileStorage(state *mpt.StateMpt, storageMap map[common.Hash]*mpt.StorageTrie) error {
	return state.ForEach(func(addrHash common.Hash, account mpt.AccountInfo) error {
		trie, ok := storageMap[addrHash]
		if !ok {
			synthetic := mpt.NewStorageTrie()
			if err := synthetic.InsertHashAtKey(mpt.EmptyKey(), account.StorageRoot); err != nil {
				return err
			}
			storageMap[addrHash] = synthetic
			return nil
		}
		root, err := trie.Hash()
		if err != nil {
			return err
		}
		if root != account.StorageRoot {
			return fmt.Errorf("%w: %s", ErrInconsistentInitialStorage, addrHash)
		}
		return nil
	})
}

// replay holds the block-level, ever-mutating tries plus the per-batch
// witness accumulators that are reset at the start of every batch.
type replay struct {
	live IntraBlockTries
	code *mpt.Hash2Code

	stateMask         *mpt.KeySet
	storageMasks      map[common.Hash]*mpt.KeySet
	batchGasUsed      uint64
	batchByteCode     [][]byte
	batchContractCode map[common.Hash][]byte
	batchWithdrawals  []Withdrawal
}

func (r *replay) startBatch() {
	r.stateMask = mpt.NewKeySet()
	r.storageMasks = map[common.Hash]*mpt.KeySet{}
	r.batchGasUsed = 0
	r.batchByteCode = nil
	r.batchContractCode = map[common.Hash][]byte{mpt.EmptyCodeHash: {}}
	r.batchWithdrawals = nil
}

func (r *replay) storageMaskFor(addrHash common.Hash) *mpt.KeySet {
	s, ok := r.storageMasks[addrHash]
	if !ok {
		s = mpt.NewKeySet()
		r.storageMasks[addrHash] = s
	}
	return s
}

// applySlot applies one batch slot (txnIx is this slot's transaction index
// whether or not it turns out to be a dummy). info is nil for a dummy slot.
func (r *replay) applySlot(txnIx int, info *TxnInfo) error {
	var in TxnInfo
	if info != nil {
		in = *info
	}

	var normalizedReceipt []byte
	if len(in.Meta.ByteCode) > 0 {
		r.batchByteCode = append(r.batchByteCode, in.Meta.ByteCode)
		if err := r.live.Transaction.Insert(txnIx, in.Meta.ByteCode); err != nil {
			return err
		}
		normalized, err := NormalizeReceipt(in.Meta.ReceiptBytes)
		if err != nil {
			return err
		}
		normalizedReceipt = normalized
		if err := r.live.Receipt.Insert(txnIx, normalized); err != nil {
			return err
		}
	}
	r.batchGasUsed += in.Meta.GasUsed

	var receiptStatus bool
	if len(in.Traces) > 0 {
		if normalizedReceipt == nil {
			normalized, err := NormalizeReceipt(in.Meta.ReceiptBytes)
			if err != nil {
				return err
			}
			normalizedReceipt = normalized
		}
		status, err := decodeReceiptStatus(normalizedReceipt)
		if err != nil {
			return err
		}
		receiptStatus = status
	}

	for _, addr := range sortedAddresses(in.Traces) {
		if err := r.applyAddressTrace(addr, in.Traces[addr], receiptStatus); err != nil {
			return err
		}
	}
	return nil
}

func (r *replay) applyAddressTrace(addr common.Address, trace TxnTrace, receiptStatus bool) error {
	justAccess := trace.isDefault()

	acct, err := r.live.State.Get(addr)
	born := false
	switch {
	case err == mpt.ErrKeyNotFound:
		born = true
		acct = mpt.EmptyAccount()
	case err != nil:
		return fmt.Errorf("%w: address %s: %v", ErrStateUnreachable, addr, err)
	}

	if born || justAccess {
		probe := r.live.State.Clone()
		if err := probe.Update(addr, acct); err != nil {
			return fmt.Errorf("%w: address %s: %v", ErrStateUnreachable, addr, err)
		}
	}

	doWrites := !justAccess && (!born || receiptStatus)

	addrHash := crypto.Keccak256Hash(addr[:])
	mask := r.storageMaskFor(addrHash)
	for rawSlot := range trace.StorageWritten {
		mask.Add(mpt.KeyFromHash(crypto.Keccak256Hash(rawSlot[:])))
	}
	for rawSlot := range trace.StorageRead {
		mask.Add(mpt.KeyFromHash(crypto.Keccak256Hash(rawSlot[:])))
	}

	if doWrites {
		if trace.Balance != nil {
			acct.Balance = trace.Balance
		}
		if trace.Nonce != nil {
			acct.Nonce = *trace.Nonce
		}

		switch cu := trace.CodeUsage.(type) {
		case ReadCode:
			c, ok := r.code.Get(cu.Hash)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownCode, cu.Hash)
			}
			r.batchContractCode[cu.Hash] = c
			acct.CodeHash = cu.Hash
		case WriteCode:
			hash := r.code.Insert(cu.Code)
			r.batchContractCode[hash] = cu.Code
			acct.CodeHash = hash
		}

		if len(trace.StorageWritten) > 0 {
			storageTrie, ok := r.live.Storage[addrHash]
			if !ok {
				if !born {
					return fmt.Errorf("%w: %s", ErrMissingStorageTrie, addr)
				}
				storageTrie = mpt.NewStorageTrie()
				r.live.Storage[addrHash] = storageTrie
			}
			for _, rawSlot := range sortedHashes(trace.StorageWritten) {
				v := trace.StorageWritten[rawSlot]
				hashedSlot := crypto.Keccak256Hash(rawSlot[:])
				if v == nil || v.IsZero() {
					removed, err := storageTrie.ReportingRemove(hashedSlot)
					if err != nil && err != mpt.ErrKeyNotFound {
						return err
					}
					for _, k := range removed {
						mask.Add(k)
					}
					continue
				}
				if err := storageTrie.Update(hashedSlot, v); err != nil {
					return err
				}
			}
			root, err := storageTrie.Hash()
			if err != nil {
				return err
			}
			acct.StorageRoot = root
		}

		if err := r.live.State.Update(addr, acct); err != nil {
			return err
		}
		r.stateMask.Add(mpt.KeyFromAddress(addr))
	} else if !receiptStatus || !isPrecompile(addr) {
		// Successful read-only accesses to precompiles are the one
		// intentional witness-size optimization: the verifier can derive a
		// precompile's untouched state without that leaf, so only a failed
		// call (which might have gone through normal account code instead)
		// forces it into the mask.
		r.stateMask.Add(mpt.KeyFromAddress(addr))
	}

	if trace.SelfDestructed {
		delete(r.live.Storage, addrHash)
		removed, err := r.live.State.ReportingRemove(addr)
		if err != nil && err != mpt.ErrKeyNotFound {
			return err
		}
		for _, k := range removed {
			r.stateMask.Add(k)
		}
	}

	return nil
}

func (r *replay) applyWithdrawals(withdrawals []Withdrawal) ([]Withdrawal, error) {
	for _, w := range withdrawals {
		acct, err := r.live.State.Get(w.Address)
		switch {
		case err == mpt.ErrKeyNotFound:
			acct = mpt.EmptyAccount()
		case err != nil:
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWithdrawalAddress, w.Address, err)
		}
		if acct.Balance == nil {
			acct.Balance = uint256.NewInt(0)
		}
		acct.Balance = new(uint256.Int).Add(acct.Balance, w.AmountWei)
		if err := r.live.State.Update(w.Address, acct); err != nil {
			return nil, err
		}
		r.stateMask.Add(mpt.KeyFromAddress(w.Address))
	}
	return withdrawals, nil
}

func (r *replay) maskAndSealBatch(before IntraBlockTries, firstTxnIx, txnIx int) (TrieRoots, error) {
	if err := before.State.MaskAtKeys(r.stateMask.Keys()); err != nil {
		return TrieRoots{}, err
	}
	if err := before.Transaction.MaskRange(firstTxnIx, txnIx); err != nil {
		return TrieRoots{}, err
	}
	if err := before.Receipt.MaskRange(firstTxnIx, txnIx); err != nil {
		return TrieRoots{}, err
	}
	for addrHash, mask := range r.storageMasks {
		trie, ok := before.Storage[addrHash]
		if !ok {
			continue
		}
		if err := trie.MaskAtKeys(mask.Keys()); err != nil {
			return TrieRoots{}, err
		}
	}
	for addrHash := range before.Storage {
		if _, ok := r.storageMasks[addrHash]; !ok {
			delete(before.Storage, addrHash)
		}
	}

	stateRoot, err := r.live.State.Hash()
	if err != nil {
		return TrieRoots{}, err
	}
	txnRoot, err := r.live.Transaction.Hash()
	if err != nil {
		return TrieRoots{}, err
	}
	receiptRoot, err := r.live.Receipt.Hash()
	if err != nil {
		return TrieRoots{}, err
	}
	return TrieRoots{StateRoot: stateRoot, TransactionRoot: txnRoot, ReceiptRoot: receiptRoot}, nil
}

func isPrecompile(addr common.Address) bool {
	for i := 0; i < len(addr)-1; i++ {
		if addr[i] != 0 {
			return false
		}
	}
	last := addr[len(addr)-1]
	return last >= 0x01 && last <= 0x0a
}

func sortedAddresses(traces map[common.Address]TxnTrace) []common.Address {
	addrs := make([]common.Address, 0, len(traces))
	for addr := range traces {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs
}

func sortedHashes(values map[common.Hash]*uint256.Int) []common.Hash {
	hashes := make([]common.Hash, 0, len(values))
	for h := range values {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return hashes
}
