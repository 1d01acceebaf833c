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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/mpt"
)

// BeaconRootsContractAddress is the EIP-4788 beacon-roots predeploy.
var BeaconRootsContractAddress = common.HexToAddress("0x000F3df6D732807Ef1319fB7B8bB8522d0Beac02")

// HistoryBufferLength is the modulus the beacon-roots contract rotates its
// ring buffer of timestamps and roots through.
const HistoryBufferLength = 8191

// ApplyBeaconRoot performs the EIP-4788 pre-transaction write: it mirrors
// the parent beacon block root, and the current block's timestamp, into
// the beacon-roots contract's storage, the hook every block runs before its
// first batch regardless of whether the block contains any transactions.
// It adds the beacon address to stateMask and returns the set of storage
// slots touched, for the caller to fold into that address's storage mask.
func ApplyBeaconRoot(
	tries IntraBlockTries,
	stateMask *mpt.KeySet,
	blockTimestamp uint64,
	parentBeaconBlockRoot common.Hash,
) (*mpt.KeySet, error) {
	addrHash := crypto.Keccak256Hash(BeaconRootsContractAddress[:])
	acctKey := mpt.KeyFromHash(addrHash)
	acct, err := tries.State.GetAtKey(acctKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingBeaconContract, err)
	}
	storage, ok := tries.Storage[addrHash]
	if !ok {
		return nil, ErrMissingBeaconContract
	}

	historyTimestamp := blockTimestamp % HistoryBufferLength
	historyTimestampNext := historyTimestamp + HistoryBufferLength

	beaconMask := mpt.NewKeySet()
	writes := []struct {
		slotIndex uint64
		value     *uint256.Int
	}{
		{historyTimestamp, uint256.NewInt(blockTimestamp)},
		{historyTimestampNext, new(uint256.Int).SetBytes(parentBeaconBlockRoot[:])},
	}
	for _, w := range writes {
		slot := slotKey(w.slotIndex)
		if w.value.IsZero() {
			removed, err := storage.ReportingRemove(slotKeyHash(w.slotIndex))
			if err != nil && err != mpt.ErrKeyNotFound {
				return nil, err
			}
			for _, k := range removed {
				beaconMask.Add(k)
			}
			beaconMask.Add(slot)
			continue
		}
		if err := storage.Update(slotKeyHash(w.slotIndex), w.value); err != nil {
			return nil, err
		}
		beaconMask.Add(slot)
	}

	root, err := storage.Hash()
	if err != nil {
		return nil, err
	}
	acct.StorageRoot = root
	if err := tries.State.InsertAtKey(acctKey, acct); err != nil {
		return nil, err
	}
	stateMask.Add(acctKey)

	return beaconMask, nil
}

func slotKeyHash(slotIndex uint64) common.Hash {
	var be [32]byte
	binary.BigEndian.PutUint64(be[24:], slotIndex)
	return crypto.Keccak256Hash(be[:])
}

func slotKey(slotIndex uint64) mpt.TrieKey {
	return mpt.KeyFromHash(slotKeyHash(slotIndex))
}
