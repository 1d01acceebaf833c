// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package decoder

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/batch"
	"github.com/okx/zk-evm/middle"
	"github.com/okx/zk-evm/mpt"
	"github.com/okx/zk-evm/preimage"
)

// gweiToWei is the EIP-4895 withdrawal unit: amounts on the consensus
// layer are denominated in Gwei, amounts in a GenerationInput are Wei.
var gweiToWei = uint256.NewInt(1_000_000_000)

// Decode is the single entrypoint tying the trie loaders, batcher, and
// replay loop together: one BlockTrace plus its companion OtherBlockData
// in, one GenerationInput per batch out.
func Decode(trace BlockTrace, other OtherBlockData, batchSizeHint int) ([]GenerationInput, error) {
	if batchSizeHint == 0 {
		return nil, ErrEmptyInputs
	}

	state, storageMap, code, err := loadPreImages(trace.TriePreImages)
	if err != nil {
		return nil, err
	}
	for _, c := range trace.CodeDB {
		code.Insert(c)
	}

	withdrawals := make([]middle.Withdrawal, len(other.Withdrawals))
	for i, w := range other.Withdrawals {
		withdrawals[i] = middle.Withdrawal{
			Address:   w.Address,
			AmountWei: new(uint256.Int).Mul(uint256.NewInt(w.AmountGwei), gweiToWei),
		}
	}

	batches := batch.Split(trace.TxnInfo, batchSizeHint)
	results, err := middle.Run(
		state,
		storageMap,
		batches,
		code,
		other.BlockMetadata.Timestamp,
		other.BlockMetadata.ParentBeaconBlockRoot,
		withdrawals,
	)
	if err != nil {
		return nil, err
	}

	inputs := make([]GenerationInput, 0, len(results))
	var gasUsedAfter uint64
	for _, b := range results {
		gasUsedBefore := gasUsedAfter
		gasUsedAfter += b.GasUsed

		inputs = append(inputs, GenerationInput{
			FirstTxnIx:    b.FirstTxnIx,
			GasUsedBefore: gasUsedBefore,
			GasUsedAfter:  gasUsedAfter,
			ContractCode:  b.ContractCode,
			ByteCode:      b.ByteCode,
			Before:        toTrieWitness(b.Before),
			After:         b.After,
			Withdrawals:   b.Withdrawals,

			BlockMetadata:              other.BlockMetadata,
			BlockHashes:                other.BlockHashes,
			CheckpointStateTrieRoot:    other.CheckpointStateTrieRoot,
			CheckpointConsolidatedHash: other.CheckpointConsolidatedHash,
			BurnAddr:                   other.BurnAddr,
		})
	}
	return inputs, nil
}

// loadPreImages dispatches on which variant of TriePreImages was supplied
// and returns a fresh, block-local code registry either way: the
// "separate" format never embeds bytecode (§4.2), so it starts from an
// empty registry for the entrypoint's later code_db merge to populate.
func loadPreImages(images TriePreImages) (*mpt.StateMpt, map[common.Hash]*mpt.StorageTrie, *mpt.Hash2Code, error) {
	switch {
	case images.Combined != nil:
		res, err := preimage.ParseCombined(images.Combined)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("decoding combined pre-image: %w", err)
		}
		return res.State, res.Storage, res.Code, nil
	case images.Separate != nil:
		res, err := preimage.LoadSeparate(*images.Separate)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("decoding separate pre-image: %w", err)
		}
		return res.State, res.Storage, mpt.NewHash2Code(), nil
	default:
		return nil, nil, nil, ErrMissingTriePreImages
	}
}

// toTrieWitness reshapes a middle.IntraBlockTries' storage map into the
// ordered (hashed-address, trie) pairs a GenerationInput carries, sorted
// by hashed address for byte-lexicographic determinism (property 10).
func toTrieWitness(tries middle.IntraBlockTries) TrieWitness {
	hashes := make([]common.Hash, 0, len(tries.Storage))
	for h := range tries.Storage {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})

	storage := make([]StorageWitness, 0, len(hashes))
	for _, h := range hashes {
		storage = append(storage, StorageWitness{AddrHash: h, Trie: tries.Storage[h]})
	}

	return TrieWitness{
		State:       tries.State,
		Storage:     storage,
		Transaction: tries.Transaction,
		Receipt:     tries.Receipt,
	}
}
