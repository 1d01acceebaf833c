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
	"github.com/ethereum/go-ethereum/common"

	"github.com/okx/zk-evm/middle"
	"github.com/okx/zk-evm/mpt"
	"github.com/okx/zk-evm/preimage"
)

// TxnInfo, TxnMeta, TxnTrace and ContractCodeUsage (with its ReadCode/
// WriteCode variants) are the middle package's own types: the replay loop
// is what actually consumes a trace, so decoder aliases rather than
// re-declares them, the same way preimage's DirectEntry is consumed
// directly by mpt rather than re-typed at this layer.
type (
	TxnInfo           = middle.TxnInfo
	TxnMeta           = middle.TxnMeta
	TxnTrace          = middle.TxnTrace
	ContractCodeUsage = middle.ContractCodeUsage
	ReadCode          = middle.ReadCode
	WriteCode         = middle.WriteCode
)

// TriePreImages is the tagged union of the two pre-state wire shapes a
// block trace may carry: exactly one of Separate or Combined is set.
type TriePreImages struct {
	Separate *preimage.SeparateInput
	Combined []byte
}

// BlockTrace is the per-block input: the pre-state tries, the set of
// contract code referenced anywhere in the block, and each transaction's
// trace.
type BlockTrace struct {
	TriePreImages TriePreImages
	CodeDB        [][]byte
	TxnInfo       []TxnInfo
}

// WithdrawalGwei is one validator withdrawal as it arrives on the wire,
// denominated in Gwei; the entrypoint converts it to Wei before handing it
// to middle.Run.
type WithdrawalGwei struct {
	Address    common.Address
	AmountGwei uint64
}

// BlockMetadata is the static, per-block header data carried through to
// every GenerationInput verbatim, plus the two fields the beacon-roots
// hook needs to run.
type BlockMetadata struct {
	BlockNumber           uint64
	Timestamp             uint64
	ParentBeaconBlockRoot common.Hash
	Coinbase              common.Address
	GasLimit              uint64
	Difficulty            common.Hash
	BaseFeePerGas         common.Hash
	ChainID               uint64
}

// BlockHashes is the rolling window of ancestor block hashes plus the
// current block's own hash, unrelated to any trie and carried through
// verbatim.
type BlockHashes struct {
	Prev [256]common.Hash
	Cur  common.Hash
}

// OtherBlockData bundles everything about the block that isn't part of
// the trace itself: header metadata, ancestor hashes, withdrawals, and the
// checkpoint fields a prover chains batches against across blocks.
type OtherBlockData struct {
	BlockMetadata              BlockMetadata
	BlockHashes                BlockHashes
	Withdrawals                []WithdrawalGwei
	CheckpointStateTrieRoot    common.Hash
	CheckpointConsolidatedHash common.Hash
	BurnAddr                   *common.Address
}

// StorageWitness is one account's storage witness, paired with its hashed
// address the way GenerationInput shapes storage per spec.md §4.7 ("pairs
// of hashed-address, trie") rather than as a bare map.
type StorageWitness struct {
	AddrHash common.Hash
	Trie     *mpt.StorageTrie
}

// TrieWitness is one batch's before-snapshot: the four partial tries
// pruned to exactly what that batch's prover needs, with storage reshaped
// into ordered (hashed-address, trie) pairs.
type TrieWitness struct {
	State       *mpt.StateMpt
	Storage     []StorageWitness
	Transaction *mpt.TransactionTrie
	Receipt     *mpt.ReceiptTrie
}

// WithdrawalWei is a withdrawal after Gwei→Wei conversion, the shape every
// GenerationInput carries its withdrawals in.
type WithdrawalWei = middle.Withdrawal

// GenerationInput is one prover unit: a middle.Batch reshaped for the wire,
// with the running gas total and the block's static metadata and
// checkpoint fields attached.
type GenerationInput struct {
	FirstTxnIx    int
	GasUsedBefore uint64
	GasUsedAfter  uint64
	ContractCode  map[common.Hash][]byte
	ByteCode      [][]byte
	Before        TrieWitness
	After         middle.TrieRoots
	Withdrawals   []WithdrawalWei

	BlockMetadata              BlockMetadata
	BlockHashes                BlockHashes
	CheckpointStateTrieRoot    common.Hash
	CheckpointConsolidatedHash common.Hash
	BurnAddr                   *common.Address
}
