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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/mpt"
)

// ContractCodeUsage records how a transaction trace touched contract code:
// exactly one of ReadCode or WriteCode, mirroring the upstream trace's
// Read(hash)/Write(bytes) tagged union. Modeled as a marker interface over
// two concrete variants rather than an enum class, the same shape mpt.Node
// uses for its own tagged union of node kinds.
type ContractCodeUsage interface {
	isContractCodeUsage()
}

// ReadCode names code already known to the registry by its hash.
type ReadCode struct {
	Hash common.Hash
}

func (ReadCode) isContractCodeUsage() {}

// WriteCode supplies code bytes not yet known to the registry.
type WriteCode struct {
	Code []byte
}

func (WriteCode) isContractCodeUsage() {}

// TxnTrace is the effect one transaction had on one address: the fields the
// replay loop needs to bring the account and its storage up to date.
// Balance and Nonce are nil when the trace leaves them unchanged.
type TxnTrace struct {
	Balance        *uint256.Int
	Nonce          *uint64
	StorageRead    map[common.Hash]struct{}
	StorageWritten map[common.Hash]*uint256.Int
	CodeUsage      ContractCodeUsage
	SelfDestructed bool
}

// isDefault reports whether trace carries no information at all, the
// "just_access" condition of the replay loop: every read-only access trace
// whose fields are otherwise all zero/nil/empty.
func (t TxnTrace) isDefault() bool {
	return t.Balance == nil && t.Nonce == nil && len(t.StorageRead) == 0 &&
		len(t.StorageWritten) == 0 && t.CodeUsage == nil && !t.SelfDestructed
}

// TxnMeta carries the per-transaction fields outside the per-address trace
// map: its consensus encoding, its receipt bytes as received from upstream
// (Run validates them with NormalizeReceipt), and the gas it consumed.
type TxnMeta struct {
	ByteCode     []byte
	ReceiptBytes []byte
	GasUsed      uint64
}

// TxnInfo is one transaction's full trace: its per-address effects plus its
// metadata. The zero value is the "dummy" transaction a batch pads with:
// empty traces, no byte code, zero gas.
type TxnInfo struct {
	Traces map[common.Address]TxnTrace
	Meta   TxnMeta
}

// Withdrawal is one validator withdrawal, already denominated in Wei (the
// entrypoint converts from the wire's Gwei before calling Run).
type Withdrawal struct {
	Address   common.Address
	AmountWei *uint256.Int
}

// IntraBlockTries bundles the four tries a batch's witness is built from.
type IntraBlockTries struct {
	State       *mpt.StateMpt
	Storage     map[common.Hash]*mpt.StorageTrie
	Transaction *mpt.TransactionTrie
	Receipt     *mpt.ReceiptTrie
}

// Clone returns an independent snapshot of every trie, sharing no mutable
// state with the original (see mpt.Trie.Clone: this is O(1) thanks to
// copy-on-write nodes, not a deep traversal).
func (b IntraBlockTries) Clone() IntraBlockTries {
	storage := make(map[common.Hash]*mpt.StorageTrie, len(b.Storage))
	for addr, trie := range b.Storage {
		storage[addr] = trie.Clone()
	}
	return IntraBlockTries{
		State:       b.State.Clone(),
		Storage:     storage,
		Transaction: b.Transaction.Clone(),
		Receipt:     b.Receipt.Clone(),
	}
}

// TrieRoots is the post-batch root of the state, transaction, and receipt
// tries.
type TrieRoots struct {
	StateRoot       common.Hash
	TransactionRoot common.Hash
	ReceiptRoot     common.Hash
}

// Batch is one prover unit emitted by Run: everything a downstream prover
// needs to replay and verify one batch's transactions in isolation.
type Batch struct {
	FirstTxnIx   int
	GasUsed      uint64
	ContractCode map[common.Hash][]byte
	ByteCode     [][]byte
	Before       IntraBlockTries
	After        TrieRoots
	Withdrawals  []Withdrawal
}
