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
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/mpt/rlp"
)

// EmptyCodeHash is the Keccak-256 hash of the empty byte string, the
// CodeHash carried by every externally-owned account and by any contract
// account whose code was never observed.
var EmptyCodeHash = common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

// EmptyRootHash is the root hash of an empty storage trie, the StorageRoot
// carried by every account that has never written a storage slot.
var EmptyRootHash = emptyRootHash

// AccountInfo is the four-field record stored at each leaf of a StateMpt,
// the canonical Ethereum account record.
type AccountInfo struct {
	Nonce       uint64
	Balance     *uint256.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
}

// EmptyAccount returns the account record for an address that has never
// been touched: zero nonce and balance, empty storage, empty code.
func EmptyAccount() AccountInfo {
	return AccountInfo{
		Balance:     uint256.NewInt(0),
		StorageRoot: EmptyRootHash,
		CodeHash:    EmptyCodeHash,
	}
}

// IsEmpty reports whether the account is indistinguishable from one that
// was never created, the condition under which Ethereum's state clearing
// rules (EIP-161) delete an account rather than storing it.
func (a AccountInfo) IsEmpty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && a.CodeHash == EmptyCodeHash
}

// Encode serializes the account the way it is stored at a StateMpt leaf:
// an RLP list of [nonce, balance, storageRoot, codeHash].
func (a AccountInfo) Encode() []byte {
	balance := a.Balance
	if balance == nil {
		balance = uint256.NewInt(0)
	}
	return rlp.Encode(rlp.List{Items: []rlp.Item{
		rlp.Uint64{Value: a.Nonce},
		rlp.BigInt{Value: balance.ToBig()},
		rlp.String{Str: a.StorageRoot.Bytes()},
		rlp.String{Str: a.CodeHash.Bytes()},
	}})
}

// DecodeAccount parses the leaf payload produced by Encode.
func DecodeAccount(data []byte) (AccountInfo, error) {
	item, err := rlp.Decode(data)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("decoding account: %w", err)
	}
	list, ok := item.(rlp.List)
	if !ok || len(list.Items) != 4 {
		return AccountInfo{}, fmt.Errorf("account RLP must be a 4-element list")
	}
	nonceItem, ok := list.Items[0].(rlp.String)
	if !ok {
		return AccountInfo{}, fmt.Errorf("invalid account nonce encoding")
	}
	nonce, err := nonceItem.Uint64()
	if err != nil {
		return AccountInfo{}, fmt.Errorf("invalid account nonce: %w", err)
	}
	balanceItem, ok := list.Items[1].(rlp.String)
	if !ok {
		return AccountInfo{}, fmt.Errorf("invalid account balance encoding")
	}
	balance, overflow := uint256.FromBig(balanceItem.BigInt())
	if overflow {
		return AccountInfo{}, fmt.Errorf("account balance overflows 256 bits")
	}
	rootItem, ok := list.Items[2].(rlp.String)
	if !ok || len(rootItem.Str) != common.HashLength {
		return AccountInfo{}, fmt.Errorf("invalid account storage root encoding")
	}
	codeItem, ok := list.Items[3].(rlp.String)
	if !ok || len(codeItem.Str) != common.HashLength {
		return AccountInfo{}, fmt.Errorf("invalid account code hash encoding")
	}
	return AccountInfo{
		Nonce:       nonce,
		Balance:     balance,
		StorageRoot: common.BytesToHash(rootItem.Str),
		CodeHash:    common.BytesToHash(codeItem.Str),
	}, nil
}

// bigIntOrZero converts a nilable *big.Int balance to a *uint256.Int,
// treating nil as zero.
func bigIntOrZero(v *big.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	u, _ := uint256.FromBig(v)
	return u
}
