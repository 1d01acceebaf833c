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
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// NormalizeReceipt re-parses upstream receipt bytes into the form a
// ReceiptTrie leaf stores. go-ethereum's Receipt.UnmarshalBinary already
// distinguishes legacy (canonical RLP) receipts from EIP-2718 typed-envelope
// ones; either form, once confirmed to decode, passes through byte-for-byte
// unchanged, since that is the transaction trie/receipt trie's own leaf
// encoding.
func NormalizeReceipt(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty receipt bytes", ErrInvalidReceipt)
	}
	var r types.Receipt
	if err := r.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	return raw, nil
}

// decodeReceiptStatus extracts the post-EIP-658 status bit from
// already-normalized receipt bytes.
func decodeReceiptStatus(raw []byte) (bool, error) {
	var r types.Receipt
	if err := r.UnmarshalBinary(raw); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	return r.Status == types.ReceiptStatusSuccessful, nil
}
