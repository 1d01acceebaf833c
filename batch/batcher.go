// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package batch splits a block's transactions into the batches a prover
// consumes one at a time. It is generic over the transaction type so it has
// no dependency on the decoder package that defines TxnInfo; any caller
// supplying a slice of some transaction type gets the same splitting policy.
package batch

// Batch is one prover unit: a list of transaction slots, each either a real
// transaction or a dummy (nil Txn) that does not advance the transaction
// index.
type Batch[T any] struct {
	Txns []*T
}

// Len reports the number of slots, real or dummy, in the batch.
func (b Batch[T]) Len() int {
	return len(b.Txns)
}

// Split partitions txns into batches honoring hint, always returning at
// least two batches (downstream proving infrastructure requires it).
//
// Let h = max(hint, 1) and n = len(txns):
//   - if ceil(n/h) >= 2: chunk left-to-right into h-sized pieces (the last
//     piece may be shorter);
//   - else if n >= 2: split into two halves at n/2, the first half smaller
//     when n is odd;
//   - else (n in {0,1}): pad with dummies to exactly two singleton batches.
func Split[T any](txns []T, hint int) []Batch[T] {
	h := hint
	if h < 1 {
		h = 1
	}
	n := len(txns)

	if numChunks := ceilDiv(n, h); numChunks >= 2 {
		return chunk(txns, h)
	}
	if n >= 2 {
		first := n / 2
		return []Batch[T]{
			refsOf(txns[:first]),
			refsOf(txns[first:]),
		}
	}
	return padToTwoSingletons(txns)
}

func ceilDiv(n, h int) int {
	if n == 0 {
		return 0
	}
	return (n + h - 1) / h
}

func chunk[T any](txns []T, h int) []Batch[T] {
	var batches []Batch[T]
	for start := 0; start < len(txns); start += h {
		end := start + h
		if end > len(txns) {
			end = len(txns)
		}
		batches = append(batches, refsOf(txns[start:end]))
	}
	return batches
}

func refsOf[T any](txns []T) Batch[T] {
	refs := make([]*T, len(txns))
	for i := range txns {
		refs[i] = &txns[i]
	}
	return Batch[T]{Txns: refs}
}

func padToTwoSingletons[T any](txns []T) []Batch[T] {
	switch len(txns) {
	case 0:
		return []Batch[T]{{Txns: []*T{nil}}, {Txns: []*T{nil}}}
	default:
		return []Batch[T]{{Txns: []*T{&txns[0]}}, {Txns: []*T{nil}}}
	}
}
