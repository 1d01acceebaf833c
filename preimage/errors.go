// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package preimage reconstructs typed tries from the two pre-state wire
// formats a block trace may carry: a compact "combined" stack-machine
// encoding, and an already-structured "separate" trie dump.
package preimage

// ConstError is a trivial comparable error type, mirroring mpt.ConstError.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

const (
	// ErrTruncatedInput is returned when the byte stream ends in the middle
	// of an opcode's operands.
	ErrTruncatedInput = ConstError("preimage: truncated input")

	// ErrUnsupportedOpcode is returned for an unrecognized or reserved tag
	// byte.
	ErrUnsupportedOpcode = ConstError("preimage: unsupported opcode")

	// ErrStackUnderflow is returned when an opcode needs more stack entries
	// than are available, or an entry of the wrong kind.
	ErrStackUnderflow = ConstError("preimage: stack underflow")

	// ErrTrailingBytes is returned when the opcode stream is exhausted but
	// more than one entry remains on the parse stack, meaning the stream
	// described more than one sealed trie's worth of structure.
	ErrTrailingBytes = ConstError("preimage: trailing bytes after last opcode")

	// ErrInvalidPreImage is the catch-all for a structurally well-formed
	// byte stream that nonetheless fails to describe a valid pre-image: a
	// final stack that isn't exactly one sealed trie, an account path
	// shorter than 64 nibbles, or an account whose RLP fails to decode.
	ErrInvalidPreImage = ConstError("preimage: invalid pre-image")
)
