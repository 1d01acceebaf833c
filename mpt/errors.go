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

// ConstError is a trivial error type allowing error values to be declared as
// untyped package-level constants, comparable with == and usable in switch
// statements, unlike errors produced by errors.New.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

const (
	// ErrUnresolvedSubtree is returned whenever an operation needs to read or
	// descend through a part of a trie that is only known by its hash, such
	// as a subtree pruned by Mask or never expanded by a direct pre-image.
	ErrUnresolvedSubtree = ConstError("mpt: subtree not resolved in partial trie")

	// ErrKeyNotFound is returned by Get and ReportingRemove when no value is
	// stored at the requested key.
	ErrKeyNotFound = ConstError("mpt: key not found")

	// ErrInvalidKey is returned when a key is malformed for the operation
	// being performed, e.g. inserting a value at a key with trailing bytes
	// that collide with an existing leaf of different length.
	ErrInvalidKey = ConstError("mpt: invalid key for operation")
)
