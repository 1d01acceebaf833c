// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package preimage

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okx/zk-evm/mpt"
)

// Opcode tags for the combined pre-image format: a compact byte stream of
// stack-machine instructions that build a trie frontend bottom-up.
const (
	opLeaf        byte = 0x00
	opExtension   byte = 0x01
	opBranch      byte = 0x02
	opHash        byte = 0x03
	opCode        byte = 0x04
	opAccountLeaf byte = 0x05
	opEmptyRoot   byte = 0x06
	opNewTrie     byte = 0x07
	// opReserved (0x08, "SmtLeaf") is recognized only to be rejected.
	opReserved byte = 0x08
)

// CombinedResult is the trie frontend recovered from a combined pre-image:
// the state trie, one storage trie per hashed address that had any storage
// opcodes, and the code registered along the way.
type CombinedResult struct {
	State   *mpt.StateMpt
	Storage map[common.Hash]*mpt.StorageTrie
	Code    *mpt.Hash2Code
}

// sealedTrie marks a RawNode as the deliberately-completed root of a
// subtrie (produced by NewTrie), distinguishing it on the stack from a
// node still mid-construction.
type sealedTrie struct{ raw mpt.RawNode }

// codeEntry marks a stack slot produced by opCode, consumed by the
// code-present operand of opAccountLeaf.
type codeEntry struct{ hash common.Hash }

// ParseCombined decodes a combined pre-image into its trie frontend. After
// the byte stream is exhausted the parse stack must contain exactly one
// entry: more than one is ErrTrailingBytes (the opcode stream ended with
// unconsumed stack entries left over), and zero entries or one entry that
// isn't a sealedTrie, the state trie, is ErrInvalidPreImage.
func ParseCombined(data []byte) (*CombinedResult, error) {
	p := &combinedParser{
		data:    data,
		code:    mpt.NewHash2Code(),
		storage: map[common.Hash]*mpt.StorageTrie{},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	if len(p.stack) > 1 {
		return nil, fmt.Errorf("%w: %d entries remain on the stack after the last opcode", ErrTrailingBytes, len(p.stack))
	}
	if len(p.stack) == 0 {
		return nil, fmt.Errorf("%w: no sealed trie produced", ErrInvalidPreImage)
	}
	top, ok := p.stack[0].(sealedTrie)
	if !ok {
		return nil, fmt.Errorf("%w: final stack entry is not a sealed trie", ErrInvalidPreImage)
	}
	return &CombinedResult{
		State:   mpt.StateMptFromRawNode(top.raw),
		Storage: p.storage,
		Code:    p.code,
	}, nil
}

type combinedParser struct {
	data    []byte
	pos     int
	stack   []any
	code    *mpt.Hash2Code
	storage map[common.Hash]*mpt.StorageTrie
}

func (p *combinedParser) run() error {
	for p.pos < len(p.data) {
		tag := p.data[p.pos]
		p.pos++
		if err := p.step(tag); err != nil {
			return err
		}
	}
	return nil
}

func (p *combinedParser) step(tag byte) error {
	switch tag {
	case opLeaf:
		path, err := p.readNibblePath()
		if err != nil {
			return err
		}
		value, err := p.readLengthPrefixed()
		if err != nil {
			return err
		}
		p.push(mpt.RawLeaf(path, value))
		return nil

	case opExtension:
		path, err := p.readNibblePath()
		if err != nil {
			return err
		}
		child, err := p.popRawNode()
		if err != nil {
			return err
		}
		p.push(mpt.RawExtension(path, child))
		return nil

	case opBranch:
		mask, err := p.readUint16()
		if err != nil {
			return err
		}
		var children [16]mpt.RawNode
		for i := 15; i >= 0; i-- {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			n, err := p.popRawNode()
			if err != nil {
				return err
			}
			children[i] = n
		}
		p.push(mpt.RawBranch(children))
		return nil

	case opHash:
		h, err := p.readHash()
		if err != nil {
			return err
		}
		p.push(mpt.RawHashPlaceholder(h))
		return nil

	case opCode:
		code, err := p.readLengthPrefixed()
		if err != nil {
			return err
		}
		hash := p.code.Insert(code)
		p.stack = append(p.stack, codeEntry{hash: hash})
		return nil

	case opAccountLeaf:
		return p.stepAccountLeaf()

	case opEmptyRoot:
		p.push(mpt.RawEmpty())
		return nil

	case opNewTrie:
		raw, err := p.popRawNode()
		if err != nil {
			return err
		}
		p.stack = append(p.stack, sealedTrie{raw: raw})
		return nil

	default:
		return fmt.Errorf("%w: tag 0x%02x", ErrUnsupportedOpcode, tag)
	}
}

func (p *combinedParser) stepAccountLeaf() error {
	path, err := p.readNibblePath()
	if err != nil {
		return err
	}
	if len(path) != 64 {
		return fmt.Errorf("%w: account path has %d nibbles, want 64", ErrInvalidPreImage, len(path))
	}
	nonce, err := p.readVarUint()
	if err != nil {
		return err
	}
	balance, err := p.readVarBigInt()
	if err != nil {
		return err
	}
	storagePresent, err := p.readFlag()
	if err != nil {
		return err
	}
	codePresent, err := p.readFlag()
	if err != nil {
		return err
	}

	account := mpt.AccountInfo{
		Nonce:       nonce,
		Balance:     bigIntToU256(balance),
		StorageRoot: mpt.EmptyRootHash,
		CodeHash:    mpt.EmptyCodeHash,
	}

	if storagePresent {
		sealed, err := p.popSealedTrie()
		if err != nil {
			return fmt.Errorf("account leaf storage operand: %w", err)
		}
		root, err := sealed.raw.Hash()
		if err != nil {
			return err
		}
		account.StorageRoot = root

		addrHash := common.BytesToHash(nibblesToAddressHashBytes(path))
		p.storage[addrHash] = mpt.StorageTrieFromRawNode(sealed.raw)
	}

	if codePresent {
		c, err := p.popCodeEntry()
		if err != nil {
			return fmt.Errorf("account leaf code operand: %w", err)
		}
		account.CodeHash = c.hash
	}

	p.push(mpt.RawLeaf(path, account.Encode()))
	return nil
}

func (p *combinedParser) push(r mpt.RawNode) {
	p.stack = append(p.stack, r)
}

func (p *combinedParser) popRawNode() (mpt.RawNode, error) {
	if len(p.stack) == 0 {
		return mpt.RawNode{}, fmt.Errorf("%w: expected a node", ErrStackUnderflow)
	}
	top := p.stack[len(p.stack)-1]
	r, ok := top.(mpt.RawNode)
	if !ok {
		return mpt.RawNode{}, fmt.Errorf("%w: top of stack is not a raw node", ErrStackUnderflow)
	}
	p.stack = p.stack[:len(p.stack)-1]
	return r, nil
}

func (p *combinedParser) popSealedTrie() (sealedTrie, error) {
	if len(p.stack) == 0 {
		return sealedTrie{}, fmt.Errorf("%w: expected a sealed trie", ErrStackUnderflow)
	}
	top := p.stack[len(p.stack)-1]
	s, ok := top.(sealedTrie)
	if !ok {
		return sealedTrie{}, fmt.Errorf("%w: top of stack is not a sealed trie", ErrStackUnderflow)
	}
	p.stack = p.stack[:len(p.stack)-1]
	return s, nil
}

func (p *combinedParser) popCodeEntry() (codeEntry, error) {
	if len(p.stack) == 0 {
		return codeEntry{}, fmt.Errorf("%w: expected a code entry", ErrStackUnderflow)
	}
	top := p.stack[len(p.stack)-1]
	c, ok := top.(codeEntry)
	if !ok {
		return codeEntry{}, fmt.Errorf("%w: top of stack is not a code entry", ErrStackUnderflow)
	}
	p.stack = p.stack[:len(p.stack)-1]
	return c, nil
}

func (p *combinedParser) readByte() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, ErrTruncatedInput
	}
	b := p.data[p.pos]
	p.pos++
	return b, nil
}

func (p *combinedParser) readBytes(n int) ([]byte, error) {
	if p.pos+n > len(p.data) {
		return nil, ErrTruncatedInput
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

func (p *combinedParser) readLengthPrefixed() ([]byte, error) {
	n, err := p.readByte()
	if err != nil {
		return nil, err
	}
	return p.readBytes(int(n))
}

func (p *combinedParser) readHash() (common.Hash, error) {
	b, err := p.readBytes(common.HashLength)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(b), nil
}

func (p *combinedParser) readUint16() (uint16, error) {
	b, err := p.readBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (p *combinedParser) readFlag() (bool, error) {
	b, err := p.readByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (p *combinedParser) readVarUint() (uint64, error) {
	b, err := p.readLengthPrefixed()
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

func (p *combinedParser) readVarBigInt() (*big.Int, error) {
	b, err := p.readLengthPrefixed()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// readNibblePath reads a one-byte nibble count (0-64) followed by the
// ceil(count/2) bytes packing those nibbles two-per-byte, high nibble
// first, with the low nibble of the last byte unused padding when count is
// odd.
func (p *combinedParser) readNibblePath() ([]mpt.Nibble, error) {
	count, err := p.readByte()
	if err != nil {
		return nil, err
	}
	if count > 64 {
		return nil, fmt.Errorf("%w: nibble path length %d exceeds 64", ErrInvalidPreImage, count)
	}
	numBytes := (int(count) + 1) / 2
	raw, err := p.readBytes(numBytes)
	if err != nil {
		return nil, err
	}
	path := make([]mpt.Nibble, count)
	for i := 0; i < int(count); i++ {
		b := raw[i/2]
		if i%2 == 0 {
			path[i] = mpt.Nibble(b >> 4)
		} else {
			path[i] = mpt.Nibble(b & 0xF)
		}
	}
	return path, nil
}

func bigIntToU256(v *big.Int) *uint256.Int {
	u, _ := uint256.FromBig(v)
	return u
}

// nibblesToAddressHashBytes packs a 64-nibble account path back into the
// 32-byte hashed address it was derived from.
func nibblesToAddressHashBytes(path []mpt.Nibble) []byte {
	out := make([]byte, len(path)/2)
	for i := range out {
		out[i] = byte(path[2*i])<<4 | byte(path[2*i+1])
	}
	return out
}
