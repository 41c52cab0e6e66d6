package model

import "strings"

const (
	// Data carried by the genesis block.
	GenesisData = "GENESIS"
	// Length of a hex encoded SHA256 digest.
	HashLength = 64
)

// GenesisPrevHash is the prev_hash of block 0: 64 zero characters.
var GenesisPrevHash = strings.Repeat("0", HashLength)

// Block is a single entry of the chain file. Field order matches the on-disk layout.
type Block struct {
	// Position in the chain, starting at 0 for genesis.
	Index int64 `json:"index"`
	// ISO-8601 UTC time at which the block was created.
	Timestamp string `json:"timestamp"`
	// The serialized record this block commits to.
	Data string `json:"data"`
	// Hash of the previous block in the hex format.
	PrevHash string `json:"prev_hash"`
	// Hash of this entire block (without this field) in the hex format.
	Hash string `json:"hash"`
}

// IsGenesis reports whether b is shaped like a genesis block.
func (b *Block) IsGenesis() bool {
	return b.Index == 0 && b.PrevHash == GenesisPrevHash
}

// Chain is the ordered list of blocks held in the chain file.
type Chain []Block

// Tail returns the last block of the chain, or nil if the chain is empty.
func (c Chain) Tail() *Block {
	if len(c) == 0 {
		return nil
	}
	return &c[len(c)-1]
}
