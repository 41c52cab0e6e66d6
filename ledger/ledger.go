// Package ledger owns the chain file: a JSON array of hash-linked blocks that
// is only ever appended to. Every operation reloads the whole file, and every
// append replaces it in one rename.
//
// The file is not safe under concurrent writers. A station takes the advisory
// lock from Lock before appending and runs one cycle at a time.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/utils"
	"github.com/jinzhu/copier"
)

var (
	ErrChainFileCorrupt = errors.New("ledger: chain file corrupt")
	ErrChainEmpty       = errors.New("ledger: chain is empty")
	ErrChainIO          = errors.New("ledger: chain file i/o")
	ErrLocked           = errors.New("ledger: chain file locked by another process")
)

// IntegrityError reports the first block that breaks the chain.
type IntegrityError struct {
	Index  int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger: block %d: %s", e.Index, e.Reason)
}

const filePerm = 0644

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for block timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ledger is the file-backed chain at a single path.
type Ledger struct {
	path string
	now  func() time.Time
	// Guards chain and serializes read-modify-write within the process.
	m sync.Mutex
	// Chain as of the last load or append.
	chain model.Chain
}

// New returns a Ledger for the chain file at path. Nothing is read until the first call.
func New(path string, opts ...Option) *Ledger {
	l := &Ledger{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the chain file path.
func (l *Ledger) Path() string {
	return l.path
}

// InitializeIfAbsent writes a chain holding only the genesis block when no
// chain file exists. It reports whether it created the file; an existing file
// is left untouched.
func (l *Ledger) InitializeIfAbsent() (bool, error) {
	l.m.Lock()
	defer l.m.Unlock()

	exists, err := utils.FileExists(l.path)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrChainIO, l.path, err)
	}
	if exists {
		return false, nil
	}

	genesis := model.Block{
		Index:     0,
		Timestamp: utils.ISOTimestamp(l.now()),
		Data:      model.GenesisData,
		PrevHash:  model.GenesisPrevHash,
	}
	if genesis.Hash, err = HashBlock(&genesis); err != nil {
		return false, err
	}
	chain := model.Chain{genesis}
	if err := writeChain(l.path, chain); err != nil {
		return false, err
	}
	l.chain = chain
	return true, nil
}

// Append adds a block carrying data after the current tail and rewrites the file.
func (l *Ledger) Append(data string) (model.Block, error) {
	l.m.Lock()
	defer l.m.Unlock()

	chain, err := readChain(l.path)
	if err != nil {
		return model.Block{}, err
	}
	tail := chain.Tail()
	block := model.Block{
		Index:     tail.Index + 1,
		Timestamp: utils.ISOTimestamp(l.now()),
		Data:      data,
		PrevHash:  tail.Hash,
	}
	if block.Hash, err = HashBlock(&block); err != nil {
		return model.Block{}, err
	}
	chain = append(chain, block)
	if err := writeChain(l.path, chain); err != nil {
		return model.Block{}, err
	}
	l.chain = chain
	return block, nil
}

// Load reads and parses the chain file.
func (l *Ledger) Load() (model.Chain, error) {
	l.m.Lock()
	defer l.m.Unlock()

	chain, err := readChain(l.path)
	if err != nil {
		return nil, err
	}
	l.chain = chain
	return l.snapshot()
}

// Head returns the last block in the chain file.
func (l *Ledger) Head() (model.Block, error) {
	chain, err := l.Load()
	if err != nil {
		return model.Block{}, err
	}
	return *chain.Tail(), nil
}

// Blocks returns a deep copy of the chain as of the last load or append,
// without touching the file.
func (l *Ledger) Blocks() (model.Chain, error) {
	l.m.Lock()
	defer l.m.Unlock()
	return l.snapshot()
}

func (l *Ledger) snapshot() (model.Chain, error) {
	out := model.Chain{}
	if err := copier.Copy(&out, &l.chain); err != nil {
		return nil, fmt.Errorf("ledger: copying chain: %w", err)
	}
	return out, nil
}

// Verify reloads the chain and checks every block. It returns an
// *IntegrityError for the first broken block.
func (l *Ledger) Verify() error {
	chain, err := l.Load()
	if err != nil {
		return err
	}
	return VerifyBlocks(chain)
}

// VerifyChain is Verify reduced to a verdict. Read and parse failures are
// still returned as errors.
func (l *Ledger) VerifyChain() (bool, error) {
	err := l.Verify()
	if err == nil {
		return true, nil
	}
	var integrity *IntegrityError
	if errors.As(err, &integrity) {
		return false, nil
	}
	return false, err
}

// HashBlock returns the hex SHA256 of b without its hash field, serialized
// with sorted keys.
func HashBlock(b *model.Block) (string, error) {
	body, err := utils.CanonicalJSON(map[string]interface{}{
		"index":     b.Index,
		"timestamp": b.Timestamp,
		"data":      b.Data,
		"prev_hash": b.PrevHash,
	}, utils.SpacedJSON)
	if err != nil {
		return "", err
	}
	return utils.BytesToHex(utils.SHA256(body)), nil
}

// VerifyBlocks checks index sequence, genesis shape, prev_hash linkage and every
// block hash, stopping at the first failure.
func VerifyBlocks(chain model.Chain) error {
	if len(chain) == 0 {
		return ErrChainEmpty
	}
	for i := range chain {
		b := &chain[i]
		if b.Index != int64(i) {
			return &IntegrityError{Index: i, Reason: fmt.Sprintf("index %d out of sequence", b.Index)}
		}
		if i == 0 {
			if !b.IsGenesis() {
				return &IntegrityError{Index: i, Reason: "genesis prev_hash is not zero"}
			}
			if b.Data != model.GenesisData {
				return &IntegrityError{Index: i, Reason: "genesis data is not the sentinel"}
			}
		} else if b.PrevHash != chain[i-1].Hash {
			return &IntegrityError{Index: i, Reason: "prev_hash does not match previous block"}
		}
		hash, err := HashBlock(b)
		if err != nil {
			return err
		}
		if hash != b.Hash {
			return &IntegrityError{Index: i, Reason: "hash mismatch"}
		}
	}
	return nil
}
