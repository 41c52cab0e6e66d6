package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/utils"
)

// wireBlock uses pointers so a missing field is told apart from a zero value.
type wireBlock struct {
	Index     *json.Number `json:"index"`
	Timestamp *string      `json:"timestamp"`
	Data      *string      `json:"data"`
	PrevHash  *string      `json:"prev_hash"`
	Hash      *string      `json:"hash"`
}

func readChain(path string) (model.Chain, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChainIO, path, err)
	}
	return parseChain(path, data)
}

func parseChain(path string, data []byte) (model.Chain, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: %s: not a json array", ErrChainFileCorrupt, path)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChainFileCorrupt, path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChainEmpty, path)
	}
	chain := make(model.Chain, 0, len(raw))
	for i, r := range raw {
		b, err := parseBlock(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: block %d: %v", ErrChainFileCorrupt, path, i, err)
		}
		chain = append(chain, b)
	}
	return chain, nil
}

func parseBlock(raw json.RawMessage) (model.Block, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var w wireBlock
	if err := dec.Decode(&w); err != nil {
		return model.Block{}, err
	}
	if w.Index == nil || w.Timestamp == nil || w.Data == nil || w.PrevHash == nil || w.Hash == nil {
		return model.Block{}, fmt.Errorf("missing field")
	}
	index, err := w.Index.Int64()
	if err != nil || index < 0 {
		return model.Block{}, fmt.Errorf("index %q is not a non-negative integer", w.Index.String())
	}
	return model.Block{
		Index:     index,
		Timestamp: *w.Timestamp,
		Data:      *w.Data,
		PrevHash:  *w.PrevHash,
		Hash:      *w.Hash,
	}, nil
}

// writeChain replaces the chain file with chain, pretty printed with 4 spaces.
func writeChain(path string, chain model.Chain) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(chain); err != nil {
		return fmt.Errorf("%w: %s: encode: %v", ErrChainIO, path, err)
	}
	if err := utils.WriteFileAtomic(path, bytes.TrimSuffix(buf.Bytes(), []byte("\n")), filePerm); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrChainIO, path, err)
	}
	return nil
}
