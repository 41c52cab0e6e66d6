package visualize

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Luismorlan/qrchain/model"
	"github.com/bradleyjkemp/memviz"
)

// We re-define the block here so the graph only shows what an operator
// cares about, with hashes shortened to stay readable.
type block struct {
	index     int64
	timestamp string
	data      string
	prevHash  string
	hash      string
	next      *block
}

// The hashes are just too long to render, instead we take only first 3 and last 3
// characters and replace the middle part with '...'. E.g. "abcdefghi" will be rendered as "abc...ghi"
func shortenString(s string) string {
	if len(s) < 9 {
		return s
	}
	return fmt.Sprintf("%s...%s", s[0:3], s[len(s)-3:])
}

func shortenData(s string) string {
	const max = 48
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// constructData links the last d blocks of chain, oldest first.
func constructData(chain []model.Block, d int) *block {
	start := len(chain) - d
	if start < 0 || d <= 0 {
		start = 0
	}
	var head, prev *block
	for i := start; i < len(chain); i++ {
		b := &chain[i]
		n := &block{
			index:     b.Index,
			timestamp: b.Timestamp,
			data:      shortenData(b.Data),
			prevHash:  shortenString(b.PrevHash),
			hash:      shortenString(b.Hash),
		}
		if prev == nil {
			head = n
		} else {
			prev.next = n
		}
		prev = n
	}
	return head
}

// Map writes the graphviz description of the last d blocks to w.
func Map(w io.Writer, chain []model.Block, d int) {
	head := constructData(chain, d)
	if head == nil {
		fmt.Fprintln(w, "digraph structs {\n}")
		return
	}
	memviz.Map(w, head)
}

// Render draws the last d blocks of chain to a PNG in the temp dir and returns
// its path. id keeps the files of different stations apart. It needs the
// graphviz dot binary; without it the .dot file path is returned with the error.
func Render(chain []model.Block, d int, id string) (string, error) {
	buf := &bytes.Buffer{}
	Map(buf, chain, d)

	// Write the parsed data to disk
	fileName := filepath.Join(os.TempDir(), "chaindata-"+id)
	outputName := filepath.Join(os.TempDir(), "rendered-chain-"+id+".png")
	if err := ioutil.WriteFile(fileName, buf.Bytes(), 0644); err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tpng", fileName, "-o", outputName)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fileName, fmt.Errorf("running dot: %v: %s", err, bytes.TrimSpace(out))
	}
	return outputName, nil
}
