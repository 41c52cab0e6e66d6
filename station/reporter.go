package station

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/signer"
	"github.com/fatih/color"
)

// Reporter receives what a station does, for the operator.
type Reporter interface {
	Waiting(timeout time.Duration)
	TimedOut(timeout time.Duration)
	Rejected(reason signer.Reason, err error)
	Accepted(reason signer.Reason)
	Appended(record map[string]interface{}, block model.Block, chainPath string)
	NextToken(artifact string, text string, err error)
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// ConsoleReporter writes coloured reports to a terminal or a GUI view.
type ConsoleReporter struct {
	m   sync.Mutex
	out io.Writer

	ok   *color.Color
	bad  *color.Color
	warn *color.Color
	info *color.Color
}

// NewConsoleReporter writes to out. Colours follow color.NoColor.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:  out,
		ok:   color.New(color.FgGreen, color.Bold),
		bad:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
		info: color.New(color.FgCyan),
	}
}

func (r *ConsoleReporter) printf(c *color.Color, format string, args ...interface{}) {
	r.m.Lock()
	defer r.m.Unlock()
	c.Fprintf(r.out, format, args...)
	fmt.Fprintln(r.out)
}

func (r *ConsoleReporter) Waiting(timeout time.Duration) {
	r.printf(r.info, "--- waiting for a code (%s) ---", timeout)
}

func (r *ConsoleReporter) TimedOut(timeout time.Duration) {
	r.printf(r.warn, "no code read within %s, trying again", timeout)
}

func (r *ConsoleReporter) Rejected(reason signer.Reason, err error) {
	if err != nil {
		r.printf(r.bad, "code not verified: %s: %v", reason, err)
	} else {
		r.printf(r.bad, "code not verified: %s", reason)
	}
	r.printf(r.warn, "nothing was recorded, present another code")
}

func (r *ConsoleReporter) Accepted(reason signer.Reason) {
	r.printf(r.ok, "code verified: %s", reason)
}

func (r *ConsoleReporter) Appended(record map[string]interface{}, block model.Block, chainPath string) {
	r.printf(r.info, "--- collected data ---\n%s", indent(record))
	r.printf(r.ok, "block appended:\n%s", indent(block))
	r.printf(r.info, "chain file: %s", chainPath)
}

func (r *ConsoleReporter) NextToken(artifact string, text string, err error) {
	switch {
	case err != nil:
		r.printf(r.bad, "could not render the next code: %v", err)
	case artifact != "":
		r.printf(r.ok, "next code written to %s", artifact)
	}
	r.printf(r.info, "next code text:\n%s", text)
	r.printf(r.info, "scan the next code to continue the chain")
}

func (r *ConsoleReporter) Infof(format string, args ...interface{}) {
	r.printf(r.info, format, args...)
}

func (r *ConsoleReporter) Errorf(format string, args ...interface{}) {
	r.printf(r.bad, format, args...)
}

func indent(v interface{}) string {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
