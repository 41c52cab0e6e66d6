package station

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Luismorlan/qrchain/commands"
	"github.com/Luismorlan/qrchain/ledger"
	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/scanner"
	"github.com/Luismorlan/qrchain/visualize"
)

// ShowFunc renders the last depth blocks and returns where the picture went.
type ShowFunc func(chain []model.Block, depth int, id string) (string, error)

// Console carries out operator commands against a running station.
type Console struct {
	station  *Station
	reporter Reporter
	// Fed by scan commands. Nil when codes come from elsewhere.
	scanner *scanner.ChanScanner
	// Stops the scan loop.
	stop context.CancelFunc
	show ShowFunc
}

// NewConsole wires commands to st. input may be nil.
func NewConsole(st *Station, input *scanner.ChanScanner, stop context.CancelFunc) *Console {
	return &Console{
		station:  st,
		reporter: st.reporter,
		scanner:  input,
		stop:     stop,
		show:     visualize.Render,
	}
}

// Serve handles commands until ctx is done or cmds is closed.
func (c *Console) Serve(ctx context.Context, cmds <-chan commands.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			c.Handle(ctx, cmd)
		}
	}
}

// Handle carries out one command. Failures are reported, not returned, so a
// bad command never stops the station.
func (c *Console) Handle(ctx context.Context, cmd commands.Command) {
	if !cmd.IsValid() {
		c.reporter.Errorf("invalid command: %v %v", cmd.Op, cmd.Args)
		return
	}
	switch cmd.Op {
	case commands.SCAN:
		if c.scanner == nil {
			c.reporter.Errorf("codes are read from the configured scanner, not the console")
			return
		}
		if err := c.scanner.Push(ctx, strings.Join(cmd.Args, " ")); err != nil {
			c.reporter.Errorf("scan not delivered: %v", err)
		}
	case commands.SHOW:
		depth, err := strconv.Atoi(cmd.Args[0])
		if err != nil {
			c.reporter.Errorf("%s is not a valid number for depth", cmd.Args[0])
			return
		}
		chain, err := c.station.ledger.Load()
		if err != nil {
			c.reporter.Errorf("show: %v", err)
			return
		}
		path, err := c.show(chain, depth, c.station.ID())
		if err != nil {
			c.reporter.Errorf("show: %v", err)
			return
		}
		c.reporter.Infof("chain rendered to %s", path)
	case commands.VERIFY:
		err := c.station.ledger.Verify()
		var integrity *ledger.IntegrityError
		switch {
		case err == nil:
			c.reporter.Infof("chain verified: %s", c.station.chainPath())
		case errors.As(err, &integrity):
			c.reporter.Errorf("chain is broken at block %d: %s", integrity.Index, integrity.Reason)
		default:
			c.reporter.Errorf("verify: %v", err)
		}
	case commands.HEAD:
		head, err := c.station.ledger.Head()
		if err != nil {
			c.reporter.Errorf("head: %v", err)
			return
		}
		c.reporter.Infof("head:\n%s", indent(head))
	case commands.STOP:
		c.reporter.Infof("stopping")
		if c.stop != nil {
			c.stop()
		}
	default:
		c.reporter.Errorf("unrecognized command: %v", cmd.Op)
	}
}
