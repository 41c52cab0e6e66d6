// Package station runs the scan cycle: a verified code is recorded in the
// ledger together with a sensor reading, and the new block authorizes the
// next code the station issues.
package station

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/Luismorlan/qrchain/codec"
	"github.com/Luismorlan/qrchain/ledger"
	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/renderer"
	"github.com/Luismorlan/qrchain/scanner"
	"github.com/Luismorlan/qrchain/signer"
	"github.com/Luismorlan/qrchain/utils"
	uuid "github.com/satori/go.uuid"
)

var (
	// ErrChainInvalid is returned by Start when the existing chain fails verification.
	ErrChainInvalid = errors.New("station: chain failed verification")
	ErrMissingPart  = errors.New("station: missing component")
)

// Sensor supplies the reading recorded with every accepted code.
type Sensor interface {
	Sample() model.Reading
}

// Config wires a Station. Renderer and Clock are optional.
type Config struct {
	Ledger   *ledger.Ledger
	Verifier *signer.Verifier
	Scanner  scanner.Scanner
	Sensor   Sensor
	Renderer renderer.Renderer
	Reporter Reporter
	// How long each scan waits before it is reported as a timeout.
	ScanTimeout time.Duration
	// Time source for record timestamps and issued_at.
	Clock func() time.Time
}

// A station owns one ledger and runs one cycle at a time.
type Station struct {
	ledger   *ledger.Ledger
	verifier *signer.Verifier
	scanner  scanner.Scanner
	sensor   Sensor
	renderer renderer.Renderer
	reporter Reporter
	timeout  time.Duration
	now      func() time.Time

	// A unique identifier of this station, used in file names and logs only.
	uuid string

	// Serializes Start and Cycle.
	run     sync.Mutex
	started bool

	m     sync.RWMutex
	state State
}

// New checks that every required component is present.
func New(c Config) (*Station, error) {
	switch {
	case c.Ledger == nil:
		return nil, fmt.Errorf("%w: ledger", ErrMissingPart)
	case c.Verifier == nil:
		return nil, fmt.Errorf("%w: verifier", ErrMissingPart)
	case c.Scanner == nil:
		return nil, fmt.Errorf("%w: scanner", ErrMissingPart)
	case c.Sensor == nil:
		return nil, fmt.Errorf("%w: sensor", ErrMissingPart)
	case c.Reporter == nil:
		return nil, fmt.Errorf("%w: reporter", ErrMissingPart)
	}
	if c.Renderer == nil {
		c.Renderer = renderer.Discard{}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return &Station{
		ledger:   c.Ledger,
		verifier: c.Verifier,
		scanner:  c.Scanner,
		sensor:   c.Sensor,
		renderer: c.Renderer,
		reporter: c.Reporter,
		timeout:  c.ScanTimeout,
		now:      c.Clock,
		uuid:     uuid.NewV4().String(),
		state:    Idle,
	}, nil
}

// ID returns the station's unique identifier.
func (s *Station) ID() string {
	return s.uuid
}

// Ledger returns the ledger the station appends to.
func (s *Station) Ledger() *ledger.Ledger {
	return s.ledger
}

// State returns the current phase.
func (s *Station) State() State {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.state
}

func (s *Station) setState(st State) {
	s.m.Lock()
	defer s.m.Unlock()
	s.state = st
}

// Start creates the chain file with its genesis block when absent and refuses
// to go on when the existing chain does not verify. Calling it again is a no-op.
func (s *Station) Start() error {
	s.run.Lock()
	defer s.run.Unlock()
	return s.start()
}

func (s *Station) start() error {
	if s.started {
		return nil
	}
	created, err := s.ledger.InitializeIfAbsent()
	if err != nil {
		return err
	}
	if created {
		s.reporter.Infof("chain initialized with the genesis block: %s", s.chainPath())
	}
	if err := s.ledger.Verify(); err != nil {
		var integrity *ledger.IntegrityError
		if errors.As(err, &integrity) {
			return fmt.Errorf("%w: %s: %w", ErrChainInvalid, s.ledger.Path(), err)
		}
		return err
	}
	s.started = true
	log.Printf("station %s ready on %s", s.uuid, s.chainPath())
	return nil
}

// Run repeats Cycle until ctx is done or the scanner is closed, which return
// nil, or until a ledger failure, which is returned. The chain is never
// reinitialized after a failure.
func (s *Station) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		s.setState(Halted)
		return err
	}
	for {
		_, err := s.Cycle(ctx)
		if err == nil {
			continue
		}
		if isStop(err) {
			s.setState(Stopped)
			return nil
		}
		s.setState(Halted)
		s.reporter.Errorf("station halted: %v", err)
		return err
	}
}

func isStop(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, scanner.ErrClosed)
}

// Cycle waits for one code and processes it. Timeouts and rejected codes are
// outcomes, not errors; the error is set only on cancellation, scanner
// failure or ledger failure.
func (s *Station) Cycle(ctx context.Context) (Outcome, error) {
	s.run.Lock()
	defer s.run.Unlock()
	if err := s.start(); err != nil {
		return Outcome{}, err
	}

	s.setState(AwaitingScan)
	s.reporter.Waiting(s.timeout)
	text, err := s.scanner.Scan(ctx, s.timeout)
	if err != nil {
		if errors.Is(err, scanner.ErrTimeout) {
			s.reporter.TimedOut(s.timeout)
			return Outcome{Kind: TimedOut}, nil
		}
		return Outcome{}, err
	}

	s.setState(Decoding)
	tok, err := codec.Decode(text)
	if err != nil {
		return s.reject(signer.Malformed, err), nil
	}

	s.setState(Verifying)
	res := s.verifier.VerifyDecoded(tok)
	if !res.Accepted {
		return s.reject(res.Reason, res.Err), nil
	}
	s.reporter.Accepted(res.Reason)

	s.setState(Enriching)
	record := model.EnrichedRecord(res.Payload, utils.ISOTimestamp(s.now()), s.sensor.Sample())
	data, err := utils.CanonicalJSON(record, utils.SpacedJSON)
	if err != nil {
		// A decoded payload always serializes; anything else is a bug upstream.
		return s.reject(signer.Malformed, err), nil
	}

	s.setState(Appending)
	block, err := s.ledger.Append(string(data))
	if err != nil {
		return Outcome{}, fmt.Errorf("station: append: %w", err)
	}
	s.reporter.Appended(record, block, s.chainPath())

	s.setState(IssuingNextToken)
	out := Outcome{
		Kind:   Appended,
		Reason: res.Reason,
		Record: record,
		Block:  block,
	}
	out.NextToken, err = s.verifier.Issue(model.NextPayload(&block, utils.ISOTimestamp(s.now())))
	if err != nil {
		return out, fmt.Errorf("station: issuing next token: %w", err)
	}
	out.Artifact, out.RenderErr = s.renderer.Render(NextTokenName(block.Index), out.NextToken)
	if ig, ok := s.scanner.(scanner.Ignorer); ok && out.RenderErr == nil && out.Artifact != "" {
		// A scanner watching the output directory must not read our own codes back.
		if err := ig.Ignore(out.Artifact); err != nil {
			s.reporter.Errorf("next token %s may be read back as a scan: %v", out.Artifact, err)
		}
	}
	s.reporter.NextToken(out.Artifact, out.NextToken, out.RenderErr)

	s.setState(AwaitingScan)
	return out, nil
}

func (s *Station) reject(reason signer.Reason, err error) Outcome {
	s.reporter.Rejected(reason, err)
	s.setState(AwaitingScan)
	return Outcome{Kind: Rejected, Reason: reason, Err: err}
}

func (s *Station) chainPath() string {
	if abs, err := filepath.Abs(s.ledger.Path()); err == nil {
		return abs
	}
	return s.ledger.Path()
}

// NextTokenName is the artifact name of the token issued after block index.
func NextTokenName(index int64) string {
	return fmt.Sprintf("qr_next_%d", index)
}
