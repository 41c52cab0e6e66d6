package station

import (
	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/signer"
)

// State is the phase of the scan cycle a station is in.
type State int

const (
	Idle State = iota
	AwaitingScan
	Decoding
	Verifying
	Enriching
	Appending
	IssuingNextToken
	// The loop ended on cancellation or a closed scanner.
	Stopped
	// The loop ended on a ledger failure.
	Halted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingScan:
		return "awaiting_scan"
	case Decoding:
		return "decoding"
	case Verifying:
		return "verifying"
	case Enriching:
		return "enriching"
	case Appending:
		return "appending"
	case IssuingNextToken:
		return "issuing_next_token"
	case Stopped:
		return "stopped"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// Kind classifies the result of one cycle.
type Kind int

const (
	// A block was appended and the next token issued.
	Appended Kind = iota
	// The scanned text was discarded. Reason says why.
	Rejected
	// Nothing was scanned before the timeout.
	TimedOut
)

func (k Kind) String() string {
	switch k {
	case Appended:
		return "appended"
	case Rejected:
		return "rejected"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Outcome is what one cycle did.
type Outcome struct {
	Kind Kind
	// Verification reason, for Appended and Rejected.
	Reason signer.Reason
	// Decode error behind a Malformed rejection.
	Err error
	// Set when Appended.
	Record    map[string]interface{}
	Block     model.Block
	NextToken string
	// Where the next token was rendered, if anywhere.
	Artifact string
	// Rendering failures do not undo the append.
	RenderErr error
}
