// Package signer signs payloads with HMAC-SHA256 and decides whether a scanned
// token is accepted.
package signer

import (
	"errors"

	"github.com/Luismorlan/qrchain/codec"
	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/utils"
)

var ErrEmptyKey = errors.New("signer: key is required")

// Reason explains a verification decision.
type Reason int

const (
	// The token was signed and the HMAC matched.
	SignatureValid Reason = iota
	// The token was plain JSON and accepted without a signature.
	PlainJSON
	// The token was signed but the HMAC did not match.
	SignatureInvalid
	// The text could not be decoded.
	Malformed
	// The token was plain JSON and the verifier requires a signature.
	UnsignedRejected
)

func (r Reason) String() string {
	switch r {
	case SignatureValid:
		return "signature_valid"
	case PlainJSON:
		return "plain_json"
	case SignatureInvalid:
		return "signature_invalid"
	case Malformed:
		return "malformed"
	case UnsignedRejected:
		return "unsigned_rejected"
	default:
		return "unknown"
	}
}

// Result is the outcome of VerifyToken.
type Result struct {
	Accepted bool
	// Set only when Accepted.
	Payload model.Payload
	Reason  Reason
	// Decode error behind a Malformed reason.
	Err error
}

// Sign returns HMAC-SHA256(key, canonical(p)).
func Sign(p model.Payload, key []byte) ([]byte, error) {
	payload, err := codec.Canonical(p)
	if err != nil {
		return nil, err
	}
	return utils.HMACSHA256(key, payload), nil
}

// Verify checks signature against the exact payload bytes in constant time.
func Verify(payload []byte, signature []byte, key []byte) bool {
	return utils.VerifyHMAC(key, payload, signature)
}

// VerifyToken decodes raw and applies the acceptance policy: a signed token is
// accepted iff its HMAC matches; plain JSON is accepted as is.
//
// Accepting plain JSON means anyone can bypass the HMAC by printing an
// unsigned code. Use a Verifier with RequireSignature to close that.
func VerifyToken(raw string, key []byte) Result {
	v := Verifier{key: key}
	return v.VerifyToken(raw)
}

// Verifier holds the shared key and the acceptance policy.
type Verifier struct {
	key []byte
	// Reject plain JSON tokens.
	RequireSignature bool
}

// NewVerifier builds a Verifier around key.
func NewVerifier(key []byte, requireSignature bool) (*Verifier, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Verifier{key: k, RequireSignature: requireSignature}, nil
}

// VerifyToken decodes raw and applies the verifier's policy.
func (v *Verifier) VerifyToken(raw string) Result {
	tok, err := codec.Decode(raw)
	if err != nil {
		return Result{Reason: Malformed, Err: err}
	}
	return v.VerifyDecoded(tok)
}

// VerifyDecoded applies the verifier's policy to an already decoded token.
func (v *Verifier) VerifyDecoded(tok codec.Token) Result {
	switch t := tok.(type) {
	case codec.Signed:
		if !Verify(t.Payload, t.Signature, v.key) {
			return Result{Reason: SignatureInvalid}
		}
		p, err := t.Fields()
		if err != nil {
			return Result{Reason: Malformed, Err: err}
		}
		return Result{Accepted: true, Payload: p, Reason: SignatureValid}
	case codec.Plain:
		if v.RequireSignature {
			return Result{Reason: UnsignedRejected}
		}
		return Result{Accepted: true, Payload: t.Payload, Reason: PlainJSON}
	default:
		return Result{Reason: Malformed, Err: codec.ErrUnrecognizedFormat}
	}
}

// Issue signs p and returns the signed token text.
func (v *Verifier) Issue(p model.Payload) (string, error) {
	payload, err := codec.Canonical(p)
	if err != nil {
		return "", err
	}
	return codec.EncodeSigned(payload, utils.HMACSHA256(v.key, payload)), nil
}
