// Package codec converts between payloads and the text carried inside a QR
// code. Two forms exist: plain canonical JSON, and a signed form
// base64url(payload).base64url(hmac) with both segments unpadded.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/utils"
)

const separator = "."

var (
	// ErrMalformedToken is the parent of every decode failure.
	ErrMalformedToken = errors.New("codec: malformed token")
	// ErrMalformedSignedToken marks text shaped like a signed token that does not
	// split into exactly two decodable segments.
	ErrMalformedSignedToken = fmt.Errorf("%w: bad signed token", ErrMalformedToken)
	// ErrUnrecognizedFormat marks text that is neither a signed token nor a JSON object.
	ErrUnrecognizedFormat = fmt.Errorf("%w: unrecognized format", ErrMalformedToken)
)

// Token is either Signed or Plain.
type Token interface {
	isToken()
}

// Signed holds the exact payload bytes that were signed and the signature over them.
type Signed struct {
	Payload   []byte
	Signature []byte
}

// Plain is an unsigned JSON object.
type Plain struct {
	// Text as scanned.
	Raw     []byte
	Payload model.Payload
}

func (Signed) isToken() {}
func (Plain) isToken()  {}

// Fields parses the signed payload bytes. Call it only after the signature has been checked.
func (s Signed) Fields() (model.Payload, error) {
	p, err := utils.DecodeJSONObject(s.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: signed payload: %v", ErrMalformedToken, err)
	}
	return p, nil
}

// Decode classifies text and returns the matching Token.
//
// Text made only of base64url characters and dots is signed-shaped and must
// hold exactly one dot with a non-empty decodable segment on either side.
// Anything else must be a JSON object.
func Decode(text string) (Token, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnrecognizedFormat)
	}
	if isSignedShape(text) {
		return decodeSigned(text)
	}
	p, err := utils.DecodeJSONObject([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	return Plain{Raw: []byte(text), Payload: p}, nil
}

func isSignedShape(text string) bool {
	if !strings.Contains(text, separator) {
		return false
	}
	for i := 0; i < len(text); i++ {
		if text[i] != '.' && !utils.IsBase64URLChar(text[i]) {
			return false
		}
	}
	return true
}

func decodeSigned(text string) (Token, error) {
	parts := strings.Split(text, separator)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: want 2 segments, got %d", ErrMalformedSignedToken, len(parts))
	}
	if parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: empty segment", ErrMalformedSignedToken)
	}
	payload, err := utils.Base64URLDecode(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: payload segment: %v", ErrMalformedSignedToken, err)
	}
	sig, err := utils.Base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: signature segment: %v", ErrMalformedSignedToken, err)
	}
	if len(payload) == 0 || len(sig) == 0 {
		return nil, fmt.Errorf("%w: empty segment", ErrMalformedSignedToken)
	}
	return Signed{Payload: payload, Signature: sig}, nil
}

// Encode serializes p canonically. With a signature it returns the signed form,
// otherwise the plain JSON text.
func Encode(p model.Payload, signature []byte) (string, error) {
	payload, err := Canonical(p)
	if err != nil {
		return "", err
	}
	if len(signature) == 0 {
		return string(payload), nil
	}
	return EncodeSigned(payload, signature), nil
}

// EncodeSigned joins already-serialized payload bytes and their signature.
func EncodeSigned(payload []byte, signature []byte) string {
	return utils.Base64URLEncode(payload) + separator + utils.Base64URLEncode(signature)
}

// Canonical returns the bytes a payload is signed over.
func Canonical(p model.Payload) ([]byte, error) {
	return utils.CanonicalJSON(p, utils.CompactJSON)
}
