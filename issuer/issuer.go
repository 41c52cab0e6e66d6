// Package issuer produces the codes a producer prints on its goods: plain JSON
// codes and codes signed with the station key.
package issuer

import (
	"fmt"

	"github.com/Luismorlan/qrchain/codec"
	"github.com/Luismorlan/qrchain/model"
	"github.com/Luismorlan/qrchain/renderer"
	"github.com/Luismorlan/qrchain/signer"
)

// Artifact names of the sample codes.
const (
	SimpleName = "qr_simple"
	SignedName = "qr_firmado"
)

// Code is one issued code.
type Code struct {
	Name string
	Text string
	// Where the code was rendered.
	Path string
}

// SamplePayload is the product record of the sample codes.
func SamplePayload() model.Payload {
	return model.Payload{
		"sku":    "ABC123",
		"serial": "0001",
		"batch":  "2025-11-01",
		"issuer": "FABRICA_X",
	}
}

// Issuer signs and renders codes.
type Issuer struct {
	verifier *signer.Verifier
	renderer renderer.Renderer
}

func New(v *signer.Verifier, r renderer.Renderer) *Issuer {
	if r == nil {
		r = renderer.Discard{}
	}
	return &Issuer{verifier: v, renderer: r}
}

// Plain renders p as a plain JSON code.
func (i *Issuer) Plain(name string, p model.Payload) (Code, error) {
	text, err := codec.Encode(p, nil)
	if err != nil {
		return Code{}, err
	}
	return i.render(name, text)
}

// Signed renders p as a signed code.
func (i *Issuer) Signed(name string, p model.Payload) (Code, error) {
	text, err := i.verifier.Issue(p)
	if err != nil {
		return Code{}, err
	}
	return i.render(name, text)
}

// Samples issues the plain and the signed sample code.
func (i *Issuer) Samples() ([]Code, error) {
	simple, err := i.Plain(SimpleName, SamplePayload())
	if err != nil {
		return nil, err
	}
	signed, err := i.Signed(SignedName, SamplePayload())
	if err != nil {
		return nil, err
	}
	return []Code{simple, signed}, nil
}

func (i *Issuer) render(name string, text string) (Code, error) {
	path, err := i.renderer.Render(name, text)
	if err != nil {
		return Code{}, fmt.Errorf("issuer: %s: %w", name, err)
	}
	return Code{Name: name, Text: text, Path: path}, nil
}
