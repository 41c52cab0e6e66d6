// Package renderer turns token text into a scannable image.
package renderer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

var (
	ErrEmptyText = errors.New("renderer: nothing to encode")
	ErrBadName   = errors.New("renderer: invalid artifact name")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Renderer stores text as an artifact and returns where it went.
type Renderer interface {
	Render(name string, text string) (string, error)
}

// PNG writes <Dir>/<name>.png QR codes.
type PNG struct {
	Dir string
	// Image side in pixels. DefaultSize when zero.
	Size  int
	Level qrcode.RecoveryLevel
}

// NewPNG creates dir if needed.
func NewPNG(dir string, size int) (*PNG, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	return &PNG{Dir: dir, Size: size, Level: qrcode.Medium}, nil
}

func (p *PNG) Render(name string, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}
	if !validName.MatchString(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	size := p.Size
	if size == 0 {
		size = DefaultSize
	}
	path := filepath.Join(p.Dir, name+".png")
	if err := qrcode.WriteFile(text, p.Level, size, path); err != nil {
		return "", fmt.Errorf("renderer: writing %s: %w", path, err)
	}
	return path, nil
}

// Discard renders nothing. Stations without an output directory use it.
type Discard struct{}

func (Discard) Render(name string, text string) (string, error) {
	return "", nil
}
