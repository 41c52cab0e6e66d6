package scanner

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
)

const defaultPollInterval = 200 * time.Millisecond

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// DirScanner watches a directory for new image files and decodes the QR code
// in each one. It stands in for a camera: dropping a photo into the directory
// presents a code.
type DirScanner struct {
	dir  string
	poll time.Duration
	m    sync.Mutex
	// Files already handed out, rejected or ignored, keyed by name with their mtime.
	seen map[string]time.Time
}

// NewDirScanner watches dir. Images already present are ignored.
func NewDirScanner(dir string, poll time.Duration) (*DirScanner, error) {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("scanner: %w", err)
	}
	s := &DirScanner{dir: abs, poll: poll, seen: map[string]time.Time{}}
	pending, err := s.pending()
	if err != nil {
		return nil, err
	}
	for _, f := range pending {
		s.mark(f.Name(), f.ModTime())
	}
	return s, nil
}

// Ignore marks the image at path as seen. Paths outside the watched directory
// are left alone.
func (s *DirScanner) Ignore(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	if filepath.Dir(abs) != s.dir {
		return nil
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	s.mark(info.Name(), info.ModTime())
	return nil
}

func (s *DirScanner) mark(name string, mtime time.Time) {
	s.m.Lock()
	defer s.m.Unlock()
	s.seen[name] = mtime
}

func (s *DirScanner) Scan(ctx context.Context, timeout time.Duration) (string, error) {
	wctx, cancel := waitCtx(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		pending, err := s.pending()
		if err != nil {
			return "", err
		}
		for _, f := range pending {
			s.mark(f.Name(), f.ModTime())
			text, err := DecodeImageFile(filepath.Join(s.dir, f.Name()))
			if err != nil {
				log.Printf("skipping %s: %v", f.Name(), err)
				continue
			}
			return text, nil
		}

		select {
		case <-wctx.Done():
			return "", doneErr(ctx)
		case <-ticker.C:
		}
	}
}

// pending lists unseen or modified images, oldest first.
func (s *DirScanner) pending() ([]os.FileInfo, error) {
	entries, err := ioutil.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scanner: reading %s: %w", s.dir, err)
	}
	s.m.Lock()
	defer s.m.Unlock()
	var out []os.FileInfo
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if t, ok := s.seen[e.Name()]; ok && t.Equal(e.ModTime()) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ModTime().Before(out[j].ModTime())
	})
	return out, nil
}

// DecodeImageFile returns the text of the QR code in the PNG or JPEG at path.
func DecodeImageFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}
	return DecodeImage(img)
}

// DecodeImage returns the text of the QR code in img.
func DecodeImage(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarizing image: %w", err)
	}
	result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("no qr code found: %w", err)
	}
	return result.GetText(), nil
}
