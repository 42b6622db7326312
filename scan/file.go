package scan

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotImage is returned when the uploaded file is not an image.
var ErrNotImage = errors.New("scan: uploaded file is not an image")

// ImageFileSource decodes a matrix code from a user-supplied image file. Two
// strategies are tried before concluding no code is present: a direct pixel
// decode, then a decode over a normalized re-encoding of the image (some
// encodings are not decodable directly).
type ImageFileSource struct {
	onResult ResultFunc

	mu       sync.Mutex
	disposed bool
}

func NewImageFileSource(onResult ResultFunc) *ImageFileSource {
	return &ImageFileSource{onResult: onResult}
}

// Scan reads one uploaded file and, on success, delivers the decoded text to
// the result callback. Non-image content is rejected before any decode is
// attempted.
func (s *ImageFileSource) Scan(r io.Reader) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return errors.New("scan: file source already disposed")
	}
	s.mu.Unlock()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("scan: read upload: %w", err)
	}

	mtype := mimetype.Detect(data)
	if !mtype.Is("image/png") && !mtype.Is("image/jpeg") && !mtype.Is("image/gif") {
		return ErrNotImage
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ErrNotImage
	}

	text, err := decodeFrame(img, false)
	if err != nil {
		// Second strategy: re-encode through a normalized RGBA PNG and
		// search harder.
		text, err = decodeFrame(normalize(img), true)
		if err != nil {
			return ErrNoCode
		}
	}

	s.mu.Lock()
	disposed := s.disposed
	onResult := s.onResult
	s.mu.Unlock()
	if disposed || onResult == nil {
		return nil
	}
	onResult(Input{Medium: MediumFile, Text: text, CapturedAt: time.Now()})
	return nil
}

// Dispose makes further scans and result deliveries no-ops. Idempotent.
func (s *ImageFileSource) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
}

// normalize round-trips img through an RGBA PNG encode/decode, flattening
// exotic color models and subimages.
func normalize(img image.Image) image.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return rgba
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		return rgba
	}
	return decoded
}
