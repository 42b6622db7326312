// Package scan turns the three verification input channels (live camera,
// uploaded image file, typed text) into raw ticket-code strings for the
// check-in coordinator. All three sources share one result callback shape and
// a Dispose that is safe to call on every exit path.
package scan

import (
	"errors"
	"image"
	"time"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
)

// Medium identifies the channel a scan input arrived through.
type Medium string

const (
	MediumCamera Medium = "camera"
	MediumFile   Medium = "file"
	MediumManual Medium = "manual"
)

// Input is one raw decoded string handed to the coordinator. It lives only
// for the duration of a single verification attempt.
type Input struct {
	Medium     Medium
	Text       string
	CapturedAt time.Time
}

// ResultFunc receives the decoded input from a source. Sources may invoke it
// while holding internal state, so the callback must not call back into the
// source that delivered it.
type ResultFunc func(Input)

// Source is the shared capability of all ingest variants.
type Source interface {
	Dispose()
}

// ErrNoCode is returned when an image holds no decodable matrix code.
var ErrNoCode = errors.New("scan: no matrix code found in image")

// decodeFrame extracts a QR payload from a raster image. tryHarder enables
// the slower exhaustive search used by the second file-decode strategy.
func decodeFrame(img image.Image, tryHarder bool) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", err
	}
	var hints map[gozxing.DecodeHintType]interface{}
	if tryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}
	result, err := zxqrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", err
	}
	return result.GetText(), nil
}
