// Package artwork rasterizes a ticket code into a scannable, branded QR
// image: base matrix at the highest error-correction level, an opaque circle
// painted over the center, then either the organizer's logo clipped into the
// circle or a two-word text fallback.
package artwork

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log"
	"net/http"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultSize is the canvas side in pixels.
const DefaultSize = 400

// labelColor matches the portal's primary blue.
var labelColor = color.RGBA{R: 25, G: 118, B: 210, A: 255}

// Artwork is a composed ticket image plus the literal code it encodes, which
// is displayed alongside the image for manual entry.
type Artwork struct {
	Image       image.Image
	PNG         []byte
	Code        string
	LogoApplied bool
}

// Composer renders ticket artwork. The zero value is not usable; use New.
type Composer struct {
	client *http.Client
	size   int
}

// New returns a Composer with the given canvas size (0 means DefaultSize).
func New(size int) *Composer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Composer{
		client: &http.Client{Timeout: 10 * time.Second},
		size:   size,
	}
}

// Compose renders the QR matrix for code and brands its center. If logoURL is
// empty or the logo cannot be fetched or decoded, the fallback label is drawn
// instead; a failing logo never fails the composition.
func (cp *Composer) Compose(ctx context.Context, code, logoURL, fallbackLabel string) (*Artwork, error) {
	if code == "" {
		return nil, errors.New("artwork: code must not be empty")
	}

	// Highest error correction: up to ~25% of the center is overpainted by
	// branding, lower levels risk unscannable codes.
	qr, err := qrcode.New(code, qrcode.Highest)
	if err != nil {
		return nil, fmt.Errorf("artwork: generate matrix: %w", err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, cp.size, cp.size))
	draw.Draw(canvas, canvas.Bounds(), qr.Image(cp.size), image.Point{}, draw.Src)

	center := image.Point{X: cp.size / 2, Y: cp.size / 2}
	maskRadius := cp.size / 8      // opaque contrast circle
	logoRadius := cp.size * 9 / 80 // slightly smaller concentric logo circle

	draw.DrawMask(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{},
		&circle{c: center, r: maskRadius}, image.Point{}, draw.Over)

	logoApplied := false
	if logoURL != "" {
		logo, err := cp.fetchLogo(ctx, logoURL)
		if err != nil {
			log.Printf("Logo %s not usable, falling back to label: %v", logoURL, err)
		} else {
			drawLogo(canvas, logo, center, logoRadius)
			logoApplied = true
		}
	}
	if !logoApplied {
		drawLabel(canvas, fallbackLabel, center)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("artwork: encode png: %w", err)
	}

	return &Artwork{
		Image:       canvas,
		PNG:         buf.Bytes(),
		Code:        code,
		LogoApplied: logoApplied,
	}, nil
}

func (cp *Composer) fetchLogo(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := cp.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	return img, err
}

// drawLogo scales the center-cropped square of logo into the concentric
// circle of radius r, clipped so no corners stick out of the circle.
func drawLogo(dst *image.RGBA, logo image.Image, center image.Point, r int) {
	src := centerSquare(logo.Bounds())
	dr := image.Rect(center.X-r, center.Y-r, center.X+r, center.Y+r)
	xdraw.ApproxBiLinear.Scale(dst, dr, logo, src, xdraw.Over, &xdraw.Options{
		DstMask: &circle{c: center, r: r},
	})
}

// drawLabel renders at most two words of label as two centered lines.
func drawLabel(dst *image.RGBA, label string, center image.Point) {
	words := strings.Fields(label)
	first, second := "EVENT", "LOGO"
	if len(words) > 0 {
		first = strings.ToUpper(words[0])
	}
	if len(words) > 1 {
		second = strings.ToUpper(words[1])
	}
	drawCenteredText(dst, first, center.X, center.Y-5)
	drawCenteredText(dst, second, center.X, center.Y+15)
}

func drawCenteredText(dst *image.RGBA, text string, cx, baseline int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(cx) - width/2,
		Y: fixed.I(baseline),
	}
	d.DrawString(text)
}

// centerSquare returns the largest centered square within b.
func centerSquare(b image.Rectangle) image.Rectangle {
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	cx := (b.Min.X + b.Max.X) / 2
	cy := (b.Min.Y + b.Max.Y) / 2
	return image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)
}

// circle is an alpha mask for a filled circle.
type circle struct {
	c image.Point
	r int
}

func (c *circle) ColorModel() color.Model {
	return color.AlphaModel
}

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.c.X-c.r, c.c.Y-c.r, c.c.X+c.r, c.c.Y+c.r)
}

func (c *circle) At(x, y int) color.Color {
	dx := float64(x) - float64(c.c.X) + 0.5
	dy := float64(y) - float64(c.c.Y) + 0.5
	if dx*dx+dy*dy <= float64(c.r)*float64(c.r) {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
