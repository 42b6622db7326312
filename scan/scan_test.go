package scan

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

var (
	_ Source = (*CameraSource)(nil)
	_ Source = (*ImageFileSource)(nil)
	_ Source = (*ManualTextSource)(nil)
)

// qrImage renders content as a QR raster for feeding the decode paths.
func qrImage(t *testing.T, content string) image.Image {
	t.Helper()
	qr, err := qrcode.New(content, qrcode.Highest)
	if err != nil {
		t.Fatal(err)
	}
	return qr.Image(256)
}

func qrPNG(t *testing.T, content string) []byte {
	t.Helper()
	png, err := qrcode.Encode(content, qrcode.Highest, 256)
	if err != nil {
		t.Fatal(err)
	}
	return png
}

/* ---------------- manual ---------------- */

func TestManualSourcePassesTextThroughUnchanged(t *testing.T) {
	var got Input
	src := NewManualTextSource(func(in Input) { got = in })
	defer src.Dispose()

	src.Submit("  EVT:5:abc not validated here @@ ")
	if got.Text != "  EVT:5:abc not validated here @@ " {
		t.Errorf("text altered: %q", got.Text)
	}
	if got.Medium != MediumManual {
		t.Errorf("medium %q", got.Medium)
	}
	if got.CapturedAt.IsZero() {
		t.Error("captured-at not set")
	}
}

func TestManualSourceDisposeStopsDelivery(t *testing.T) {
	calls := 0
	src := NewManualTextSource(func(Input) { calls++ })
	src.Dispose()
	src.Dispose() // idempotent
	src.Submit("late")
	if calls != 0 {
		t.Errorf("disposed source delivered %d results", calls)
	}
}

/* ---------------- file ---------------- */

func TestFileSourceDecodesUploadedImage(t *testing.T) {
	var got Input
	src := NewImageFileSource(func(in Input) { got = in })
	defer src.Dispose()

	if err := src.Scan(bytes.NewReader(qrPNG(t, "EVT:42:K9ZP"))); err != nil {
		t.Fatal(err)
	}
	if got.Text != "EVT:42:K9ZP" {
		t.Errorf("decoded %q", got.Text)
	}
	if got.Medium != MediumFile {
		t.Errorf("medium %q", got.Medium)
	}
}

func TestFileSourceRejectsNonImage(t *testing.T) {
	src := NewImageFileSource(func(Input) { t.Fatal("must not deliver") })
	defer src.Dispose()

	err := src.Scan(bytes.NewReader([]byte("%PDF-1.4 not an image")))
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
}

func TestFileSourceReportsNoCode(t *testing.T) {
	src := NewImageFileSource(func(Input) { t.Fatal("must not deliver") })
	defer src.Dispose()

	// A valid image with no matrix code in it.
	white := image.NewRGBA(image.Rect(0, 0, 64, 64))
	var buf bytes.Buffer
	if err := png.Encode(&buf, white); err != nil {
		t.Fatal(err)
	}
	if err := src.Scan(&buf); !errors.Is(err, ErrNoCode) {
		t.Fatalf("expected ErrNoCode, got %v", err)
	}
}

func TestFileSourceDisposeIsIdempotent(t *testing.T) {
	src := NewImageFileSource(nil)
	src.Dispose()
	src.Dispose()
	if err := src.Scan(bytes.NewReader(qrPNG(t, "EVT:1:A"))); err == nil {
		t.Error("scan after dispose should fail")
	}
}

/* ---------------- camera ---------------- */

// fakeCamera yields a fixed frame sequence and records closes.
type fakeCamera struct {
	frames []image.Image
	idx    int
	closed int32
}

func (c *fakeCamera) ReadFrame(ctx context.Context) (image.Image, error) {
	if c.idx >= len(c.frames) {
		// Keep replaying the last frame, as a live camera would.
		return c.frames[len(c.frames)-1], nil
	}
	f := c.frames[c.idx]
	c.idx++
	return f, nil
}

func (c *fakeCamera) Close() error {
	atomic.AddInt32(&c.closed, 1)
	return nil
}

func TestCameraSourceEmitsExactlyOnce(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 64, 64))
	cam := &fakeCamera{frames: []image.Image{
		blank,
		blank,
		qrImage(t, "EVT:42:FIRST"),
		qrImage(t, "EVT:42:SECOND"),
	}}

	results := make(chan Input, 4)
	src := NewCameraSource(
		func(ctx context.Context) (Camera, error) { return cam, nil },
		func(in Input) { results <- in },
	)
	if err := src.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer src.Dispose()

	select {
	case in := <-results:
		if in.Text != "EVT:42:FIRST" {
			t.Errorf("decoded %q", in.Text)
		}
		if in.Medium != MediumCamera {
			t.Errorf("medium %q", in.Medium)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no decode within deadline")
	}

	// The loop must have stopped: no second emission while the dialog stays open.
	select {
	case in := <-results:
		t.Fatalf("unexpected second emission %q", in.Text)
	case <-time.After(600 * time.Millisecond):
	}
}

func TestCameraSourceRestartRearmsScanning(t *testing.T) {
	cam := &fakeCamera{frames: []image.Image{qrImage(t, "EVT:7:ONE")}}

	results := make(chan Input, 2)
	src := NewCameraSource(
		func(ctx context.Context) (Camera, error) { return cam, nil },
		func(in Input) { results <- in },
	)
	if err := src.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer src.Dispose()

	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("no first decode")
	}

	if err := src.Restart(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("no decode after restart")
	}
}

func TestCameraSourceDisposeWaitsForDelivery(t *testing.T) {
	cam := &fakeCamera{frames: []image.Image{qrImage(t, "EVT:9:SLOW")}}

	entered := make(chan struct{})
	release := make(chan struct{})
	results := make(chan Input, 1)
	src := NewCameraSource(
		func(ctx context.Context) (Camera, error) { return cam, nil },
		func(in Input) {
			close(entered)
			<-release
			results <- in
		},
	)
	if err := src.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("no decode within deadline")
	}

	disposed := make(chan struct{})
	go func() {
		src.Dispose()
		close(disposed)
	}()

	// Teardown must not complete while a result is being delivered.
	select {
	case <-disposed:
		t.Fatal("Dispose returned mid-delivery")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	select {
	case <-disposed:
	case <-time.After(5 * time.Second):
		t.Fatal("Dispose did not return after delivery finished")
	}
	select {
	case in := <-results:
		if in.Text != "EVT:9:SLOW" {
			t.Errorf("decoded %q", in.Text)
		}
	default:
		t.Fatal("delivered result was lost")
	}
	if n := atomic.LoadInt32(&cam.closed); n != 1 {
		t.Errorf("camera closed %d times", n)
	}
}

func TestCameraSourceDisposeReleasesDeviceOnce(t *testing.T) {
	cam := &fakeCamera{frames: []image.Image{image.NewRGBA(image.Rect(0, 0, 8, 8))}}
	src := NewCameraSource(
		func(ctx context.Context) (Camera, error) { return cam, nil },
		nil,
	)
	if err := src.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	src.Dispose()
	src.Dispose()
	if n := atomic.LoadInt32(&cam.closed); n != 1 {
		t.Errorf("camera closed %d times", n)
	}
}

func TestCameraSourceDisposeWithoutStart(t *testing.T) {
	src := NewCameraSource(func(ctx context.Context) (Camera, error) {
		t.Fatal("opener must not run")
		return nil, nil
	}, nil)
	src.Dispose()
	src.Dispose()
}

func TestCameraSourceAcquisitionErrorsAreClassified(t *testing.T) {
	causes := []error{ErrPermissionDenied, ErrNoCamera, ErrCameraBusy, ErrUnsupported}
	seen := map[string]bool{}
	for _, cause := range causes {
		src := NewCameraSource(func(ctx context.Context) (Camera, error) {
			return nil, cause
		}, nil)
		err := src.Start(context.Background())
		if !errors.Is(err, cause) {
			t.Fatalf("expected %v, got %v", cause, err)
		}
		msg := AcquireMessage(err)
		if seen[msg] {
			t.Errorf("message for %v not distinct: %q", cause, msg)
		}
		seen[msg] = true
		src.Dispose()
	}
	if generic := AcquireMessage(errors.New("weird")); generic == "" {
		t.Error("unknown causes still need a message")
	}
}

func TestCameraSourceStartAfterDisposeFails(t *testing.T) {
	src := NewCameraSource(func(ctx context.Context) (Camera, error) {
		return &fakeCamera{frames: []image.Image{image.NewRGBA(image.Rect(0, 0, 8, 8))}}, nil
	}, nil)
	src.Dispose()
	if err := src.Start(context.Background()); err == nil {
		t.Error("start after dispose should fail")
	}
}
