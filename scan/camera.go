package scan

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"time"
)

// Camera is an owned video capture handle. Implementations wrap whatever the
// runtime provides (a V4L2 device, a test fixture); ReadFrame blocks until
// the next frame is available or ctx is done.
type Camera interface {
	ReadFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// CameraOpener acquires the camera device. Acquisition failures must be
// wrapped in one of the sentinel errors below so callers can surface a
// cause-specific message.
type CameraOpener func(ctx context.Context) (Camera, error)

// Acquisition failure causes. Each maps to a distinct user-facing message.
var (
	ErrPermissionDenied = errors.New("scan: camera permission denied")
	ErrNoCamera         = errors.New("scan: no camera present")
	ErrCameraBusy       = errors.New("scan: camera in use by another application")
	ErrUnsupported      = errors.New("scan: camera capture not supported in this runtime")
)

// AcquireMessage maps a camera acquisition error to an actionable user-facing
// message. Unknown causes get a generic message.
func AcquireMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Camera access was denied. Grant camera permission or use manual entry."
	case errors.Is(err, ErrNoCamera):
		return "No camera was found on this device. Upload an image or use manual entry."
	case errors.Is(err, ErrCameraBusy):
		return "The camera is in use by another application. Close it and try again."
	case errors.Is(err, ErrUnsupported):
		return "Camera capture is not supported here. Upload an image or use manual entry."
	default:
		return "Could not start the camera. Try again or use manual entry."
	}
}

// scanInterval bounds the decode loop to 5 attempts per second.
const scanInterval = 200 * time.Millisecond

// CameraSource owns a camera device and a bounded decode loop. On the first
// successful decode it invokes the result callback exactly once and stops
// scanning; Restart re-arms it for the same open device. Dispose releases
// the device and the loop on every exit path and is idempotent.
type CameraSource struct {
	open     CameraOpener
	onResult ResultFunc

	mu       sync.Mutex
	cam      Camera
	cancel   context.CancelFunc
	done     chan struct{}
	emitted  bool
	disposed bool
}

func NewCameraSource(open CameraOpener, onResult ResultFunc) *CameraSource {
	return &CameraSource{open: open, onResult: onResult}
}

// Start acquires the camera and begins the decode loop. The returned error is
// one of the acquisition sentinels (wrapped) when the device cannot be
// acquired.
func (s *CameraSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return errors.New("scan: camera source already disposed")
	}
	if s.cam != nil {
		return errors.New("scan: camera source already started")
	}

	cam, err := s.open(ctx)
	if err != nil {
		return err
	}
	s.cam = cam
	s.startLoopLocked()
	return nil
}

// Restart re-arms the decode loop after a successful decode stopped it. The
// camera stays open across restarts; a disposed source cannot be restarted.
func (s *CameraSource) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed || s.cam == nil {
		return errors.New("scan: camera source not open")
	}
	if s.cancel != nil {
		return nil // loop still running
	}
	s.emitted = false
	s.startLoopLocked()
	return nil
}

func (s *CameraSource) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.loop(ctx, s.cam, done)
}

func (s *CameraSource) loop(ctx context.Context, cam Camera, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := cam.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Camera frame read failed: %v", err)
			continue
		}

		text, err := decodeFrame(frame, false)
		if err != nil {
			continue // no code in this frame, keep scanning
		}

		// Claim and delivery stay in one critical section: Dispose marks
		// the source disposed under the same lock, so a result is either
		// delivered in full before teardown proceeds or dropped, never
		// handed off mid-teardown. The callback must not call back into
		// the source.
		s.mu.Lock()
		if s.disposed || s.emitted {
			s.mu.Unlock()
			return
		}
		s.emitted = true
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		if s.onResult != nil {
			s.onResult(Input{Medium: MediumCamera, Text: text, CapturedAt: time.Now()})
		}
		s.mu.Unlock()
		return
	}
}

// Dispose stops the decode loop and releases the video device. Calling it on
// a source that never started, or calling it twice, is a no-op.
func (s *CameraSource) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	cancel := s.cancel
	done := s.done
	cam := s.cam
	s.cancel = nil
	s.cam = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if cam != nil {
		if err := cam.Close(); err != nil {
			log.Printf("Camera close failed: %v", err)
		}
	}
}
