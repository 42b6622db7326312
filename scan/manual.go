package scan

import (
	"sync"
	"time"
)

// ManualTextSource is the typed fallback. The text passes through unchanged
// and unvalidated; classification happens in the check-in coordinator.
type ManualTextSource struct {
	onResult ResultFunc

	mu       sync.Mutex
	disposed bool
}

func NewManualTextSource(onResult ResultFunc) *ManualTextSource {
	return &ManualTextSource{onResult: onResult}
}

// Submit forwards the typed text as-is.
func (s *ManualTextSource) Submit(text string) {
	s.mu.Lock()
	disposed := s.disposed
	onResult := s.onResult
	s.mu.Unlock()
	if disposed || onResult == nil {
		return
	}
	onResult(Input{Medium: MediumManual, Text: text, CapturedAt: time.Now()})
}

// Dispose makes further submissions no-ops. Idempotent.
func (s *ManualTextSource) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
}
