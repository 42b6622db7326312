// Package checkin drives one verification round: classify a raw scan input,
// submit it to the remote verification boundary, and reduce the outcome into
// a UI-observable status. Submissions are serialized per event so the same
// physical ticket can never be in flight twice.
package checkin

import (
	"context"
	"strings"
	"sync"

	"eventsphere-backend/models"
	"eventsphere-backend/scan"
)

// IdentityKind distinguishes the two identity modes a raw input resolves to.
type IdentityKind string

const (
	KindEmail IdentityKind = "email"
	KindCode  IdentityKind = "code"
)

// Identity is the classified form of a scan input.
type Identity struct {
	Kind  IdentityKind `json:"kind"`
	Value string       `json:"value"`
}

// Classify determines the identity kind of a raw input. Text shaped like an
// email (an "@" with a "." somewhere after it) is an email lookup; everything
// else is an opaque code resolved by the backend. The ticket codec is not
// consulted here: the backend is the authority on mapping codes to
// registrants, and may accept codes issued out of band.
func Classify(text string) Identity {
	at := strings.Index(text, "@")
	if at >= 0 && strings.Contains(text[at:], ".") {
		return Identity{Kind: KindEmail, Value: text}
	}
	return Identity{Kind: KindCode, Value: text}
}

// Status is the terminal (or transient busy) outcome of an attempt.
type Status string

const (
	StatusAccepted     Status = "accepted"
	StatusDuplicate    Status = "duplicate"
	StatusRejected     Status = "rejected"
	StatusNetworkError Status = "network_error"
	StatusBusy         Status = "busy"
)

// Attempt is one verification round from raw input to outcome.
type Attempt struct {
	Input    scan.Input
	EventID  int64
	Identity Identity
	Status   Status
	Message  string
	Record   *models.Attendance
}

// Verifier is the remote verification boundary. It must be idempotent per
// (event, resolved subject) and signal duplicates distinctly via VerifyError.
type Verifier interface {
	MarkAttendance(ctx context.Context, eventID int64, identity Identity) (*models.Attendance, error)
}

// VerifyError classifies a failed verification.
type VerifyError struct {
	Kind    Status // StatusDuplicate, StatusRejected or StatusNetworkError
	Message string
}

func (e *VerifyError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Coordinator owns the in-flight attempts. One outstanding submission per
// event; further inputs for the same event are answered busy until it
// resolves. A disposed coordinator drops late resolutions instead of
// notifying a torn-down UI.
type Coordinator struct {
	verifier Verifier
	notify   func(Attempt)

	mu       sync.Mutex
	inflight map[int64]bool
	disposed bool
}

// NewCoordinator builds a coordinator. notify, if non-nil, observes every
// terminal attempt; it is never called after Dispose.
func NewCoordinator(v Verifier, notify func(Attempt)) *Coordinator {
	return &Coordinator{
		verifier: v,
		notify:   notify,
		inflight: make(map[int64]bool),
	}
}

// Submit runs one verification round and returns the resolved attempt.
// Inputs arriving while the same event is already submitting resolve to
// StatusBusy without touching the backend.
func (c *Coordinator) Submit(ctx context.Context, eventID int64, in scan.Input) Attempt {
	attempt := Attempt{
		Input:    in,
		EventID:  eventID,
		Identity: Classify(in.Text),
	}

	if strings.TrimSpace(in.Text) == "" {
		attempt.Status = StatusRejected
		attempt.Message = "Invalid code"
		return c.finish(attempt, false)
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return attempt
	}
	if c.inflight[eventID] {
		c.mu.Unlock()
		attempt.Status = StatusBusy
		attempt.Message = "A submission for this event is already in progress"
		return attempt
	}
	c.inflight[eventID] = true
	c.mu.Unlock()

	record, err := c.verifier.MarkAttendance(ctx, eventID, attempt.Identity)
	switch verr := err.(type) {
	case nil:
		attempt.Status = StatusAccepted
		attempt.Record = record
	case *VerifyError:
		attempt.Status = verr.Kind
		attempt.Message = verr.Message
	default:
		attempt.Status = StatusNetworkError
		attempt.Message = err.Error()
	}

	return c.finish(attempt, true)
}

// finish releases the per-event gate and notifies the listener unless the
// coordinator was disposed while the submission was in flight.
func (c *Coordinator) finish(attempt Attempt, releaseGate bool) Attempt {
	c.mu.Lock()
	if releaseGate {
		delete(c.inflight, attempt.EventID)
	}
	disposed := c.disposed
	notify := c.notify
	c.mu.Unlock()

	if !disposed && notify != nil {
		notify(attempt)
	}
	return attempt
}

// Dispose detaches the coordinator from its UI. In-flight submissions are
// not cancelled; their eventual resolution is silently dropped.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	c.disposed = true
	c.mu.Unlock()
}
