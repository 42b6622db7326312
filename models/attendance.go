package models

import (
	"time"

	"github.com/google/uuid"
)

// Attendance method constants
const (
	MethodQR     = "QR"
	MethodManual = "MANUAL"
)

// Attendance is one check-in record. At most one exists per (event, user);
// the database constraint enforces it.
type Attendance struct {
	ID            uuid.UUID `json:"id" db:"id"`
	EventID       int64     `json:"event_id" db:"event_id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Method        string    `json:"method" db:"method"`
	MarkedAt      time.Time `json:"marked_at" db:"marked_at"`
	AttendeeName  *string   `json:"attendee_name,omitempty"`
	AttendeeEmail *string   `json:"attendee_email,omitempty"`
}

// AttendanceMarkRequest carries one verification attempt. Exactly one of
// Code or Email identifies the subject; Code may be an issued "EVT:" ticket
// code or any opaque token the backend recognizes.
type AttendanceMarkRequest struct {
	EventID int64  `json:"event_id" binding:"required"`
	Code    string `json:"code,omitempty"`
	Email   string `json:"email,omitempty"`
}

// AttendancePage is one page of the attendance ledger.
type AttendancePage struct {
	Content       []Attendance `json:"content"`
	Page          int          `json:"page"`
	Size          int          `json:"size"`
	TotalElements int64        `json:"total_elements"`
	TotalPages    int          `json:"total_pages"`
}

// TicketResponse is returned by the issuance endpoint: the composed artwork
// as a data URL plus the literal code for manual entry.
type TicketResponse struct {
	Code     string `json:"code"`
	Image    string `json:"image"`
	Filename string `json:"filename"`
}
