package models

import (
	"time"
)

// Event status constants
const (
	StatusRegistrationOpen   = "REGISTRATION_OPEN"
	StatusRegistrationClosed = "REGISTRATION_CLOSED"
	StatusLive               = "LIVE"
	StatusCompleted          = "COMPLETED"
	StatusCancelled          = "CANCELLED"
)

// Event holds the metadata the check-in flow needs: identity, title (used as
// the artwork fallback label), branding image, status and the time window
// that gates check-in.
type Event struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	Location    *string   `json:"location,omitempty" db:"location"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	Status      string    `json:"status" db:"status"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"image_url"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
}

type UpdateEventStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CheckInOpen reports whether the event currently admits check-in.
func (e *Event) CheckInOpen(now time.Time) bool {
	if e.Status == StatusCancelled || e.Status == StatusCompleted {
		return false
	}
	return now.Before(e.EndTime)
}
