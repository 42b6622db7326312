package models

import (
	"testing"
	"time"
)

func TestCheckInOpen(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  string
		endTime time.Time
		want    bool
	}{
		{"live event before end", StatusLive, now.Add(2 * time.Hour), true},
		{"registration open before end", StatusRegistrationOpen, now.Add(24 * time.Hour), true},
		{"registration closed before end", StatusRegistrationClosed, now.Add(time.Hour), true},
		{"cancelled event", StatusCancelled, now.Add(2 * time.Hour), false},
		{"completed event", StatusCompleted, now.Add(2 * time.Hour), false},
		{"past end time", StatusLive, now.Add(-time.Minute), false},
		{"end time exactly now", StatusLive, now, false},
		{"long elapsed event", StatusRegistrationOpen, now.Add(-30 * 24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{
				Status:    tt.status,
				StartTime: tt.endTime.Add(-3 * time.Hour),
				EndTime:   tt.endTime,
			}
			if got := e.CheckInOpen(now); got != tt.want {
				t.Fatalf("CheckInOpen(%v) with status %s, end %v = %v, want %v",
					now, tt.status, tt.endTime, got, tt.want)
			}
		})
	}
}
