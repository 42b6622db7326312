package checkin

import (
	"context"
	"errors"
	"testing"

	"eventsphere-backend/models"
)

type fakeLedgerFetcher struct {
	page    *models.AttendancePage
	err     error
	entered chan struct{} // closed when the fetch starts
	release chan struct{} // fetch blocks until closed, when non-nil
}

func (f *fakeLedgerFetcher) FetchAttendanceLogs(ctx context.Context, eventID int64, page, size int) (*models.AttendancePage, error) {
	if f.entered != nil {
		close(f.entered)
		f.entered = nil
	}
	if f.release != nil {
		<-f.release
	}
	return f.page, f.err
}

func TestLedgerViewEmptyPageIsReadyNotLoading(t *testing.T) {
	fetcher := &fakeLedgerFetcher{page: &models.AttendancePage{Content: []models.Attendance{}, Size: 20}}
	view := NewLedgerView(fetcher)

	if view.State() != LedgerIdle {
		t.Fatalf("initial state %q", view.State())
	}
	if err := view.Load(context.Background(), 1, 0, 20); err != nil {
		t.Fatal(err)
	}
	if view.State() != LedgerReady {
		t.Fatalf("empty page must land in ready, got %q", view.State())
	}
	if records := view.Records(); len(records) != 0 {
		t.Errorf("records %v", records)
	}
}

func TestLedgerViewLoadingStateWhileFetchInFlight(t *testing.T) {
	fetcher := &fakeLedgerFetcher{
		page:    &models.AttendancePage{},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	entered := fetcher.entered
	view := NewLedgerView(fetcher)

	done := make(chan struct{})
	go func() {
		view.Load(context.Background(), 1, 0, 20)
		close(done)
	}()

	<-entered
	if view.State() != LedgerLoading {
		t.Errorf("state during fetch %q", view.State())
	}
	close(fetcher.release)
	<-done
	if view.State() != LedgerReady {
		t.Errorf("state after fetch %q", view.State())
	}
}

func TestLedgerViewFailure(t *testing.T) {
	fetcher := &fakeLedgerFetcher{err: errors.New("backend down")}
	view := NewLedgerView(fetcher)

	if err := view.Load(context.Background(), 1, 0, 20); err == nil {
		t.Fatal("expected error")
	}
	if view.State() != LedgerFailed {
		t.Errorf("state %q", view.State())
	}
	if view.Err() == nil {
		t.Error("error not retained")
	}
}
