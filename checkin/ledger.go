package checkin

import (
	"context"
	"sync"

	"eventsphere-backend/models"
)

// LedgerState distinguishes loading from an empty result; a page with no
// records is Ready, not Loading.
type LedgerState string

const (
	LedgerIdle    LedgerState = "idle"
	LedgerLoading LedgerState = "loading"
	LedgerReady   LedgerState = "ready"
	LedgerFailed  LedgerState = "failed"
)

// LedgerFetcher is the paginated read boundary for attendance records.
type LedgerFetcher interface {
	FetchAttendanceLogs(ctx context.Context, eventID int64, page, size int) (*models.AttendancePage, error)
}

// LedgerView is a read-only projection of past check-ins for one event.
type LedgerView struct {
	fetcher LedgerFetcher

	mu    sync.Mutex
	state LedgerState
	page  *models.AttendancePage
	err   error
}

func NewLedgerView(fetcher LedgerFetcher) *LedgerView {
	return &LedgerView{fetcher: fetcher, state: LedgerIdle}
}

// Load fetches one page, moving the view through loading → ready/failed.
func (v *LedgerView) Load(ctx context.Context, eventID int64, page, size int) error {
	v.mu.Lock()
	v.state = LedgerLoading
	v.err = nil
	v.mu.Unlock()

	result, err := v.fetcher.FetchAttendanceLogs(ctx, eventID, page, size)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.state = LedgerFailed
		v.err = err
		v.page = nil
		return err
	}
	v.state = LedgerReady
	v.page = result
	return nil
}

func (v *LedgerView) State() LedgerState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Records returns the loaded page content; nil until a load succeeds.
func (v *LedgerView) Records() []models.Attendance {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page == nil {
		return nil
	}
	return v.page.Content
}

// Page returns the full loaded page with its paging metadata.
func (v *LedgerView) Page() *models.AttendancePage {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

func (v *LedgerView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
