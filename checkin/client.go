package checkin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"eventsphere-backend/models"
)

// Client talks to the verification and ledger boundaries over HTTP. It is
// the production Verifier implementation.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// MarkAttendance submits one identity for the event. Failure classification:
// 409 resolves to a duplicate, other 4xx to a rejection, transport errors and
// 5xx to a network error. The error body's "message" field is used when
// present; a generic message is substituted when it is absent.
func (c *Client) MarkAttendance(ctx context.Context, eventID int64, identity Identity) (*models.Attendance, error) {
	reqBody := models.AttendanceMarkRequest{EventID: eventID}
	switch identity.Kind {
	case KindEmail:
		reqBody.Email = identity.Value
	default:
		reqBody.Code = identity.Value
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &VerifyError{Kind: StatusRejected, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/attendance", bytes.NewReader(payload))
	if err != nil {
		return nil, &VerifyError{Kind: StatusNetworkError, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &VerifyError{Kind: StatusNetworkError, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var record models.Attendance
		if err := json.Unmarshal(body, &record); err != nil {
			return nil, &VerifyError{Kind: StatusNetworkError, Message: "malformed response from server"}
		}
		return &record, nil
	case resp.StatusCode == http.StatusConflict:
		return nil, &VerifyError{
			Kind:    StatusDuplicate,
			Message: errorMessage(body, "Already checked in for this event"),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &VerifyError{
			Kind:    StatusRejected,
			Message: errorMessage(body, "Code was not accepted"),
		}
	default:
		return nil, &VerifyError{
			Kind:    StatusNetworkError,
			Message: errorMessage(body, fmt.Sprintf("server error (status %d)", resp.StatusCode)),
		}
	}
}

// FetchAttendanceLogs retrieves one ledger page for the event.
func (c *Client) FetchAttendanceLogs(ctx context.Context, eventID int64, page, size int) (*models.AttendancePage, error) {
	url := fmt.Sprintf("%s/api/v1/events/%d/attendance?page=%d&size=%d", c.baseURL, eventID, page, size)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checkin: fetch logs: %s", errorMessage(body, fmt.Sprintf("status %d", resp.StatusCode)))
	}

	var pageResp models.AttendancePage
	if err := json.Unmarshal(body, &pageResp); err != nil {
		return nil, fmt.Errorf("checkin: fetch logs: %w", err)
	}
	return &pageResp, nil
}

// errorMessage extracts the conventional "message" field from an error body,
// accepting "error" as an alternate key, degrading to fallback.
func errorMessage(body []byte, fallback string) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return fallback
}
