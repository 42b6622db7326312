// Package ticketcode implements the short ticket-code format rendered into
// event QR tickets: "EVT:<eventId>:<nonce>". The nonce is a base-36 timestamp
// used only to tell repeated renders apart; it is not a capability token.
package ticketcode

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const prefix = "EVT"

// ErrInvalidEventID is returned by Encode when the event ID is not positive.
var ErrInvalidEventID = errors.New("ticketcode: event id must be a positive integer")

// ErrMalformed is returned by Decode for any input that is not a well-formed
// ticket code. Camera and OCR noise routinely ends up here, so Decode never
// panics and reports every deviation the same way.
var ErrMalformed = errors.New("ticketcode: malformed code")

// Ticket is the decoded view of a ticket code.
type Ticket struct {
	EventID int64
	Nonce   string
}

// Encode produces a ticket code bound to eventID at the current instant.
func Encode(eventID int64) (string, error) {
	return EncodeAt(eventID, time.Now())
}

// EncodeAt is Encode with an explicit issuance instant.
func EncodeAt(eventID int64, at time.Time) (string, error) {
	if eventID <= 0 {
		return "", ErrInvalidEventID
	}
	nonce := strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
	return prefix + ":" + strconv.FormatInt(eventID, 10) + ":" + nonce, nil
}

// Decode parses text as a ticket code. It accepts arbitrary input and returns
// ErrMalformed for anything that does not have exactly three ":" separated
// segments, the literal "EVT" prefix, and a positive integer event ID. The
// nonce segment is opaque: its content is never validated.
func Decode(text string) (Ticket, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return Ticket{}, ErrMalformed
	}
	if parts[0] != prefix {
		return Ticket{}, ErrMalformed
	}
	eventID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || eventID <= 0 {
		return Ticket{}, ErrMalformed
	}
	return Ticket{EventID: eventID, Nonce: parts[2]}, nil
}

// IsTicketCode reports whether text looks like an issued ticket code without
// fully decoding it.
func IsTicketCode(text string) bool {
	return strings.HasPrefix(text, prefix+":")
}
