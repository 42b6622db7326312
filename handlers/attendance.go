package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventsphere-backend/models"
	"eventsphere-backend/ticketcode"
)

type AttendanceHandler struct {
	db *pgxpool.Pool
}

func NewAttendanceHandler(db *pgxpool.Pool) *AttendanceHandler {
	return &AttendanceHandler{db: db}
}

// MarkAttendance resolves an identity (issued code or email) and records the
// check-in. Idempotent per (event, user): a repeat submission answers 409
// with the existing record rather than creating a second row.
func (h *AttendanceHandler) MarkAttendance(c *gin.Context) {
	var req models.AttendanceMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if req.Code == "" && req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "code or email is required"})
		return
	}

	// Verify event exists and is open for check-in
	var event models.Event
	err := h.db.QueryRow(c, "SELECT id, title, status, start_time, end_time FROM events WHERE id = $1", req.EventID).Scan(
		&event.ID, &event.Title, &event.Status, &event.StartTime, &event.EndTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Event not found"})
			return
		}
		log.Printf("Error loading event %d: %v", req.EventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}
	if !event.CheckInOpen(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Event is not open for check-in"})
		return
	}

	var userID uuid.UUID
	var method string

	if req.Email != "" {
		err = h.db.QueryRow(c, "SELECT id FROM users WHERE email = $1", req.Email).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"message": "User not found with email: " + req.Email})
				return
			}
			log.Printf("Error looking up user by email: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
			return
		}
		method = models.MethodManual
	} else {
		// Reject codes bound to a different event before any lookup.
		if ticketcode.IsTicketCode(req.Code) {
			ticket, derr := ticketcode.Decode(req.Code)
			if derr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid QR token format"})
				return
			}
			if ticket.EventID != req.EventID {
				c.JSON(http.StatusBadRequest, gin.H{"message": "QR token does not match event"})
				return
			}
		}
		err = h.db.QueryRow(c, "SELECT user_id FROM tickets WHERE code = $1 AND event_id = $2", req.Code, req.EventID).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"message": "QR token invalid or revoked"})
				return
			}
			log.Printf("Error looking up ticket code: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
			return
		}
		method = models.MethodQR
	}

	// Subject must hold a registration for this event
	var registered bool
	err = h.db.QueryRow(c, "SELECT EXISTS(SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)", req.EventID, userID).Scan(&registered)
	if err != nil {
		log.Printf("Error checking registration: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}
	if !registered {
		c.JSON(http.StatusNotFound, gin.H{"message": "User is not registered for this event"})
		return
	}

	log.Printf("Marking attendance: event=%d, user=%s, method=%s", req.EventID, userID, method)

	// Insert guarded by the (event_id, user_id) constraint; a conflict means
	// the subject is already marked and must be answered as duplicate.
	var record models.Attendance
	err = h.db.QueryRow(c, `
		INSERT INTO attendance (id, event_id, user_id, method, marked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, user_id) DO NOTHING
		RETURNING id, event_id, user_id, method, marked_at
	`, uuid.New(), req.EventID, userID, method, time.Now()).Scan(
		&record.ID, &record.EventID, &record.UserID, &record.Method, &record.MarkedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		// Already checked in: return the existing record with 409.
		var existing models.Attendance
		err = h.db.QueryRow(c, `
			SELECT id, event_id, user_id, method, marked_at
			FROM attendance WHERE event_id = $1 AND user_id = $2
		`, req.EventID, userID).Scan(
			&existing.ID, &existing.EventID, &existing.UserID, &existing.Method, &existing.MarkedAt,
		)
		if err != nil {
			log.Printf("Error loading existing attendance: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"message":    "User has already checked in to this event",
			"attendance": existing,
		})
		return
	}
	if err != nil {
		log.Printf("Error inserting attendance: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to mark attendance"})
		return
	}

	log.Printf("Successfully marked attendance: event=%d, user=%s", req.EventID, userID)
	c.JSON(http.StatusCreated, record)
}

// GetAttendanceLogs returns one page of check-in records for an event,
// newest first.
func (h *AttendanceHandler) GetAttendanceLogs(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid event ID"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	var exists bool
	if err := h.db.QueryRow(c, "SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)", eventID).Scan(&exists); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"message": "Event not found"})
		return
	}

	var total int64
	if err := h.db.QueryRow(c, "SELECT COUNT(*) FROM attendance WHERE event_id = $1", eventID).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}

	rows, err := h.db.Query(c, `
		SELECT a.id, a.event_id, a.user_id, a.method, a.marked_at, u.name, u.email
		FROM attendance a
		LEFT JOIN users u ON a.user_id = u.id
		WHERE a.event_id = $1
		ORDER BY a.marked_at DESC
		LIMIT $2 OFFSET $3
	`, eventID, size, page*size)
	if err != nil {
		log.Printf("Error querying attendance logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}
	defer rows.Close()

	content := []models.Attendance{}
	for rows.Next() {
		var record models.Attendance
		if err := rows.Scan(
			&record.ID, &record.EventID, &record.UserID, &record.Method, &record.MarkedAt,
			&record.AttendeeName, &record.AttendeeEmail,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to scan attendance record"})
			return
		}
		content = append(content, record)
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	c.JSON(http.StatusOK, models.AttendancePage{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	})
}
