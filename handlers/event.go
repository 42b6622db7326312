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
)

type EventHandler struct {
	db *pgxpool.Pool
}

func NewEventHandler(db *pgxpool.Pool) *EventHandler {
	return &EventHandler{db: db}
}

var validStatuses = map[string]bool{
	models.StatusRegistrationOpen:   true,
	models.StatusRegistrationClosed: true,
	models.StatusLive:               true,
	models.StatusCompleted:          true,
	models.StatusCancelled:          true,
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.EndTime.After(req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be after start_time"})
		return
	}

	log.Printf("Creating event: %s", req.Title)

	now := time.Now()
	var event models.Event
	err := h.db.QueryRow(c, `
		INSERT INTO events (title, description, location, image_url, status, start_time, end_time, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $8)
		RETURNING id, title, description, location, image_url, status, start_time, end_time, created_at, updated_at
	`, req.Title, req.Description, req.Location, req.ImageURL, models.StatusRegistrationOpen, req.StartTime, req.EndTime, now).Scan(
		&event.ID, &event.Title, &event.Description, &event.Location, &event.ImageURL,
		&event.Status, &event.StartTime, &event.EndTime, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		log.Printf("Failed to create event: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) GetEvents(c *gin.Context) {
	rows, err := h.db.Query(c, `
		SELECT id, title, description, location, image_url, status, start_time, end_time, created_at, updated_at
		FROM events
		ORDER BY start_time DESC
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(
			&event.ID, &event.Title, &event.Description, &event.Location, &event.ImageURL,
			&event.Status, &event.StartTime, &event.EndTime, &event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan event"})
			return
		}
		events = append(events, event)
	}

	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.Event
	err = h.db.QueryRow(c, `
		SELECT id, title, description, location, image_url, status, start_time, end_time, created_at, updated_at
		FROM events WHERE id = $1
	`, eventID).Scan(
		&event.ID, &event.Title, &event.Description, &event.Location, &event.ImageURL,
		&event.Status, &event.StartTime, &event.EndTime, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) UpdateEventStatus(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var req models.UpdateEventStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validStatuses[req.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status: " + req.Status})
		return
	}

	var event models.Event
	err = h.db.QueryRow(c, `
		UPDATE events SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, title, description, location, image_url, status, start_time, end_time, created_at, updated_at
	`, req.Status, time.Now(), eventID).Scan(
		&event.ID, &event.Title, &event.Description, &event.Location, &event.ImageURL,
		&event.Status, &event.StartTime, &event.EndTime, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		log.Printf("Failed to update event status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update event status"})
		return
	}

	log.Printf("Event %d status updated to %s", eventID, req.Status)
	c.JSON(http.StatusOK, event)
}

// RegisterUser registers a user for an event. Registration is a precondition
// for ticket issuance and check-in.
func (h *EventHandler) RegisterUser(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	var status string
	err = h.db.QueryRow(c, "SELECT status FROM events WHERE id = $1", eventID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if status != models.StatusRegistrationOpen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Registration is closed for this event"})
		return
	}

	var registration models.Registration
	err = h.db.QueryRow(c, `
		INSERT INTO registrations (id, event_id, user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, user_id) DO NOTHING
		RETURNING id, event_id, user_id, created_at
	`, uuid.New(), eventID, userID, time.Now()).Scan(
		&registration.ID, &registration.EventID, &registration.UserID, &registration.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusConflict, gin.H{"error": "User is already registered for this event"})
		return
	}
	if err != nil {
		log.Printf("Failed to register user %s for event %d: %v", userID, eventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}

	log.Printf("Registered user %s for event %d", userID, eventID)
	c.JSON(http.StatusCreated, registration)
}
