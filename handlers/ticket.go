package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventsphere-backend/artwork"
	"eventsphere-backend/models"
	"eventsphere-backend/ticketcode"
)

type TicketHandler struct {
	db       *pgxpool.Pool
	composer *artwork.Composer
}

func NewTicketHandler(db *pgxpool.Pool) *TicketHandler {
	return &TicketHandler{
		db:       db,
		composer: artwork.New(artwork.DefaultSize),
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// GenerateTicket issues a ticket code for a registered user and returns the
// branded artwork. Re-issuing replaces the previous code for the same
// (event, user); old codes stop resolving.
func (h *TicketHandler) GenerateTicket(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid event ID"})
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID format"})
		return
	}

	var event models.Event
	err = h.db.QueryRow(c, "SELECT id, title, image_url, status, start_time, end_time FROM events WHERE id = $1", eventID).Scan(
		&event.ID, &event.Title, &event.ImageURL, &event.Status, &event.StartTime, &event.EndTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Event not found"})
			return
		}
		log.Printf("Error loading event %d: %v", eventID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}

	if !event.CheckInOpen(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Event already ended. QR cannot be generated."})
		return
	}

	var registered bool
	err = h.db.QueryRow(c, "SELECT EXISTS(SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)", eventID, userID).Scan(&registered)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}
	if !registered {
		c.JSON(http.StatusNotFound, gin.H{"message": "User is not registered for this event"})
		return
	}

	code, err := ticketcode.Encode(eventID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	_, err = h.db.Exec(c, `
		INSERT INTO tickets (code, event_id, user_id, issued_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			code = EXCLUDED.code,
			issued_at = EXCLUDED.issued_at
	`, code, eventID, userID, time.Now())
	if err != nil {
		log.Printf("Error storing ticket code: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to issue ticket"})
		return
	}

	logoURL := ""
	if event.ImageURL != nil {
		logoURL = *event.ImageURL
	}
	art, err := h.composer.Compose(c.Request.Context(), code, logoURL, event.Title)
	if err != nil {
		log.Printf("Error composing ticket artwork: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to render ticket"})
		return
	}

	filename := fmt.Sprintf("qr-code-%s-%d.png", whitespace.ReplaceAllString(event.Title, "-"), time.Now().UnixMilli())
	c.JSON(http.StatusOK, models.TicketResponse{
		Code:     art.Code,
		Image:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(art.PNG),
		Filename: filename,
	})
}
