package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tessera/db"
	"tessera/models"
	"tessera/mq"
	"tessera/seats"
	"tessera/utils"
)

var ErrNotFound = errors.New("event not found")

// GetByID resolves one event. A malformed id is indistinguishable from an
// absent one.
func GetByID(ctx context.Context, store db.Store, id string) (*models.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	docs, err := store.FindDocuments(ctx, db.Events, bson.M{"_id": oid}, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch event: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	event, err := db.Decode[models.Event](docs[0])
	if err != nil {
		return nil, err
	}
	return &event, nil
}

type Handler struct {
	store   db.Store
	seats   *seats.Manager
	emitter *mq.Emitter
}

func NewHandler(store db.Store, manager *seats.Manager, emitter *mq.Emitter) *Handler {
	return &Handler{store: store, seats: manager, emitter: emitter}
}

type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	Price       float64   `json:"price"`
}

// POST /api/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if body.Title == "" || body.Venue == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Title and venue are required")
		return
	}
	if body.Rows < 1 || body.Cols < 1 {
		utils.RespondWithError(w, http.StatusBadRequest, "Rows and cols must be positive")
		return
	}
	if body.Price < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Price must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	eventID, err := h.store.CreateDocument(ctx, db.Events, bson.M{
		"title":       body.Title,
		"description": body.Description,
		"date":        body.Date.UTC(),
		"venue":       body.Venue,
		"rows":        body.Rows,
		"cols":        body.Cols,
		"price":       body.Price,
	})
	if err != nil {
		log.Println("create event error:", err)
		respondStoreError(w, err, "Failed to create event")
		return
	}

	if err := h.seats.GenerateGrid(ctx, eventID, body.Rows, body.Cols); err != nil {
		log.Println("generate seat grid error:", err)
		respondStoreError(w, err, "Failed to create seats")
		return
	}

	go h.emitter.Emit(context.Background(), "event-created", models.Index{
		EntityType: "event",
		EntityId:   eventID,
		Method:     "POST",
	})

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"id":      eventID,
		"message": "Event created with seats",
	})
}

// DELETE /api/events/:eventid
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")
	oid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Event not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	deleted, err := h.store.DeleteDocuments(ctx, db.Events, bson.M{"_id": oid})
	if err != nil {
		log.Println("delete event error:", err)
		respondStoreError(w, err, "Failed to delete event")
		return
	}
	if deleted == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Event not found")
		return
	}

	// Seats and bookings reference the event by id; drop them with it.
	if _, err := h.store.DeleteDocuments(ctx, db.Seats, bson.M{"event_id": eventID}); err != nil {
		log.Println("delete event seats error:", err)
		respondStoreError(w, err, "Failed to delete seats")
		return
	}
	if _, err := h.store.DeleteDocuments(ctx, db.Bookings, bson.M{"event_id": eventID}); err != nil {
		log.Println("delete event bookings error:", err)
		respondStoreError(w, err, "Failed to delete bookings")
		return
	}

	go h.emitter.Emit(context.Background(), "event-deleted", models.Index{
		EntityType: "event",
		EntityId:   eventID,
		Method:     "DELETE",
	})

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func respondStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, db.ErrUnavailable) {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	utils.RespondWithError(w, http.StatusInternalServerError, msg)
}
