package booking

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"tessera/db"
	"tessera/events"
	"tessera/models"
	"tessera/mq"
	"tessera/seats"
	"tessera/utils"
)

type Handler struct {
	engine  *Engine
	ledger  *Ledger
	emitter *mq.Emitter
	feed    *SeatFeed
}

func NewHandler(engine *Engine, ledger *Ledger, emitter *mq.Emitter, feed *SeatFeed) *Handler {
	return &Handler{engine: engine, ledger: ledger, emitter: emitter, feed: feed}
}

// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if req.EventID == "" || len(req.Seats) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Event id and seats are required")
		return
	}
	if req.Name == "" || req.Email == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name and email are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	booking, err := h.engine.Claim(ctx, req)
	if err != nil {
		h.respondClaimError(w, req, err)
		return
	}

	h.feed.Broadcast(req.EventID, utils.M{
		"type":     "seat_update",
		"event_id": req.EventID,
		"seat_ids": booking.SeatIDs,
		"status":   seats.StatusBooked,
	})
	go h.emitter.Emit(context.Background(), "booking-confirmed", models.Index{
		EntityType: "booking",
		EntityId:   booking.ID,
		ItemId:     booking.EventID,
		ItemType:   "event",
		Method:     "POST",
	})

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"id":      booking.ID,
		"message": "Booking confirmed",
	})
}

func (h *Handler) respondClaimError(w http.ResponseWriter, req ClaimRequest, err error) {
	var cerr *CompensationError
	switch {
	case errors.As(err, &cerr):
		// Already logged loudly by the engine; nothing was reverted.
		utils.RespondWithError(w, http.StatusInternalServerError, "Booking failed; seat state needs reconciliation")
	case errors.Is(err, ErrSeatsUnavailable):
		// Claimed seats were released again; tell listeners to re-check.
		h.feed.Broadcast(req.EventID, utils.M{
			"type":     "seats_released",
			"event_id": req.EventID,
		})
		go h.emitter.Emit(context.Background(), "seats-released", models.Index{
			EntityType: "event",
			EntityId:   req.EventID,
			Method:     "POST",
		})
		utils.RespondWithError(w, http.StatusConflict, "One or more seats are no longer available")
	case errors.Is(err, events.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, db.ErrUnavailable):
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Store unavailable")
	default:
		log.Println("create booking error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create booking")
	}
}

// GET /api/bookings/:bookingid
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	booking, err := h.ledger.Get(ctx, ps.ByName("bookingid"))
	if err != nil {
		switch {
		case errors.Is(err, ErrBookingNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, db.ErrUnavailable):
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Store unavailable")
		default:
			log.Println("get booking error:", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch booking")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, booking)
}
