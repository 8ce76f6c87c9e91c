package events

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"

	"tessera/db"
	"tessera/models"
	"tessera/utils"
)

// listEventsCap bounds the events listing; there is no pagination.
const listEventsCap = 50

// GET /api/events
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	docs, err := h.store.FindDocuments(ctx, db.Events, bson.M{}, listEventsCap)
	if err != nil {
		log.Println("list events error:", err)
		respondStoreError(w, err, "Failed to fetch events")
		return
	}
	events, err := db.DecodeAll[models.Event](docs)
	if err != nil {
		log.Println("decode events error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, events)
}

// GET /api/events/:eventid/seats
func (h *Handler) GetEventSeats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.seats.ListForEvent(ctx, ps.ByName("eventid"))
	if err != nil {
		log.Println("list seats error:", err)
		respondStoreError(w, err, "Failed to fetch seats")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}
