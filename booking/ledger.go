package booking

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tessera/db"
	"tessera/models"
	"tessera/utils"
)

const StatusConfirmed = "confirmed"

var ErrBookingNotFound = errors.New("booking not found")

// Ledger persists the outcome of successful claims. There is no idempotency
// key: the engine calls Record exactly once per successful claim.
type Ledger struct {
	store db.Store
}

func NewLedger(store db.Store) *Ledger {
	return &Ledger{store: store}
}

// Record writes one confirmed booking for a fully claimed seat set. The total
// is the event's unit price times the number of claimed seats.
func (l *Ledger) Record(ctx context.Context, event models.Event, seatIDs []string, name, email string) (*models.Booking, error) {
	booking := models.Booking{
		EventID:     event.ID,
		SeatIDs:     seatIDs,
		Name:        name,
		Email:       email,
		TotalAmount: event.Price * float64(len(seatIDs)),
		Status:      StatusConfirmed,
		Reference:   utils.GetUUID(),
	}
	id, err := l.store.CreateDocument(ctx, db.Bookings, bson.M{
		"event_id":     booking.EventID,
		"seat_ids":     booking.SeatIDs,
		"name":         booking.Name,
		"email":        booking.Email,
		"total_amount": booking.TotalAmount,
		"status":       booking.Status,
		"reference":    booking.Reference,
	})
	if err != nil {
		return nil, fmt.Errorf("record booking: %w", err)
	}
	booking.ID = id
	return &booking, nil
}

// Get returns one booking by id. A malformed id is indistinguishable from an
// absent one.
func (l *Ledger) Get(ctx context.Context, id string) (*models.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	docs, err := l.store.FindDocuments(ctx, db.Bookings, bson.M{"_id": oid}, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch booking: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrBookingNotFound
	}
	booking, err := db.Decode[models.Booking](docs[0])
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
