// Package booking implements the multi-seat claim protocol: every requested
// seat is claimed through a per-seat atomic conditional update, and a partial
// claim is rolled back so no booking ever covers less than the full request.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tessera/db"
	"tessera/events"
	"tessera/models"
	"tessera/seats"
)

// ErrSeatsUnavailable means at least one requested seat could not be claimed:
// already booked, unknown, or malformed. The whole claim is rejected and every
// seat it did claim has been released again.
var ErrSeatsUnavailable = errors.New("one or more seats are no longer available")

// CompensationError reports a failed rollback: the listed seats are stuck in
// booked state with no booking referencing them and need manual
// reconciliation.
type CompensationError struct {
	EventID string
	Stuck   []string
	Err     error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("seat rollback failed for event %s, seats %v stuck in booked state: %v", e.EventID, e.Stuck, e.Err)
}

func (e *CompensationError) Unwrap() error { return e.Err }

// ClaimRequest is one attempt to book a set of seats for an event.
type ClaimRequest struct {
	EventID string   `json:"event_id"`
	Seats   []string `json:"seats"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
}

// Engine claims seat sets atomically. Concurrent claims are not coordinated
// in-process; the store's conditional update is the only safety boundary, so
// two claims for the same seat can never both succeed while claims for
// disjoint seats proceed independently.
type Engine struct {
	store  db.Store
	ledger *Ledger
}

func NewEngine(store db.Store, ledger *Ledger) *Engine {
	return &Engine{store: store, ledger: ledger}
}

// Claim transitions every requested seat from available to booked, or none of
// them. On full success it records exactly one confirmed booking and returns
// it. Duplicate seat ids in one request are attempted as distinct claims, so
// the second attempt on the same seat always fails the claim.
func (e *Engine) Claim(ctx context.Context, req ClaimRequest) (*models.Booking, error) {
	// Resolve the event first: an unknown event fails the claim before any
	// seat is touched, and its unit price is needed for the ledger anyway.
	event, err := events.GetByID(ctx, e.store, req.EventID)
	if err != nil {
		return nil, err
	}

	var claimed []string
	var opErr error
	for _, seatID := range req.Seats {
		oid, err := primitive.ObjectIDFromHex(seatID)
		if err != nil {
			// Malformed reference: never attempted, never claimed. The
			// count check below turns it into a conflict.
			continue
		}
		doc, err := e.store.ConditionalUpdate(ctx, db.Seats,
			bson.M{"_id": oid, "status": seats.StatusAvailable},
			bson.M{"status": seats.StatusBooked},
		)
		if err != nil {
			opErr = err
			break
		}
		if doc != nil {
			claimed = append(claimed, seatID)
		}
	}

	if opErr != nil || len(claimed) != len(req.Seats) {
		if cerr := e.release(ctx, event.ID, claimed); cerr != nil {
			return nil, cerr
		}
		if opErr != nil {
			return nil, fmt.Errorf("claim aborted: %w", opErr)
		}
		return nil, ErrSeatsUnavailable
	}

	booking, err := e.ledger.Record(ctx, *event, claimed, req.Name, req.Email)
	if err != nil {
		// All seats are booked but no ledger entry exists; release them so
		// the failed request leaves no trace.
		if cerr := e.release(ctx, event.ID, claimed); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}
	return booking, nil
}

// release resets previously claimed seats back to available. It is
// best-effort and not atomic with the claim: until it completes, the seats
// are visibly booked to concurrent readers.
func (e *Engine) release(ctx context.Context, eventID string, claimed []string) error {
	var stuck []string
	var last error
	for _, seatID := range claimed {
		oid, err := primitive.ObjectIDFromHex(seatID)
		if err != nil {
			// Claimed ids come from successful conditional updates and are
			// always resolvable; treat anything else as a stuck seat.
			stuck = append(stuck, seatID)
			last = err
			continue
		}
		if _, err := e.store.UnconditionalUpdate(ctx, db.Seats,
			bson.M{"_id": oid},
			bson.M{"status": seats.StatusAvailable},
		); err != nil {
			stuck = append(stuck, seatID)
			last = err
		}
	}
	if len(stuck) > 0 {
		cerr := &CompensationError{EventID: eventID, Stuck: stuck, Err: last}
		log.Printf("ALERT: %v — manual reconciliation required", cerr)
		return cerr
	}
	return nil
}
