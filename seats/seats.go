// Package seats owns the per-seat status state machine and the seat grid
// generated for each event.
package seats

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"tessera/db"
	"tessera/models"
)

// Seat statuses. A seat starts available and is moved to booked by the claim
// engine's conditional update. "reserved" is reserved vocabulary for future
// temporary holds; nothing transitions into or out of it here.
const (
	StatusAvailable = "available"
	StatusReserved  = "reserved"
	StatusBooked    = "booked"
)

// Manager materializes seat grids and answers seat queries for an event.
type Manager struct {
	store db.Store
}

func NewManager(store db.Store) *Manager {
	return &Manager{store: store}
}

// GenerateGrid creates one seat document per (row, column) pair for an event,
// all available. Rows are labelled A..Z, then AA, AB and so on; columns are
// numbered from 1.
func (m *Manager) GenerateGrid(ctx context.Context, eventID string, rows, cols int) error {
	for r := 0; r < rows; r++ {
		label := RowLabel(r)
		for c := 1; c <= cols; c++ {
			_, err := m.store.CreateDocument(ctx, db.Seats, bson.M{
				"event_id": eventID,
				"row":      label,
				"number":   c,
				"status":   StatusAvailable,
			})
			if err != nil {
				return fmt.Errorf("create seat %s%d: %w", label, c, err)
			}
		}
	}
	return nil
}

// ListForEvent returns every seat of an event in store-native order.
func (m *Manager) ListForEvent(ctx context.Context, eventID string) ([]models.Seat, error) {
	docs, err := m.store.FindDocuments(ctx, db.Seats, bson.M{"event_id": eventID}, 0)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	return db.DecodeAll[models.Seat](docs)
}

// RowLabel converts a zero-based row index to its spreadsheet-style letter
// label: 0 -> A, 25 -> Z, 26 -> AA.
func RowLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}
