package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"tessera/models"
)

func TestDecodeSeat(t *testing.T) {
	doc := bson.M{
		"_id":      "6600ddfca2b4bd4f1c8b4567",
		"event_id": "ev1",
		"row":      "B",
		"number":   3,
		"status":   "available",
	}

	seat, err := Decode[models.Seat](doc)
	require.NoError(t, err)
	assert.Equal(t, "6600ddfca2b4bd4f1c8b4567", seat.ID)
	assert.Equal(t, "ev1", seat.EventID)
	assert.Equal(t, "B", seat.Row)
	assert.Equal(t, 3, seat.Number)
	assert.Equal(t, "available", seat.Status)
}

func TestDecodeAllPreservesOrder(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := []bson.M{
		{"_id": "a", "title": "First", "venue": "Hall", "date": now, "rows": 1, "cols": 1, "price": 1.0},
		{"_id": "b", "title": "Second", "venue": "Hall", "date": now, "rows": 2, "cols": 2, "price": 2.0},
	}

	events, err := DecodeAll[models.Event](docs)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "First", events[0].Title)
	assert.Equal(t, "Second", events[1].Title)
	assert.Equal(t, 2.0, events[1].Price)
}

func TestDecodeAllEmpty(t *testing.T) {
	events, err := DecodeAll[models.Event](nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}
