package tickets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tessera/booking"
	"tessera/db"
	"tessera/events"
	"tessera/testutil"
)

func TestPrintTicket(t *testing.T) {
	store := testutil.NewStore()
	ctx := context.Background()

	eventID, err := store.CreateDocument(ctx, db.Events, bson.M{
		"title": "Recital",
		"venue": "Main Hall",
		"date":  time.Date(2026, 10, 1, 19, 0, 0, 0, time.UTC),
		"rows":  1,
		"cols":  2,
		"price": 10.0,
	})
	require.NoError(t, err)

	event, err := events.GetByID(ctx, store, eventID)
	require.NoError(t, err)

	ledger := booking.NewLedger(store)
	bk, err := ledger.Record(ctx, *event, []string{"s1", "s2"}, "Ada", "ada@example.com")
	require.NoError(t, err)

	h := NewHandler(store, ledger)
	req := httptest.NewRequest(http.MethodGet, "/api/bookings/"+bk.ID+"/ticket", nil)
	rec := httptest.NewRecorder()
	h.PrintTicket(rec, req, httprouter.Params{{Key: "bookingid", Value: bk.ID}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), bk.Reference)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"), "body should be a PDF document")
}

func TestPrintTicketBookingNotFound(t *testing.T) {
	store := testutil.NewStore()
	h := NewHandler(store, booking.NewLedger(store))

	id := primitive.NewObjectID().Hex()
	req := httptest.NewRequest(http.MethodGet, "/api/bookings/"+id+"/ticket", nil)
	rec := httptest.NewRecorder()
	h.PrintTicket(rec, req, httprouter.Params{{Key: "bookingid", Value: id}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQRPayloadSigned(t *testing.T) {
	payload := qrPayload("ev1", "bk1", "ref1")
	parts := strings.Split(payload, "|")
	require.Len(t, parts, 4)
	assert.Equal(t, "ev1", parts[0])
	assert.Equal(t, "bk1", parts[1])
	assert.Equal(t, "ref1", parts[2])
	assert.NotEmpty(t, parts[3])

	// Same input, same signature; different input, different signature.
	assert.Equal(t, payload, qrPayload("ev1", "bk1", "ref1"))
	assert.NotEqual(t, payload, qrPayload("ev1", "bk1", "ref2"))
}
