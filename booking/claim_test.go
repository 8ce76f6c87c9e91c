package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tessera/db"
	"tessera/events"
	"tessera/models"
	"tessera/seats"
	"tessera/testutil"
)

func newEngine(store *testutil.Store) *Engine {
	return NewEngine(store, NewLedger(store))
}

// seedEvent creates an event with a generated grid and returns the event id
// plus seat ids keyed by label (A1, B3, ...).
func seedEvent(t *testing.T, store *testutil.Store, price float64, rows, cols int) (string, map[string]string) {
	t.Helper()
	ctx := context.Background()

	eventID, err := store.CreateDocument(ctx, db.Events, bson.M{
		"title": "Recital",
		"venue": "Main Hall",
		"date":  time.Now().UTC(),
		"rows":  rows,
		"cols":  cols,
		"price": price,
	})
	require.NoError(t, err)

	manager := seats.NewManager(store)
	require.NoError(t, manager.GenerateGrid(ctx, eventID, rows, cols))

	list, err := manager.ListForEvent(ctx, eventID)
	require.NoError(t, err)

	byLabel := make(map[string]string, len(list))
	for _, seat := range list {
		byLabel[seat.Row+string(rune('0'+seat.Number))] = seat.ID
	}
	return eventID, byLabel
}

func seatStatus(t *testing.T, store *testutil.Store, seatID string) string {
	t.Helper()
	doc := store.Doc(db.Seats, seatID)
	require.NotNil(t, doc, "seat %s missing", seatID)
	return doc["status"].(string)
}

func TestClaimSuccess(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 10.0, 2, 3)
	engine := newEngine(store)

	booking, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A1"], seat["A2"]},
		Name:    "Ada",
		Email:   "ada@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, 20.0, booking.TotalAmount)
	assert.Equal(t, StatusConfirmed, booking.Status)
	assert.Equal(t, []string{seat["A1"], seat["A2"]}, booking.SeatIDs)
	assert.NotEmpty(t, booking.ID)

	assert.Equal(t, seats.StatusBooked, seatStatus(t, store, seat["A1"]))
	assert.Equal(t, seats.StatusBooked, seatStatus(t, store, seat["A2"]))
	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A3"]))
	assert.Equal(t, 1, store.Count(db.Bookings, bson.M{"event_id": eventID}))
}

func TestClaimConflictOnUnknownSeat(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 10.0, 2, 3)
	engine := newEngine(store)

	// Well-formed id that matches no seat document, like B9 on a 2x3 grid.
	missing := primitive.NewObjectID().Hex()

	_, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A1"], missing},
		Name:    "Ada",
		Email:   "ada@example.com",
	})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	// A1 was claimed, then released by compensation.
	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A1"]))
	assert.Equal(t, 0, store.Count(db.Bookings, bson.M{"event_id": eventID}))
}

func TestClaimConflictOnMalformedSeatID(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 10.0, 1, 2)
	engine := newEngine(store)

	_, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A1"], "not-an-id"},
		Name:    "Ada",
		Email:   "ada@example.com",
	})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A1"]))
	assert.Equal(t, 0, store.Count(db.Bookings, bson.M{"event_id": eventID}))
}

func TestClaimDuplicateSeatIDsFails(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 10.0, 1, 2)
	engine := newEngine(store)

	// The second attempt on the same seat finds it already booked by the
	// first, so the whole claim is rejected.
	_, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A1"], seat["A1"]},
		Name:    "Ada",
		Email:   "ada@example.com",
	})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A1"]))
	assert.Equal(t, 0, store.Count(db.Bookings, bson.M{"event_id": eventID}))
}

func TestClaimUnknownEvent(t *testing.T) {
	store := testutil.NewStore()
	_, seat := seedEvent(t, store, 10.0, 1, 2)
	engine := newEngine(store)

	_, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: primitive.NewObjectID().Hex(),
		Seats:   []string{seat["A1"]},
		Name:    "Ada",
		Email:   "ada@example.com",
	})
	assert.ErrorIs(t, err, events.ErrNotFound)

	// No seat was touched.
	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A1"]))
}

func TestConcurrentClaimsSingleSeat(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 10.0, 1, 1)
	engine := newEngine(store)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Claim(context.Background(), ClaimRequest{
				EventID: eventID,
				Seats:   []string{seat["A1"]},
				Name:    "Racer",
				Email:   "racer@example.com",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrSeatsUnavailable)
			conflicts++
		}
	}

	assert.Equal(t, 1, wins, "exactly one claim may win the seat")
	assert.Equal(t, attempts-1, conflicts)
	// The losers never claimed the seat, so their compensation must not
	// flip it back.
	assert.Equal(t, seats.StatusBooked, seatStatus(t, store, seat["A1"]))
	assert.Equal(t, 1, store.Count(db.Bookings, bson.M{"event_id": eventID}))
}

func TestFailedClaimLeavesWinnersSeatsBooked(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 10.0, 1, 3)
	engine := newEngine(store)

	_, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A1"], seat["A2"]},
		Name:    "First",
		Email:   "first@example.com",
	})
	require.NoError(t, err)

	// Overlapping claim fails on A2 and must only release its own seat A3.
	_, err = engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A3"], seat["A2"]},
		Name:    "Second",
		Email:   "second@example.com",
	})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	assert.Equal(t, seats.StatusBooked, seatStatus(t, store, seat["A1"]))
	assert.Equal(t, seats.StatusBooked, seatStatus(t, store, seat["A2"]))
	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A3"]))
	assert.Equal(t, 1, store.Count(db.Bookings, bson.M{"event_id": eventID}))
}

func TestClaimStoreFailureMidClaim(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 10.0, 1, 2)
	engine := newEngine(store)

	// First conditional update succeeds, the second fails.
	store.FailConditionalAfter = 2

	_, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A1"], seat["A2"]},
		Name:    "Ada",
		Email:   "ada@example.com",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSeatsUnavailable)

	// The claimed seat was released before the error surfaced.
	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A1"]))
	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A2"]))
	assert.Equal(t, 0, store.Count(db.Bookings, bson.M{"event_id": eventID}))
}

func TestClaimCompensationFailure(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 10.0, 1, 2)
	engine := newEngine(store)

	store.UnconditionalErr = db.ErrUnavailable

	_, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A1"], primitive.NewObjectID().Hex()},
		Name:    "Ada",
		Email:   "ada@example.com",
	})

	var cerr *CompensationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{seat["A1"]}, cerr.Stuck)
	assert.Equal(t, eventID, cerr.EventID)

	// The stuck seat remains booked with no booking referencing it.
	assert.Equal(t, seats.StatusBooked, seatStatus(t, store, seat["A1"]))
	assert.Equal(t, 0, store.Count(db.Bookings, bson.M{"event_id": eventID}))
}

func TestClaimLedgerFailureReleasesSeats(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 10.0, 1, 2)
	engine := newEngine(store)

	// Fail only the booking insert; the grid is already seeded.
	store.CreateErr = db.ErrUnavailable

	_, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A1"], seat["A2"]},
		Name:    "Ada",
		Email:   "ada@example.com",
	})
	require.ErrorIs(t, err, db.ErrUnavailable)

	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A1"]))
	assert.Equal(t, seats.StatusAvailable, seatStatus(t, store, seat["A2"]))
	assert.Equal(t, 0, store.Count(db.Bookings, bson.M{"event_id": eventID}))
}

func TestClaimPersistsBookingDocument(t *testing.T) {
	store := testutil.NewStore()
	eventID, seat := seedEvent(t, store, 12.5, 1, 2)
	engine := newEngine(store)

	booking, err := engine.Claim(context.Background(), ClaimRequest{
		EventID: eventID,
		Seats:   []string{seat["A1"], seat["A2"]},
		Name:    "Ada",
		Email:   "ada@example.com",
	})
	require.NoError(t, err)

	doc := store.Doc(db.Bookings, booking.ID)
	require.NotNil(t, doc)
	stored, err := db.Decode[models.Booking](doc)
	require.NoError(t, err)

	assert.Equal(t, eventID, stored.EventID)
	assert.Equal(t, 25.0, stored.TotalAmount)
	assert.Equal(t, StatusConfirmed, stored.Status)
	assert.Equal(t, booking.Reference, stored.Reference)
	assert.Equal(t, "Ada", stored.Name)
	assert.Equal(t, "ada@example.com", stored.Email)
}
