// Package tickets renders printable PDF tickets for confirmed bookings.
package tickets

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"tessera/booking"
	"tessera/db"
	"tessera/events"
	"tessera/utils"
)

const hmacSecret = "your-very-secret-key" // keep secure

// qrPayload returns a signed payload: eventID|bookingID|reference|signature.
// Gate scanners verify the signature offline.
func qrPayload(eventID, bookingID, reference string) string {
	data := fmt.Sprintf("%s|%s|%s", eventID, bookingID, reference)

	h := hmac.New(sha256.New, []byte(hmacSecret))
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s|%s", data, sig)
}

type Handler struct {
	store  db.Store
	ledger *booking.Ledger
}

func NewHandler(store db.Store, ledger *booking.Ledger) *Handler {
	return &Handler{store: store, ledger: ledger}
}

// GET /api/bookings/:bookingid/ticket
func (h *Handler) PrintTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookingID := ps.ByName("bookingid")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	bk, err := h.ledger.Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Booking not found")
			return
		}
		log.Println("print ticket booking lookup error:", err)
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}

	event, err := events.GetByID(ctx, h.store, bk.EventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Event not found")
			return
		}
		log.Println("print ticket event lookup error:", err)
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}

	qrPNG, err := qrcode.Encode(qrPayload(event.ID, bk.ID, bk.Reference), qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Event Ticket")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Event: %s", event.Title))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Venue: %s", event.Venue))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Date: %s", event.Date.Format("2 Jan 2006 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Name: %s", bk.Name))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Seats: %d", len(bk.SeatIDs)))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Total: %.2f", bk.TotalAmount))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Reference: %s", bk.Reference))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=ticket-"+bk.Reference+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
