package routes

import (
	"tessera/booking"
	"tessera/events"
	"tessera/ratelim"
	"tessera/tickets"

	"github.com/julienschmidt/httprouter"
)

func AddEventRoutes(router *httprouter.Router, h *events.Handler, rl *ratelim.RateLimiter) {
	router.POST("/api/events", rl.Limit(h.CreateEvent))
	router.GET("/api/events", h.GetEvents)
	router.GET("/api/events/:eventid/seats", h.GetEventSeats)
	router.DELETE("/api/events/:eventid", rl.Limit(h.DeleteEvent))
}

func AddBookingRoutes(router *httprouter.Router, h *booking.Handler, feed *booking.SeatFeed, rl *ratelim.RateLimiter) {
	router.POST("/api/bookings", rl.Limit(h.CreateBooking))
	router.GET("/api/bookings/:bookingid", h.GetBooking)
	router.GET("/ws/events/:eventid/seats", feed.Subscribe)
}

func AddTicketRoutes(router *httprouter.Router, h *tickets.Handler) {
	router.GET("/api/bookings/:bookingid/ticket", h.PrintTicket)
}
