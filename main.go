package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tessera/booking"
	"tessera/db"
	"tessera/events"
	"tessera/mq"
	"tessera/ratelim"
	"tessera/rdx"
	"tessera/routes"
	"tessera/seats"
	"tessera/tickets"
	"tessera/utils"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// health reports server liveness and store connectivity.
func health(store db.Store) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		storeStatus := "connected"
		if err := store.Ping(r.Context()); err != nil {
			storeStatus = "unavailable"
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"status": "ok",
			"store":  storeStatus,
		})
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	port := env("PORT", ":8080")
	if port[0] != ':' {
		port = ":" + port
	}

	// connect the document store; keep serving with an explicit
	// disconnected store when it is down, so /health still answers
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store db.Store
	mongoStore, err := db.Connect(ctx, env("MONGODB_URI", "mongodb://localhost:27017"), env("MONGODB_DB", "tessera"))
	if err != nil {
		log.Printf("⚠️  MongoDB unavailable, data operations will fail: %v", err)
		store = db.Disconnected{}
	} else {
		store = mongoStore
	}

	// Redis is optional; without it notifications are simply disabled
	redisConn, err := rdx.Connect(env("REDIS_ADDR", "localhost:6379"))
	if err != nil {
		log.Printf("⚠️  Redis unavailable, notifications disabled: %v", err)
	}
	emitter := mq.NewEmitter(redisConn)

	seatManager := seats.NewManager(store)
	ledger := booking.NewLedger(store)
	engine := booking.NewEngine(store, ledger)
	feed := booking.NewSeatFeed()

	eventHandler := events.NewHandler(store, seatManager, emitter)
	bookingHandler := booking.NewHandler(engine, ledger, emitter, feed)
	ticketHandler := tickets.NewHandler(store, ledger)

	rateLimiter := ratelim.NewRateLimiter()

	router := httprouter.New()
	router.GET("/health", health(store))
	routes.AddEventRoutes(router, eventHandler, rateLimiter)
	routes.AddBookingRoutes(router, bookingHandler, feed, rateLimiter)
	routes.AddTicketRoutes(router, ticketHandler)

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	// wait for interrupt or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}

	if mongoStore != nil {
		if err := mongoStore.Close(shutdownCtx); err != nil {
			log.Printf("MongoDB disconnect error: %v", err)
		}
	}
	if redisConn != nil {
		redisConn.Close()
	}

	log.Println("✅ Server stopped cleanly")
}
