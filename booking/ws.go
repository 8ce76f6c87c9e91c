package booking

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins — adjust for production if needed
		return true
	},
}

// SeatFeed pushes seat-status changes to websocket subscribers, keyed by
// event id. Delivery is best-effort; the claim path never blocks on it.
type SeatFeed struct {
	mu   sync.Mutex
	subs map[string][]*websocket.Conn
}

func NewSeatFeed() *SeatFeed {
	return &SeatFeed{subs: make(map[string][]*websocket.Conn)}
}

// GET /ws/events/:eventid/seats
func (f *SeatFeed) Subscribe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID := ps.ByName("eventid")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.subs[eventID] = append(f.subs[eventID], conn)
	f.mu.Unlock()

	// Keep the connection open until the client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	conns := f.subs[eventID]
	newList := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			newList = append(newList, c)
		}
	}
	f.subs[eventID] = newList
	f.mu.Unlock()

	conn.Close()
}

// Broadcast sends a payload to every subscriber of an event, dropping
// connections that fail to write.
func (f *SeatFeed) Broadcast(eventID string, payload any) {
	if f == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Println("seat feed marshal error:", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	conns := f.subs[eventID]
	newList := conns[:0]
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err == nil {
			newList = append(newList, conn)
		} else {
			conn.Close()
		}
	}
	f.subs[eventID] = newList
}
