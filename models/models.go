package models

import "time"

type Event struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Date        time.Time `json:"date" bson:"date"`
	Venue       string    `json:"venue" bson:"venue"`
	Rows        int       `json:"rows" bson:"rows"`
	Cols        int       `json:"cols" bson:"cols"`
	Price       float64   `json:"price" bson:"price"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Seat is one chair in one event's grid. Seats reference their event by id,
// never the other way round.
type Seat struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	EventID   string    `json:"event_id" bson:"event_id"`
	Row       string    `json:"row" bson:"row"`
	Number    int       `json:"number" bson:"number"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type Booking struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	EventID     string    `json:"event_id" bson:"event_id"`
	SeatIDs     []string  `json:"seat_ids" bson:"seat_ids"`
	Name        string    `json:"name" bson:"name"`
	Email       string    `json:"email" bson:"email"`
	TotalAmount float64   `json:"total_amount" bson:"total_amount"`
	Status      string    `json:"status" bson:"status"`
	Reference   string    `json:"reference" bson:"reference"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Index is the message shape published on the notification channel after an
// entity mutation.
type Index struct {
	EntityType string `json:"entity_type"`
	Method     string `json:"method"`
	EntityId   string `json:"entity_id"`
	ItemId     string `json:"item_id,omitempty"`
	ItemType   string `json:"item_type,omitempty"`
}
