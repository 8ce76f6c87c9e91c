package db

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Decode maps a raw document onto a typed model via bson round-tripping.
func Decode[T any](doc bson.M) (T, error) {
	var out T
	raw, err := bson.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("encode document: %w", err)
	}
	if err := bson.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// DecodeAll maps a result set onto typed models, preserving store order.
func DecodeAll[T any](docs []bson.M) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := Decode[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
