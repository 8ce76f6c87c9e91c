package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	Events   = "events"
	Seats    = "seats"
	Bookings = "bookings"
)

// ErrUnavailable wraps every failure to execute a store operation, including
// the disconnected case. Callers must not treat it as "no matches".
var ErrUnavailable = errors.New("document store unavailable")

// Store is the document-store contract the rest of the service is written
// against. ConditionalUpdate is the single atomicity primitive: the match and
// the set are one indivisible operation, so two concurrent callers can never
// both succeed against the same document.
type Store interface {
	CreateDocument(ctx context.Context, collection string, fields bson.M) (string, error)
	FindDocuments(ctx context.Context, collection string, filter bson.M, limit int64) ([]bson.M, error)
	// ConditionalUpdate returns the post-update document when the match
	// succeeded, or (nil, nil) when no document matched.
	ConditionalUpdate(ctx context.Context, collection string, match, set bson.M) (bson.M, error)
	// UnconditionalUpdate applies set to every document matching the filter
	// and reports how many were updated.
	UnconditionalUpdate(ctx context.Context, collection string, match, set bson.M) (int64, error)
	DeleteDocuments(ctx context.Context, collection string, filter bson.M) (int64, error)
	Ping(ctx context.Context) error
}

// Mongo implements Store on a MongoDB database. The conditional update maps
// to FindOneAndUpdate, which MongoDB executes atomically per document.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, uri, name string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Mongo{client: client, db: client.Database(name)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (m *Mongo) CreateDocument(ctx context.Context, collection string, fields bson.M) (string, error) {
	now := time.Now().UTC()
	doc := bson.M{"created_at": now, "updated_at": now}
	for k, v := range fields {
		doc[k] = v
	}
	res, err := m.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("%w: unexpected inserted id %v", ErrUnavailable, res.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *Mongo) FindDocuments(ctx context.Context, collection string, filter bson.M, limit int64) ([]bson.M, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if filter == nil {
		filter = bson.M{}
	}
	cur, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer cur.Close(ctx)

	var docs []bson.M
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		docs = append(docs, stringifyID(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return docs, nil
}

func (m *Mongo) ConditionalUpdate(ctx context.Context, collection string, match, set bson.M) (bson.M, error) {
	update := bson.M{"$set": withUpdatedAt(set)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bson.M
	err := m.db.Collection(collection).FindOneAndUpdate(ctx, match, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return stringifyID(doc), nil
}

func (m *Mongo) UnconditionalUpdate(ctx context.Context, collection string, match, set bson.M) (int64, error) {
	update := bson.M{"$set": withUpdatedAt(set)}
	res, err := m.db.Collection(collection).UpdateMany(ctx, match, update)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res.ModifiedCount, nil
}

func (m *Mongo) DeleteDocuments(ctx context.Context, collection string, filter bson.M) (int64, error) {
	res, err := m.db.Collection(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res.DeletedCount, nil
}

func withUpdatedAt(set bson.M) bson.M {
	out := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range set {
		out[k] = v
	}
	return out
}

// stringifyID rewrites the native ObjectID under "_id" as its hex form so
// documents decode into models with plain string ids.
func stringifyID(doc bson.M) bson.M {
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		doc["_id"] = oid.Hex()
	}
	return doc
}

// Disconnected is the explicit "no store" variant. Every operation fails with
// ErrUnavailable instead of silently returning empty results.
type Disconnected struct{}

func (Disconnected) CreateDocument(context.Context, string, bson.M) (string, error) {
	return "", ErrUnavailable
}

func (Disconnected) FindDocuments(context.Context, string, bson.M, int64) ([]bson.M, error) {
	return nil, ErrUnavailable
}

func (Disconnected) ConditionalUpdate(context.Context, string, bson.M, bson.M) (bson.M, error) {
	return nil, ErrUnavailable
}

func (Disconnected) UnconditionalUpdate(context.Context, string, bson.M, bson.M) (int64, error) {
	return 0, ErrUnavailable
}

func (Disconnected) DeleteDocuments(context.Context, string, bson.M) (int64, error) {
	return 0, ErrUnavailable
}

func (Disconnected) Ping(context.Context) error { return ErrUnavailable }
