// Package testutil provides an in-memory implementation of the db.Store
// contract so the reservation protocol can be exercised without a running
// MongoDB. The whole store is guarded by one mutex, which gives the
// conditional update the same per-document atomicity the real store provides.
package testutil

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]bson.M

	// Failure injection. An error here makes the corresponding operation
	// fail; FailConditionalAfter >= 1 makes the nth and every later
	// ConditionalUpdate call fail instead.
	CreateErr            error
	FindErr              error
	ConditionalErr       error
	UnconditionalErr     error
	DeleteErr            error
	FailConditionalAfter int

	conditionalCalls int
}

func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]bson.M)}
}

func (s *Store) coll(name string) map[string]bson.M {
	if s.collections[name] == nil {
		s.collections[name] = make(map[string]bson.M)
	}
	return s.collections[name]
}

func (s *Store) CreateDocument(_ context.Context, collection string, fields bson.M) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return "", s.CreateErr
	}

	id := primitive.NewObjectID().Hex()
	now := time.Now().UTC()
	doc := bson.M{"_id": id, "created_at": now, "updated_at": now}
	for k, v := range fields {
		doc[k] = v
	}
	s.coll(collection)[id] = doc
	return id, nil
}

func (s *Store) FindDocuments(_ context.Context, collection string, filter bson.M, limit int64) ([]bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return nil, s.FindErr
	}

	var docs []bson.M
	for _, doc := range s.coll(collection) {
		if !matches(doc, filter) {
			continue
		}
		docs = append(docs, clone(doc))
		if limit > 0 && int64(len(docs)) == limit {
			break
		}
	}
	return docs, nil
}

func (s *Store) ConditionalUpdate(_ context.Context, collection string, match, set bson.M) (bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conditionalCalls++
	if s.ConditionalErr != nil {
		return nil, s.ConditionalErr
	}
	if s.FailConditionalAfter >= 1 && s.conditionalCalls >= s.FailConditionalAfter {
		return nil, errInjected
	}

	for _, doc := range s.coll(collection) {
		if matches(doc, match) {
			apply(doc, set)
			return clone(doc), nil
		}
	}
	return nil, nil
}

func (s *Store) UnconditionalUpdate(_ context.Context, collection string, match, set bson.M) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UnconditionalErr != nil {
		return 0, s.UnconditionalErr
	}

	var n int64
	for _, doc := range s.coll(collection) {
		if matches(doc, match) {
			apply(doc, set)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteDocuments(_ context.Context, collection string, filter bson.M) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}

	var n int64
	for id, doc := range s.coll(collection) {
		if matches(doc, filter) {
			delete(s.coll(collection), id)
			n++
		}
	}
	return n, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Doc returns a copy of one stored document, or nil if absent.
func (s *Store) Doc(collection, id string) bson.M {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.coll(collection)[id]
	if !ok {
		return nil
	}
	return clone(doc)
}

// Count reports how many documents in a collection match the filter.
func (s *Store) Count(collection string, filter bson.M) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, doc := range s.coll(collection) {
		if matches(doc, filter) {
			n++
		}
	}
	return n
}

var errInjected = injectedError{}

type injectedError struct{}

func (injectedError) Error() string { return "testutil: injected store failure" }

func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		if !equal(doc[k], want) {
			return false
		}
	}
	return true
}

// equal compares filter values against stored fields, folding ObjectIDs to
// their hex form the way the real adapter exposes ids.
func equal(got, want any) bool {
	if oid, ok := want.(primitive.ObjectID); ok {
		want = oid.Hex()
	}
	if oid, ok := got.(primitive.ObjectID); ok {
		got = oid.Hex()
	}
	return got == want
}

func apply(doc, set bson.M) {
	for k, v := range set {
		doc[k] = v
	}
	doc["updated_at"] = time.Now().UTC()
}

func clone(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
