package gateway

import (
	"context"
	"sync"
	"time"
)

type subscriber struct {
	id       int
	onChange func(*Document)
}

// InMemoryStore is the test and local-dev document store. Subscriptions are
// fanned out synchronously after each write.
type InMemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]map[string]*Document
	subs   map[string][]subscriber
	nextID int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		docs: make(map[string]map[string]*Document),
		subs: make(map[string][]subscriber),
	}
}

func (s *InMemoryStore) Get(_ context.Context, collection, docID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][docID]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(doc), nil
}

func (s *InMemoryStore) Set(_ context.Context, collection, docID string, fields map[string]any, merge bool) error {
	s.mu.Lock()
	coll, ok := s.docs[collection]
	if !ok {
		coll = make(map[string]*Document)
		s.docs[collection] = coll
	}

	doc, exists := coll[docID]
	if !exists || !merge {
		doc = &Document{ID: docID, Fields: copyFields(fields)}
		coll[docID] = doc
	} else {
		for k, v := range fields {
			doc.Fields[k] = v
		}
	}
	doc.UpdatedAt = time.Now()

	notify := append([]subscriber(nil), s.subs[collection+"/"+docID]...)
	snap := snapshot(doc)
	s.mu.Unlock()

	for _, sub := range notify {
		sub.onChange(snap)
	}
	return nil
}

func (s *InMemoryStore) Subscribe(_ context.Context, collection, docID string, onChange func(*Document)) (func(), error) {
	key := collection + "/" + docID

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[key] = append(s.subs[key], subscriber{id: id, onChange: onChange})
	var initial *Document
	if doc, ok := s.docs[collection][docID]; ok {
		initial = snapshot(doc)
	}
	s.mu.Unlock()

	// Initial value lands before Subscribe returns, matching the remote
	// store's snapshot-then-deltas delivery.
	if initial != nil {
		onChange(initial)
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[key]
		for i, sub := range subs {
			if sub.id == id {
				s.subs[key] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return cancel, nil
}

func snapshot(doc *Document) *Document {
	return &Document{ID: doc.ID, Fields: copyFields(doc.Fields), UpdatedAt: doc.UpdatedAt}
}
