package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"offersync/internal/cache"
	"offersync/internal/gateway"
)

// DefaultListingID is the catch-all listing document holding the full
// catalogue feed.
const DefaultListingID = "all"

// Loader reads listing documents cache-aside: cache first, the document
// store on a miss, writing the decoded set back with a TTL.
type Loader struct {
	cache cache.Store
	gw    gateway.Store
	ttl   time.Duration
	log   *log.Logger
}

func NewLoader(cacheStore cache.Store, gw gateway.Store, ttl time.Duration, log *log.Logger) *Loader {
	return &Loader{cache: cacheStore, gw: gw, ttl: ttl, log: log}
}

// ListRecords returns the records of a listing. A listing that does not
// exist yet reads as empty rather than an error, so a fresh environment
// renders an empty catalogue instead of failing.
func (l *Loader) ListRecords(ctx context.Context, listingID string) ([]Record, error) {
	if listingID == "" {
		listingID = DefaultListingID
	}
	key := cache.Key("listing", listingID)

	if raw, err := l.cache.Get(ctx, key); err == nil {
		var records []Record
		if err := json.Unmarshal(raw, &records); err == nil {
			return records, nil
		}
		// Corrupt payload: evict and fall through to the source of truth.
		if err := l.cache.Invalidate(ctx, key); err != nil {
			l.log.Printf("catalogue: evict corrupt listing %s: %v", listingID, err)
		}
	}

	doc, err := l.gw.Get(ctx, gateway.CollectionListings, listingID)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load listing %s: %w", listingID, err)
	}

	records, err := recordsFromFields(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("decode listing %s: %w", listingID, err)
	}

	if raw, err := json.Marshal(records); err == nil {
		if err := l.cache.Set(ctx, key, raw, l.ttl); err != nil {
			l.log.Printf("catalogue: cache listing %s: %v", listingID, err)
		}
	}
	return records, nil
}

// Refresh drops the cached copy so the next read hits the document store.
func (l *Loader) Refresh(ctx context.Context, listingID string) error {
	if listingID == "" {
		listingID = DefaultListingID
	}
	return l.cache.Invalidate(ctx, cache.Key("listing", listingID))
}

func recordsFromFields(fields map[string]any) ([]Record, error) {
	raw, ok := fields["records"]
	if !ok {
		return nil, nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(buf, &records); err != nil {
		return nil, err
	}
	return records, nil
}
