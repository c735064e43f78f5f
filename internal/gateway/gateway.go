// Package gateway defines the thin contract over the remote document store:
// get/set/subscribe by collection and document id. The engine treats the
// remote store as authoritative; merge writes must not clobber fields absent
// from the partial update, and timestamps are assigned server-side.
package gateway

import (
	"context"
	"time"

	"offersync/pkg/platform/sentinel"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = sentinel.ErrNotFound

// Collection names used by the engine.
const (
	CollectionBaskets   = "baskets"
	CollectionFavorites = "favorites"
	CollectionProfiles  = "profiles"
	CollectionListings  = "listings"
)

// Document is a remote document snapshot. Fields is a deep copy; mutating it
// never affects the store.
type Document struct {
	ID        string
	Fields    map[string]any
	UpdatedAt time.Time
}

// Store is the remote document store contract.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, docID string) (*Document, error)

	// Set writes partial fields. With merge=true fields not present in the
	// update are preserved; with merge=false the document is replaced
	// wholesale. The store assigns the update timestamp.
	Set(ctx context.Context, collection, docID string, fields map[string]any, merge bool) error

	// Subscribe registers onChange for a document. The current value (when
	// present) is delivered before Subscribe returns, then deltas as they
	// land. The returned cancel func stops delivery.
	Subscribe(ctx context.Context, collection, docID string, onChange func(*Document)) (func(), error)
}

// copyFields deep-copies the JSON-shaped field tree (maps, slices, scalars)
// so snapshots and the store never share mutable state.
func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyFields(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = copyValue(elem)
		}
		return out
	default:
		return v
	}
}
