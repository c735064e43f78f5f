// Package favorites holds the user's saved catalogue records as an ordered,
// de-duplicated list of record ids. Same reducer discipline as the basket:
// mutations go through Add/Remove/Clear, hydration goes through Replace, and
// the sync layer only reads snapshots.
package favorites

import (
	"encoding/json"
	"fmt"
	"sync"

	pstrings "offersync/pkg/platform/strings"
)

// Notifier observes favorites changes. replace=true marks hydration replays.
type Notifier func(replace bool)

type Favorites struct {
	mu     sync.RWMutex
	ids    []string
	notify Notifier
}

func New() *Favorites {
	return &Favorites{}
}

// SetNotifier installs the change observer. Set once at wiring time.
func (f *Favorites) SetNotifier(fn Notifier) {
	f.mu.Lock()
	f.notify = fn
	f.mu.Unlock()
}

// Add appends the record id. Adding an id already present is a no-op and does
// not notify.
func (f *Favorites) Add(recordID string) {
	if recordID == "" {
		return
	}

	f.mu.Lock()
	for _, id := range f.ids {
		if id == recordID {
			f.mu.Unlock()
			return
		}
	}
	f.ids = append(f.ids, recordID)
	notify := f.notify
	f.mu.Unlock()

	if notify != nil {
		notify(false)
	}
}

// Remove drops the record id. Removing an absent id is a no-op.
func (f *Favorites) Remove(recordID string) {
	f.mu.Lock()
	removed := false
	for i, id := range f.ids {
		if id == recordID {
			f.ids = append(f.ids[:i], f.ids[i+1:]...)
			removed = true
			break
		}
	}
	notify := f.notify
	f.mu.Unlock()

	if removed && notify != nil {
		notify(false)
	}
}

// Clear empties the favorites list.
func (f *Favorites) Clear() {
	f.mu.Lock()
	f.ids = nil
	notify := f.notify
	f.mu.Unlock()

	if notify != nil {
		notify(false)
	}
}

// Contains reports whether the record id is saved.
func (f *Favorites) Contains(recordID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, id := range f.ids {
		if id == recordID {
			return true
		}
	}
	return false
}

// Replace swaps the list for a hydrated remote snapshot, de-duplicating
// whatever the remote side accumulated.
func (f *Favorites) Replace(recordIDs []string) {
	deduped := pstrings.DedupeAndTrim(recordIDs)

	f.mu.Lock()
	f.ids = deduped
	notify := f.notify
	f.mu.Unlock()

	if notify != nil {
		notify(true)
	}
}

// IDs returns a copy of the saved record ids in insertion order.
func (f *Favorites) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.ids...)
}

// Snapshot renders the current state as remote document fields.
func (f *Favorites) Snapshot() map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]any, 0, len(f.ids))
	for _, id := range f.ids {
		ids = append(ids, id)
	}
	return map[string]any{"recordIds": ids}
}

// IDsFromFields decodes remote document fields into record ids.
func IDsFromFields(fields map[string]any) ([]string, error) {
	raw, err := json.Marshal(fields["recordIds"])
	if err != nil {
		return nil, fmt.Errorf("encode favorites fields: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode favorite record ids: %w", err)
	}
	return ids, nil
}
