// Package basket holds the user's shopping basket: an ordered item list plus
// a derived total. The total is recomputed from the items on every mutation
// and is never trusted as independently authoritative. Mutations go through
// the small reducer surface below; the sync layer only reads snapshots.
package basket

import (
	"encoding/json"
	"fmt"
	"sync"

	"offersync/pkg/platform/sentinel"
)

// Item is one basket line.
type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

// Notifier observes basket changes. replace=true marks hydration replays that
// must not be written back to the remote store.
type Notifier func(replace bool)

type Basket struct {
	mu     sync.RWMutex
	items  []Item
	total  float64
	notify Notifier
}

func New() *Basket {
	return &Basket{}
}

// SetNotifier installs the change observer. Set once at wiring time.
func (b *Basket) SetNotifier(fn Notifier) {
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

// Add appends the item, or bumps the quantity when the product is already
// present.
func (b *Basket) Add(item Item) error {
	if item.ProductID == "" {
		return fmt.Errorf("add basket item: product id is required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	b.mu.Lock()
	found := false
	for i := range b.items {
		if b.items[i].ProductID == item.ProductID {
			b.items[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		b.items = append(b.items, item)
	}
	b.recompute()
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify(false)
	}
	return nil
}

// UpdateQuantity sets the quantity for a product; zero or negative removes it.
func (b *Basket) UpdateQuantity(productID string, quantity int) error {
	b.mu.Lock()
	idx := -1
	for i := range b.items {
		if b.items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return fmt.Errorf("update quantity for %s: %w", productID, sentinel.ErrNotFound)
	}
	if quantity <= 0 {
		b.items = append(b.items[:idx], b.items[idx+1:]...)
	} else {
		b.items[idx].Quantity = quantity
	}
	b.recompute()
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify(false)
	}
	return nil
}

// Remove deletes the product from the basket. Removing an absent product is a
// no-op and does not notify.
func (b *Basket) Remove(productID string) {
	b.mu.Lock()
	removed := false
	for i := range b.items {
		if b.items[i].ProductID == productID {
			b.items = append(b.items[:i], b.items[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		b.recompute()
	}
	notify := b.notify
	b.mu.Unlock()

	if removed && notify != nil {
		notify(false)
	}
}

// Clear empties the basket.
func (b *Basket) Clear() {
	b.mu.Lock()
	b.items = nil
	b.total = 0
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify(false)
	}
}

// Replace swaps the whole basket for a hydrated remote snapshot. Observers
// see it as a replace, never as a mutation.
func (b *Basket) Replace(items []Item) {
	b.mu.Lock()
	b.items = append([]Item(nil), items...)
	b.recompute()
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify(true)
	}
}

// Items returns a copy of the basket lines in insertion order.
func (b *Basket) Items() []Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Item(nil), b.items...)
}

// Total returns the derived aggregate price.
func (b *Basket) Total() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total
}

// Snapshot renders the current state as remote document fields. Called by the
// syncer at debounce-fire time so the write always reflects the latest state.
func (b *Basket) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	items := make([]any, 0, len(b.items))
	for _, item := range b.items {
		items = append(items, map[string]any{
			"productId": item.ProductID,
			"name":      item.Name,
			"price":     item.Price,
			"quantity":  item.Quantity,
			"imageUrl":  item.ImageURL,
		})
	}
	return map[string]any{
		"items": items,
		"total": b.total,
	}
}

// ItemsFromFields decodes remote document fields into basket items.
func ItemsFromFields(fields map[string]any) ([]Item, error) {
	raw, err := json.Marshal(fields["items"])
	if err != nil {
		return nil, fmt.Errorf("encode basket fields: %w", err)
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode basket items: %w", err)
	}
	return items, nil
}

// recompute derives the total in O(n). Callers hold the write lock.
func (b *Basket) recompute() {
	total := 0.0
	for _, item := range b.items {
		total += item.Price * float64(item.Quantity)
	}
	b.total = total
}
