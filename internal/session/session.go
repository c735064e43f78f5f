// Package session drives the hydration/dehydration protocol: when a user
// signs in, local collections are replaced with the remote snapshots; when
// they sign out, the current state is flushed back best-effort and local
// session state is cleared. Remote state is authoritative once a session
// exists, but the merge strategy is configurable rather than hard-coded,
// because wholesale replacement silently discards pre-auth local edits.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"offersync/internal/basket"
	"offersync/internal/cache"
	"offersync/internal/favorites"
	"offersync/internal/gateway"
	"offersync/internal/identity"
	"offersync/internal/location"
	"offersync/pkg/platform/sentinel"
)

// State is the per-session protocol state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateHydrating
	StateReady
	StateSigningOut
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateHydrating:
		return "hydrating"
	case StateReady:
		return "ready"
	case StateSigningOut:
		return "signing_out"
	default:
		return "unknown"
	}
}

// MergeStrategy controls what happens to local-only edits made before
// sign-in.
type MergeStrategy int

const (
	// ReplaceRemote discards pre-auth local state in favor of the remote
	// snapshot. This mirrors the historical behavior.
	ReplaceRemote MergeStrategy = iota
	// MergeLocal unions pre-auth local edits into the remote snapshot, with
	// the remote side winning per-item conflicts.
	MergeLocal
)

const collectionCacheTTL = 24 * time.Hour

// Option configures a Hydrator.
type Option func(*Hydrator)

// WithMergeStrategy overrides the default ReplaceRemote strategy.
func WithMergeStrategy(strategy MergeStrategy) Option {
	return func(h *Hydrator) { h.strategy = strategy }
}

// Hydrator owns the session state machine.
type Hydrator struct {
	gw        gateway.Store
	cache     cache.Store
	basket    *basket.Basket
	favorites *favorites.Favorites
	location  *location.Selection
	log       *log.Logger
	strategy  MergeStrategy

	mu          sync.Mutex
	state       State
	userID      string
	watchCancel func()
}

func NewHydrator(
	gw gateway.Store,
	cacheStore cache.Store,
	b *basket.Basket,
	f *favorites.Favorites,
	loc *location.Selection,
	log *log.Logger,
	opts ...Option,
) *Hydrator {
	h := &Hydrator{
		gw:        gw,
		cache:     cacheStore,
		basket:    b,
		favorites: f,
		location:  loc,
		log:       log,
		strategy:  ReplaceRemote,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// State reports the current protocol state.
func (h *Hydrator) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// HandleAuthChange adapts identity transitions to the protocol. Wire it to
// identity.Provider.OnAuthChange. The identity layer reports a profile on
// every transition, so a switch from one user straight to another arrives
// without an intervening nil; the old session is dehydrated first so the new
// user never inherits the previous user's collections.
func (h *Hydrator) HandleAuthChange(ctx context.Context, profile *identity.Profile) {
	if profile == nil {
		h.SignOut(ctx)
		return
	}

	h.mu.Lock()
	state, current := h.state, h.userID
	h.mu.Unlock()

	if state != StateUnauthenticated {
		if current == profile.UserID {
			// Token refresh for the active user; nothing to rehydrate.
			return
		}
		h.SignOut(ctx)
	}

	if err := h.SignIn(ctx, profile.UserID); err != nil {
		h.log.Printf("session: hydrate for %s: %v", profile.UserID, err)
	}
}

// SignIn fetches the remote Favorites, Basket and Location in parallel and
// hydrates the local collections. On fetch failure local state is left
// untouched and the session still becomes ready; the location-checked flag
// stays unset so consumers keep waiting for a real answer.
func (h *Hydrator) SignIn(ctx context.Context, userID string) error {
	h.mu.Lock()
	if h.state != StateUnauthenticated {
		h.mu.Unlock()
		return fmt.Errorf("sign-in from state %s: %w", h.state, sentinel.ErrInvalidState)
	}
	h.state = StateAuthenticating
	h.userID = userID
	h.mu.Unlock()

	h.setState(StateHydrating)

	var basketDoc, favoritesDoc, profileDoc *gateway.Document
	g, fetchCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		basketDoc, err = h.fetch(fetchCtx, gateway.CollectionBaskets, userID)
		return err
	})
	g.Go(func() (err error) {
		favoritesDoc, err = h.fetch(fetchCtx, gateway.CollectionFavorites, userID)
		return err
	})
	g.Go(func() (err error) {
		profileDoc, err = h.fetch(fetchCtx, gateway.CollectionProfiles, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.setState(StateReady)
		return fmt.Errorf("fetch remote state: %w", err)
	}

	h.hydrateBasket(basketDoc)
	h.hydrateFavorites(favoritesDoc)

	// Location always hydrates, even when the remote profile has none: the
	// restored flag must flip so consumers can tell "checked, empty" from
	// "not checked yet".
	var governorateID, cityID string
	if profileDoc != nil {
		governorateID, cityID = location.FromFields(profileDoc.Fields)
	}
	h.location.RestoreFromRemote(governorateID, cityID)

	h.watchProfile(ctx, userID)
	h.setState(StateReady)
	return nil
}

// SignOut flushes Basket and Favorites to the remote store best-effort, then
// clears local session state. Flush failures never block sign-out.
func (h *Hydrator) SignOut(ctx context.Context) {
	h.mu.Lock()
	if h.state == StateUnauthenticated {
		h.mu.Unlock()
		return
	}
	h.state = StateSigningOut
	userID := h.userID
	cancel := h.watchCancel
	h.watchCancel = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if userID != "" {
		var g errgroup.Group
		g.Go(func() error {
			return h.gw.Set(ctx, gateway.CollectionBaskets, userID, h.basket.Snapshot(), true)
		})
		g.Go(func() error {
			return h.gw.Set(ctx, gateway.CollectionFavorites, userID, h.favorites.Snapshot(), true)
		})
		if err := g.Wait(); err != nil {
			h.log.Printf("session: flush on sign-out for %s: %v", userID, err)
		}
	}

	h.basket.Replace(nil)
	h.favorites.Replace(nil)
	h.location.Clear()
	h.location.ResetRestored()

	h.mu.Lock()
	h.userID = ""
	h.state = StateUnauthenticated
	h.mu.Unlock()
}

// fetch translates ErrNotFound into a nil document and writes fetched fields
// through to the cache so later reads can skip the gateway.
func (h *Hydrator) fetch(ctx context.Context, collection, userID string) (*gateway.Document, error) {
	doc, err := h.gw.Get(ctx, collection, userID)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(doc.Fields); err == nil {
		if err := h.cache.Set(ctx, cache.Key(collection, userID), raw, collectionCacheTTL); err != nil {
			h.log.Printf("session: cache %s/%s: %v", collection, userID, err)
		}
	}
	return doc, nil
}

func (h *Hydrator) hydrateBasket(doc *gateway.Document) {
	var remote []basket.Item
	if doc != nil {
		items, err := basket.ItemsFromFields(doc.Fields)
		if err != nil {
			h.log.Printf("session: decode remote basket: %v", err)
		} else {
			remote = items
		}
	}

	if h.strategy == MergeLocal {
		seen := make(map[string]struct{}, len(remote))
		for _, item := range remote {
			seen[item.ProductID] = struct{}{}
		}
		for _, item := range h.basket.Items() {
			if _, ok := seen[item.ProductID]; !ok {
				remote = append(remote, item)
			}
		}
	}
	h.basket.Replace(remote)
}

func (h *Hydrator) hydrateFavorites(doc *gateway.Document) {
	var remote []string
	if doc != nil {
		ids, err := favorites.IDsFromFields(doc.Fields)
		if err != nil {
			h.log.Printf("session: decode remote favorites: %v", err)
		} else {
			remote = ids
		}
	}

	if h.strategy == MergeLocal {
		remote = append(remote, h.favorites.IDs()...)
	}
	h.favorites.Replace(remote)
}

// watchProfile keeps the local location in step with remote profile edits
// made on other devices. Updates land as hydration replays, so they can
// never echo back through the syncer.
func (h *Hydrator) watchProfile(ctx context.Context, userID string) {
	cancel, err := h.gw.Subscribe(ctx, gateway.CollectionProfiles, userID, func(doc *gateway.Document) {
		governorateID, cityID := location.FromFields(doc.Fields)
		h.location.RestoreFromRemote(governorateID, cityID)
	})
	if err != nil {
		h.log.Printf("session: watch profile %s: %v", userID, err)
		return
	}

	h.mu.Lock()
	h.watchCancel = cancel
	h.mu.Unlock()
}

func (h *Hydrator) setState(state State) {
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
}
