package httptransport

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"offersync/internal/basket"
	"offersync/internal/catalogue"
	"offersync/internal/favorites"
	"offersync/internal/location"
	"offersync/internal/session"
	"offersync/pkg/platform/sentinel"
)

// TokenStore is the slice of the identity provider the transport needs.
type TokenStore interface {
	SetToken(token string) error
	Clear()
}

// Handler is the thin HTTP layer over the engine. It decodes requests,
// delegates, and translates sentinel errors to status codes; no business
// logic lives here.
type Handler struct {
	log       *log.Logger
	tokens    TokenStore
	hydrator  *session.Hydrator
	loader    *catalogue.Loader
	pipeline  *catalogue.Pipeline
	basket    *basket.Basket
	favorites *favorites.Favorites
	location  *location.Selection
	catalog   *location.Catalog
}

func NewHandler(
	logger *log.Logger,
	tokens TokenStore,
	hydrator *session.Hydrator,
	loader *catalogue.Loader,
	pipeline *catalogue.Pipeline,
	b *basket.Basket,
	f *favorites.Favorites,
	sel *location.Selection,
	catalog *location.Catalog,
) *Handler {
	return &Handler{
		log:       logger,
		tokens:    tokens,
		hydrator:  hydrator,
		loader:    loader,
		pipeline:  pipeline,
		basket:    b,
		favorites: f,
		location:  sel,
		catalog:   catalog,
	}
}

// Register mounts all engine routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", h.handleSessionState)
		r.Post("/session", h.handleSignIn)
		r.Delete("/session", h.handleSignOut)

		r.Get("/catalogue", h.handleCatalogue)
		r.Post("/catalogue/refresh", h.handleCatalogueRefresh)

		r.Get("/basket", h.handleGetBasket)
		r.Delete("/basket", h.handleClearBasket)
		r.Post("/basket/items", h.handleAddBasketItem)
		r.Put("/basket/items/{productID}", h.handleUpdateBasketItem)
		r.Delete("/basket/items/{productID}", h.handleRemoveBasketItem)

		r.Get("/favorites", h.handleGetFavorites)
		r.Put("/favorites/{recordID}", h.handleAddFavorite)
		r.Delete("/favorites/{recordID}", h.handleRemoveFavorite)

		r.Get("/location", h.handleGetLocation)
		r.Put("/location", h.handleSetLocation)
		r.Delete("/location", h.handleClearLocation)
		r.Get("/governorates", h.handleGovernorates)
	})
}

func (h *Handler) handleSessionState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state": h.hydrator.State().String(),
	})
}

// handleSignIn adopts an access token. Hydration is triggered through the
// identity provider's auth-change subscription, not called directly here.
func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		writeErrorMessage(w, http.StatusBadRequest, "accessToken is required")
		return
	}
	if err := h.tokens.SetToken(req.AccessToken); err != nil {
		h.log.Printf("http: reject access token: %v", err)
		writeErrorMessage(w, http.StatusUnauthorized, "invalid access token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	h.tokens.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleCatalogue resolves the listing through the filter pipeline. The
// governorate defaults to the active location selection; an explicit query
// parameter overrides it.
func (h *Handler) handleCatalogue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	records, err := h.loader.ListRecords(r.Context(), q.Get("listingId"))
	if err != nil {
		h.log.Printf("http: load listing: %v", err)
		writeError(w, err)
		return
	}

	governorateID := h.location.GovernorateID()
	if q.Has("governorateId") {
		governorateID = q.Get("governorateId")
	}

	filter := catalogue.Filter{
		GovernorateID: governorateID,
		Scope:         catalogue.StoreScope(q.Get("scope")),
		Status:        catalogue.StatusFilter(q.Get("status")),
		CategoryID:    q.Get("categoryId"),
		SubcategoryID: q.Get("subcategoryId"),
	}
	if storeID := q.Get("storeId"); storeID != "" {
		filter.Store = &catalogue.StoreKey{
			StoreID:     storeID,
			Governorate: q.Get("storeGovernorate"),
		}
	}

	groups := h.pipeline.Resolve(r.Context(), records, filter)
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) handleCatalogueRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.loader.Refresh(r.Context(), r.URL.Query().Get("listingId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetBasket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": h.basket.Items(),
		"total": h.basket.Total(),
	})
}

func (h *Handler) handleAddBasketItem(w http.ResponseWriter, r *http.Request) {
	var item basket.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.basket.Add(item); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateBasketItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.basket.UpdateQuantity(chi.URLParam(r, "productID"), req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveBasketItem(w http.ResponseWriter, r *http.Request) {
	h.basket.Remove(chi.URLParam(r, "productID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearBasket(w http.ResponseWriter, r *http.Request) {
	h.basket.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"recordIds": h.favorites.IDs(),
	})
}

func (h *Handler) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorites.Add(chi.URLParam(r, "recordID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.favorites.Remove(chi.URLParam(r, "recordID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"governorateId": h.location.GovernorateID(),
		"cityId":        h.location.CityID(),
		"restored":      h.location.Restored(),
	})
}

func (h *Handler) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GovernorateID string `json:"governorateId"`
		CityID        string `json:"cityId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.location.Set(req.GovernorateID, req.CityID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearLocation(w http.ResponseWriter, r *http.Request) {
	h.location.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGovernorates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"governorates": h.catalog.Governorates(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps sentinel errors to status codes. Anything unrecognized is a
// 500 with a generic body so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, sentinel.ErrUnavailable):
		writeErrorMessage(w, http.StatusServiceUnavailable, "upstream unavailable")
	default:
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
