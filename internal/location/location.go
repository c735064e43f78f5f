// Package location tracks the user's selected governorate and city. The
// selector enforces referential integrity (a city selection implies its
// governorate); storage never does. A restored-from-remote flag lets
// consumers tell "remote location not checked yet" apart from "checked, and
// there is none" so the catalogue never filters prematurely.
package location

import (
	"fmt"
	"sync"

	"offersync/pkg/platform/sentinel"
)

// City is one selectable city within a governorate.
type City struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Governorate is the top-level geographic filter unit.
type Governorate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Cities []City `json:"cities"`
}

// Catalog is the reference data the selector validates against.
type Catalog struct {
	governorates map[string]Governorate
	ordered      []Governorate
}

func NewCatalog(governorates []Governorate) *Catalog {
	byID := make(map[string]Governorate, len(governorates))
	for _, g := range governorates {
		byID[g.ID] = g
	}
	return &Catalog{
		governorates: byID,
		ordered:      append([]Governorate(nil), governorates...),
	}
}

// Governorates returns the reference data in its source order.
func (c *Catalog) Governorates() []Governorate {
	return append([]Governorate(nil), c.ordered...)
}

// Validate checks that the governorate exists and, when a city is given, that
// it belongs to that governorate.
func (c *Catalog) Validate(governorateID, cityID string) error {
	gov, ok := c.governorates[governorateID]
	if !ok {
		return fmt.Errorf("governorate %q: %w", governorateID, sentinel.ErrNotFound)
	}
	if cityID == "" {
		return nil
	}
	for _, city := range gov.Cities {
		if city.ID == cityID {
			return nil
		}
	}
	return fmt.Errorf("city %q in governorate %q: %w", cityID, governorateID, sentinel.ErrNotFound)
}

// Notifier observes selection changes. replace=true marks hydration replays.
type Notifier func(replace bool)

// Selection is the mutable location state.
type Selection struct {
	catalog *Catalog

	mu            sync.RWMutex
	governorateID string
	cityID        string
	restored      bool
	notify        Notifier
}

func NewSelection(catalog *Catalog) *Selection {
	return &Selection{catalog: catalog}
}

// SetNotifier installs the change observer. Set once at wiring time.
func (s *Selection) SetNotifier(fn Notifier) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// Set records a user selection. A city without a governorate is rejected, as
// is a city outside the chosen governorate.
func (s *Selection) Set(governorateID, cityID string) error {
	if cityID != "" && governorateID == "" {
		return fmt.Errorf("city selection requires a governorate: %w", sentinel.ErrInvalidState)
	}
	if governorateID != "" {
		if err := s.catalog.Validate(governorateID, cityID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.governorateID = governorateID
	s.cityID = cityID
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(false)
	}
	return nil
}

// Clear drops the selection ("show everything").
func (s *Selection) Clear() {
	s.mu.Lock()
	s.governorateID = ""
	s.cityID = ""
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(false)
	}
}

// RestoreFromRemote adopts the remote profile's location and marks the remote
// check as completed, even when both values are empty, so consumers stop
// waiting. Invalid remote pairs are dropped to an empty selection rather than
// breaking the integrity rule locally.
func (s *Selection) RestoreFromRemote(governorateID, cityID string) {
	if governorateID == "" {
		cityID = ""
	} else if err := s.catalog.Validate(governorateID, cityID); err != nil {
		governorateID, cityID = "", ""
	}

	s.mu.Lock()
	s.governorateID = governorateID
	s.cityID = cityID
	s.restored = true
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(true)
	}
}

// Restored reports whether the remote location check has completed this
// session.
func (s *Selection) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

// ResetRestored clears the flag at sign-out so the next sign-in re-evaluates
// the remote profile.
func (s *Selection) ResetRestored() {
	s.mu.Lock()
	s.restored = false
	s.mu.Unlock()
}

// GovernorateID returns the selected governorate id, "" when unset.
func (s *Selection) GovernorateID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.governorateID
}

// CityID returns the selected city id, "" when unset.
func (s *Selection) CityID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cityID
}

// Snapshot renders the current state as remote document fields.
func (s *Selection) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"governorateId": s.governorateID,
		"cityId":        s.cityID,
	}
}

// FromFields extracts the location pair from remote document fields. Missing
// or mistyped fields read as empty.
func FromFields(fields map[string]any) (governorateID, cityID string) {
	governorateID, _ = fields["governorateId"].(string)
	cityID, _ = fields["cityId"].(string)
	return governorateID, cityID
}
