// Package catalogue resolves raw offer listings into the grouped, sorted,
// filtered view the rest of the system consumes. Records are immutable
// client-side; edits happen remotely and arrive through a reload.
package catalogue

import (
	"encoding/json"
	"fmt"

	"offersync/pkg/platform/sentinel"
)

// Kind tags the record variant. National chains carry no geographic
// constraint; local stores exist in exactly one governorate.
type Kind int

const (
	KindNational Kind = iota
	KindLocalStore
)

// LocalStoreInfo is present exactly when Kind == KindLocalStore.
type LocalStoreInfo struct {
	// Governorate the store is restricted to. Required.
	Governorate string
	// ChainNameID identifies a named local chain, empty when the chain is
	// unidentified.
	ChainNameID string
	// ChainName is the display name for the chain.
	ChainName string
}

// Record is one time-bounded catalogue listing (flyer/brochure).
type Record struct {
	ID            string
	StoreID       string
	StoreName     string
	CategoryID    string
	SubcategoryID string
	// Validity window, date-only, "2006-01-02".
	StartDate string
	EndDate   string

	Kind  Kind
	Local *LocalStoreInfo
}

// NewNational builds a national-chain record.
func NewNational(id, storeID, storeName, categoryID, startDate, endDate string) Record {
	return Record{
		ID:         id,
		StoreID:    storeID,
		StoreName:  storeName,
		CategoryID: categoryID,
		StartDate:  startDate,
		EndDate:    endDate,
		Kind:       KindNational,
	}
}

// NewLocalStore builds a local-store record.
func NewLocalStore(id, storeID, storeName, categoryID, startDate, endDate string, local LocalStoreInfo) Record {
	return Record{
		ID:         id,
		StoreID:    storeID,
		StoreName:  storeName,
		CategoryID: categoryID,
		StartDate:  startDate,
		EndDate:    endDate,
		Kind:       KindLocalStore,
		Local:      &local,
	}
}

// Validate checks the variant invariant: a local-store record must carry its
// governorate. Date validity is the classifier's concern.
func (r Record) Validate() error {
	switch r.Kind {
	case KindNational:
		return nil
	case KindLocalStore:
		if r.Local == nil || r.Local.Governorate == "" {
			return fmt.Errorf("local-store record %s has no governorate: %w", r.ID, sentinel.ErrInvalidState)
		}
		return nil
	default:
		return fmt.Errorf("record %s has unknown kind %d: %w", r.ID, r.Kind, sentinel.ErrInvalidState)
	}
}

// recordWire is the denormalized shape listings arrive in: variant fields are
// optional and guarded by the isLocalStore flag.
type recordWire struct {
	ID                    string `json:"id"`
	StoreID               string `json:"storeId"`
	StoreName             string `json:"storeName"`
	CategoryID            string `json:"categoryId"`
	SubcategoryID         string `json:"subcategoryId,omitempty"`
	StartDate             string `json:"startDate"`
	EndDate               string `json:"endDate"`
	IsLocalStore          bool   `json:"isLocalStore"`
	LocalStoreGovernorate string `json:"localStoreGovernorate,omitempty"`
	LocalStoreNameID      string `json:"localStoreNameId,omitempty"`
	LocalStoreName        string `json:"localStoreName,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	wire := recordWire{
		ID:            r.ID,
		StoreID:       r.StoreID,
		StoreName:     r.StoreName,
		CategoryID:    r.CategoryID,
		SubcategoryID: r.SubcategoryID,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		IsLocalStore:  r.Kind == KindLocalStore,
	}
	if r.Local != nil {
		wire.LocalStoreGovernorate = r.Local.Governorate
		wire.LocalStoreNameID = r.Local.ChainNameID
		wire.LocalStoreName = r.Local.ChainName
	}
	return json.Marshal(wire)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var wire recordWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Record{
		ID:            wire.ID,
		StoreID:       wire.StoreID,
		StoreName:     wire.StoreName,
		CategoryID:    wire.CategoryID,
		SubcategoryID: wire.SubcategoryID,
		StartDate:     wire.StartDate,
		EndDate:       wire.EndDate,
		Kind:          KindNational,
	}
	if wire.IsLocalStore {
		r.Kind = KindLocalStore
		r.Local = &LocalStoreInfo{
			Governorate: wire.LocalStoreGovernorate,
			ChainNameID: wire.LocalStoreNameID,
			ChainName:   wire.LocalStoreName,
		}
	}
	return nil
}
