package catalogue

import (
	"context"
	"encoding/json"
	"log"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StoreScope narrows results to one record variant.
type StoreScope string

const (
	ScopeAll      StoreScope = "all"
	ScopeNational StoreScope = "national"
	ScopeLocal    StoreScope = "local"
)

// StatusFilter narrows results to one lifecycle bucket.
type StatusFilter string

const (
	StatusFilterAll      StatusFilter = "all"
	StatusFilterActive   StatusFilter = "active"
	StatusFilterUpcoming StatusFilter = "upcoming"
	StatusFilterExpired  StatusFilter = "expired"
)

// StoreKey selects a single store. A local store is identified by id plus
// governorate; a national store by id alone (Governorate empty), so a
// national chain and a local shop sharing a storeId never collide.
type StoreKey struct {
	StoreID     string
	Governorate string
}

// Filter is the full query surface of a resolution. Zero values mean
// "no constraint".
type Filter struct {
	GovernorateID string
	Scope         StoreScope
	Store         *StoreKey
	Status        StatusFilter
	CategoryID    string
	SubcategoryID string
}

// ResolvedRecord is a record annotated with its lifecycle status.
type ResolvedRecord struct {
	Record
	Status Status
}

// MarshalJSON flattens the record wire shape and adds the status, so the
// embedded Record's marshaler does not silently drop it.
func (r ResolvedRecord) MarshalJSON() ([]byte, error) {
	raw, err := r.Record.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["status"] = r.Status.String()
	return json.Marshal(fields)
}

// StoreGroup is one display bucket of resolved records.
type StoreGroup struct {
	Key         string           `json:"key"`
	DisplayName string           `json:"displayName"`
	IsLocal     bool             `json:"isLocal"`
	HasActive   bool             `json:"hasActive"`
	Records     []ResolvedRecord `json:"records"`
}

const otherLocalStoresKey = "local:other"

// Pipeline resolves raw records into filtered, grouped, sorted store groups.
// Resolution is pure: same records, same filter and same day always produce
// the same output.
type Pipeline struct {
	classifier *Classifier
	tracer     trace.Tracer
	log        *log.Logger
}

func NewPipeline(classifier *Classifier, log *log.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		tracer:     otel.Tracer("offersync/catalogue"),
		log:        log,
	}
}

// Resolve runs the stages in a fixed order: category, location, store scope,
// grouping, lifecycle, sort. Classification runs late so it touches the
// smallest surviving set.
func (p *Pipeline) Resolve(ctx context.Context, records []Record, f Filter) []StoreGroup {
	ctx, span := p.tracer.Start(ctx, "catalogue.resolve",
		trace.WithAttributes(
			attribute.Int("records.in", len(records)),
			attribute.String("filter.governorate", f.GovernorateID),
			attribute.String("filter.scope", string(f.Scope)),
		))
	defer span.End()

	kept := make([]Record, 0, len(records))
	for _, rec := range records {
		if !matchCategory(rec, f) {
			continue
		}
		if !matchLocation(rec, f) {
			continue
		}
		if !matchStore(rec, f) {
			continue
		}
		kept = append(kept, rec)
	}

	groups := p.group(ctx, kept, f)
	sortGroups(groups)

	span.SetAttributes(attribute.Int("groups.out", len(groups)))
	return groups
}

func matchCategory(rec Record, f Filter) bool {
	if f.CategoryID != "" && rec.CategoryID != f.CategoryID {
		return false
	}
	if f.SubcategoryID != "" && rec.SubcategoryID != f.SubcategoryID {
		return false
	}
	return true
}

// matchLocation keeps national records unconditionally. Local records must
// match the selected governorate; with no governorate selected everything
// passes, so an unset location never hides content. A local record missing
// its governorate cannot match any selection.
func matchLocation(rec Record, f Filter) bool {
	if rec.Kind == KindNational {
		return true
	}
	if f.GovernorateID == "" {
		return true
	}
	return rec.Local != nil && rec.Local.Governorate == f.GovernorateID
}

func matchStore(rec Record, f Filter) bool {
	switch f.Scope {
	case ScopeNational:
		if rec.Kind != KindNational {
			return false
		}
	case ScopeLocal:
		if rec.Kind != KindLocalStore {
			return false
		}
	}

	if f.Store == nil {
		return true
	}
	if rec.StoreID != f.Store.StoreID {
		return false
	}
	if f.Store.Governorate == "" {
		return rec.Kind == KindNational
	}
	return rec.Kind == KindLocalStore && rec.Local != nil &&
		rec.Local.Governorate == f.Store.Governorate
}

// group buckets records, classifies them and applies the status filter.
// National records group by store id. Local records group by store id plus
// chain identity; records whose chain is unidentified fall into a shared
// "other local stores" bucket instead of borrowing some shop's name.
func (p *Pipeline) group(ctx context.Context, records []Record, f Filter) []StoreGroup {
	byKey := make(map[string]*StoreGroup)
	order := make([]string, 0)

	for _, rec := range records {
		key, name, local := groupIdentity(rec)

		status := p.status(ctx, rec)
		if !matchStatus(status, f.Status) {
			continue
		}

		grp, ok := byKey[key]
		if !ok {
			grp = &StoreGroup{Key: key, DisplayName: name, IsLocal: local}
			byKey[key] = grp
			order = append(order, key)
		}
		grp.Records = append(grp.Records, ResolvedRecord{Record: rec, Status: status})
		if status == StatusActive {
			grp.HasActive = true
		}
	}

	groups := make([]StoreGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byKey[key])
	}
	return groups
}

func groupIdentity(rec Record) (key, displayName string, isLocal bool) {
	if rec.Kind == KindNational {
		return "national:" + rec.StoreID, rec.StoreName, false
	}
	if rec.Local == nil || rec.Local.ChainNameID == "" {
		return otherLocalStoresKey, "Other local stores", true
	}
	name := rec.Local.ChainName
	if name == "" {
		name = rec.Local.ChainNameID
	}
	return "local:" + rec.StoreID + ":" + rec.Local.ChainNameID, name, true
}

// status guards classification with the variant invariant: a structurally
// invalid record reads as expired so it never surfaces as active content.
func (p *Pipeline) status(ctx context.Context, rec Record) Status {
	if err := rec.Validate(); err != nil {
		p.log.Printf("catalogue: invalid record dropped to expired: %v", err)
		return StatusExpired
	}
	return p.classifier.Classify(ctx, rec)
}

func matchStatus(status Status, f StatusFilter) bool {
	switch f {
	case StatusFilterActive:
		return status == StatusActive
	case StatusFilterUpcoming:
		return status == StatusUpcoming
	case StatusFilterExpired:
		return status == StatusExpired
	default:
		return true
	}
}

// sortGroups orders deterministically: national groups before local, then by
// display name, with the key as a final tiebreak. Within a group, active
// records come first, then newer start dates; ids break remaining ties.
// ISO date strings compare correctly as plain strings.
func sortGroups(groups []StoreGroup) {
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].IsLocal != groups[j].IsLocal {
			return !groups[i].IsLocal
		}
		if groups[i].DisplayName != groups[j].DisplayName {
			return groups[i].DisplayName < groups[j].DisplayName
		}
		return groups[i].Key < groups[j].Key
	})

	for gi := range groups {
		recs := groups[gi].Records
		sort.Slice(recs, func(i, j int) bool {
			iActive := recs[i].Status == StatusActive
			jActive := recs[j].Status == StatusActive
			if iActive != jActive {
				return iActive
			}
			if recs[i].StartDate != recs[j].StartDate {
				return recs[i].StartDate > recs[j].StartDate
			}
			return recs[i].ID < recs[j].ID
		})
	}
}
