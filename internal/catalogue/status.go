package catalogue

import (
	"context"
	"log"
	"sync"
	"time"

	"offersync/pkg/requestcontext"
)

// Status is a record's lifecycle bucket relative to "now".
type Status int

const (
	StatusActive Status = iota
	StatusUpcoming
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusUpcoming:
		return "upcoming"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

const dateLayout = "2006-01-02"

// Classifier maps a record's validity window to a Status. Results are cached
// per record id for the current day, since the window is immutable within a
// session and date parsing dominates the pipeline's cost. The cache resets
// when the reference day rolls over.
type Classifier struct {
	log *log.Logger

	mu      sync.Mutex
	day     string
	results map[string]Status
}

func NewClassifier(log *log.Logger) *Classifier {
	return &Classifier{log: log, results: make(map[string]Status)}
}

// Classify buckets the record against the context's notion of now.
// Comparison is date-only, inclusive on both ends, so a record is active on
// its start and end dates regardless of time of day. Malformed dates read as
// expired: hiding a record is safer than wrongly showing it.
func (c *Classifier) Classify(ctx context.Context, rec Record) Status {
	now := requestcontext.Now(ctx)
	day := now.Format(dateLayout)

	c.mu.Lock()
	defer c.mu.Unlock()

	if day != c.day {
		c.day = day
		c.results = make(map[string]Status)
	}
	if status, ok := c.results[rec.ID]; ok {
		return status
	}

	status := c.classify(rec, day)
	c.results[rec.ID] = status
	return status
}

func (c *Classifier) classify(rec Record, day string) Status {
	nowDate, err := time.Parse(dateLayout, day)
	if err != nil {
		return StatusExpired
	}
	start, err := time.Parse(dateLayout, rec.StartDate)
	if err != nil {
		c.log.Printf("catalogue: record %s has malformed start date %q: %v", rec.ID, rec.StartDate, err)
		return StatusExpired
	}
	end, err := time.Parse(dateLayout, rec.EndDate)
	if err != nil {
		c.log.Printf("catalogue: record %s has malformed end date %q: %v", rec.ID, rec.EndDate, err)
		return StatusExpired
	}

	switch {
	case nowDate.Before(start):
		return StatusUpcoming
	case nowDate.After(end):
		return StatusExpired
	default:
		return StatusActive
	}
}
