package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and gateway layers return
// these (optionally wrapped) so callers can translate them into engine
// behavior without string matching.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: document does not exist in the remote store
// - ErrMiss: cache lookup found nothing usable (absent, expired, corrupt)
// - ErrExpired: entry or token past its validity window
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backing service temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrMiss         = errors.New("cache miss")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
