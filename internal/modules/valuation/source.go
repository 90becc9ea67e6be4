// Package valuation turns instrument codes into trustworthy valuations: it
// tries quote sources in a fixed per-kind order, fans batches out over a
// bounded worker pool, caches live results and persists them as ticks.
package valuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/fundpulse/internal/domain"
)

// Adapter is one upstream quote source. Implementations own their wire
// parsing and must be safe for concurrent use.
type Adapter interface {
	// ID is the stable source id stamped on quotes.
	ID() string
	// Supports reports whether the source can quote this kind of instrument.
	Supports(kind domain.InstrumentKind) bool
	// Fetch returns a normalized quote or an error; ctx carries the per-call timeout.
	Fetch(ctx context.Context, code string) (domain.Quote, error)
}

// ConfirmedSource is implemented by adapters that quote the last confirmed
// close instead of a live figure. Their quotes always resolve as stale.
type ConfirmedSource interface {
	Confirmed() bool
}

var (
	// ErrSourceUnavailable matches any single-adapter failure (network, timeout, parse).
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrLiveSourcesUnavailable is reported when only a confirmed-close source answered.
	ErrLiveSourcesUnavailable = errors.New("live sources unavailable")
	// ErrAllSourcesUnavailable is reported when every adapter in a chain failed.
	ErrAllSourcesUnavailable = errors.New("all sources unavailable")
)

// SourceError records which adapter failed and why.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

// Unwrap exposes the adapter's own error.
func (e *SourceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrSourceUnavailable) match.
func (e *SourceError) Is(target error) bool { return target == ErrSourceUnavailable }

// LastKnown is the last confirmed price available without any network call.
type LastKnown struct {
	Price float64
	Date  string
}

// LastKnownProvider supplies the stale fallback when every source fails.
type LastKnownProvider interface {
	LastKnown(ctx context.Context, code string) (LastKnown, bool)
}
