package rates

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rgeorgiou/quarterbook/internal/domain"
)

// Source provides historical rate lookups for the resolver.
type Source interface {
	LatestEffectiveOnOrBefore(date time.Time) (*domain.RateEntry, error)
}

// Resolver returns the annual interest rate (percent) effective on a date:
// the most recent history entry effective on or before it, falling back to
// the configured default. A missing rate is never fatal.
type Resolver struct {
	source      Source
	defaultRate float64
	log         zerolog.Logger
}

// NewResolver creates a rate resolver backed by the given source.
// A non-positive defaultRate falls back to domain.DefaultGuaranteedRate.
func NewResolver(source Source, defaultRate float64, log zerolog.Logger) *Resolver {
	if defaultRate <= 0 {
		defaultRate = domain.DefaultGuaranteedRate
	}
	return &Resolver{
		source:      source,
		defaultRate: defaultRate,
		log:         log.With().Str("component", "rate_resolver").Logger(),
	}
}

// ResolveRate returns the rate effective on the given date. Deterministic
// for a fixed history snapshot: no side effects, no hidden mutation.
func (r *Resolver) ResolveRate(date time.Time) float64 {
	entry, err := r.source.LatestEffectiveOnOrBefore(date)
	if err != nil {
		r.log.Warn().
			Err(err).
			Time("date", date).
			Float64("fallback", r.defaultRate).
			Msg("Rate lookup failed, using default rate")
		return r.defaultRate
	}
	if entry == nil {
		return r.defaultRate
	}
	return entry.Rate
}

// DefaultRate returns the configured fallback rate.
func (r *Resolver) DefaultRate() float64 {
	return r.defaultRate
}
