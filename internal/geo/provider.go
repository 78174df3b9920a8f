// Package geo resolves a client IP to a country code and owns the binary
// routing decision. Resolution tries the geo cache, then an ordered list of
// providers, then a self-lookup on the server's own egress IP; every failure
// degrades toward the literal fallback value instead of erroring.
package geo

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"geo-redirector/internal/common/logging"
)

// Provider maps an IP address to a two-letter country code.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, ip string) (string, error)
}

// SelfLookup approximates the server's own location via its egress IP. Used
// when the client IP is not directly resolvable.
type SelfLookup interface {
	SelfLookup(ctx context.Context) (string, error)
}

// breakerProvider wraps a provider with a circuit breaker so a repeatedly
// failing provider is skipped instead of burning its timeout on every request.
type breakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps the provider with a circuit breaker that opens after five
// consecutive failures and probes again after a minute.
func WithBreaker(p Provider, logger logging.Logger) Provider {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("geo provider circuit state changed",
				logging.String("provider", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
		},
	})

	return &breakerProvider{inner: p, cb: cb}
}

func (b *breakerProvider) Name() string {
	return b.inner.Name()
}

func (b *breakerProvider) Lookup(ctx context.Context, ip string) (string, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Lookup(ctx, ip)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
