package geo

import (
	"context"
	"net"
	"strings"
	"time"

	"geo-redirector/internal/common/logging"
	"geo-redirector/internal/kvstore"
)

// Routing decision values.
const (
	RoutingTurkey = "TR"
	RoutingRest   = "REST"
)

// cacheKeyPrefix is the key pattern geo cache entries live under.
const cacheKeyPrefix = "geo_"

// Resolver resolves client IPs to country codes: cache, then the ordered
// provider list, then the self-lookup fallback. ResolveCountry is total; the
// universal fallback value is RoutingRest.
type Resolver struct {
	store     *kvstore.Store
	providers []Provider
	self      SelfLookup
	cacheTTL  time.Duration
	timeout   time.Duration
	logger    logging.Logger
}

// NewResolver creates a resolver. self may be nil when no self-lookup
// credential is configured; resolution then falls back to RoutingRest directly.
func NewResolver(store *kvstore.Store, providers []Provider, self SelfLookup, cacheTTL, timeout time.Duration, logger logging.Logger) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Resolver{
		store:     store,
		providers: providers,
		self:      self,
		cacheTTL:  cacheTTL,
		timeout:   timeout,
		logger:    logger,
	}
}

// ResolveCountry maps a client IP to a country code. It never fails: private
// and unparseable addresses skip straight to the self-lookup fallback, provider
// errors continue down the list, and the terminal fallback is RoutingRest.
func (r *Resolver) ResolveCountry(ctx context.Context, ip string) string {
	ip = NormalizeIP(ip)

	if ip == "" || IsPrivateIP(ip) {
		r.logger.Debug("ip not directly resolvable, using self-lookup",
			logging.String("ip", ip))
		return r.selfLookup(ctx)
	}

	cacheKey := cacheKeyPrefix + ip
	if country, found := r.store.Get(ctx, cacheKey); found && country != "" {
		r.logger.Debug("geo cache hit",
			logging.String("ip", ip),
			logging.String("country", country))
		return country
	}

	for _, provider := range r.providers {
		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		country, err := provider.Lookup(lookupCtx, ip)
		cancel()

		if err != nil {
			r.logger.Warn("geo provider lookup failed",
				logging.String("provider", provider.Name()),
				logging.String("ip", ip),
				logging.String("error", err.Error()))
			continue
		}
		if country == "" {
			continue
		}

		country = strings.ToUpper(country)
		r.store.Set(ctx, cacheKey, country, r.cacheTTL)
		r.logger.Info("geo lookup resolved",
			logging.String("provider", provider.Name()),
			logging.String("ip", ip),
			logging.String("country", country))
		return country
	}

	return r.selfLookup(ctx)
}

// selfLookup approximates the caller's location via the server's egress IP.
// Never fails; absent credential or on error the result is RoutingRest.
func (r *Resolver) selfLookup(ctx context.Context) string {
	if r.self == nil {
		return RoutingRest
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	country, err := r.self.SelfLookup(lookupCtx)
	if err != nil || country == "" {
		if err != nil {
			r.logger.Warn("self-lookup failed",
				logging.String("error", err.Error()))
		}
		return RoutingRest
	}

	return strings.ToUpper(country)
}

// DetermineRouting combines a resolved country with an optional forced
// override into the binary routing decision. A non-empty override wins
// outright, case-insensitively; the resolved country is then ignored.
// Total for any string input.
func DetermineRouting(country, forced string) string {
	if forced = strings.TrimSpace(forced); forced != "" {
		if strings.EqualFold(forced, RoutingTurkey) {
			return RoutingTurkey
		}
		return RoutingRest
	}

	if strings.EqualFold(strings.TrimSpace(country), RoutingTurkey) {
		return RoutingTurkey
	}
	return RoutingRest
}

// NormalizeIP trims the textual address, strips the IPv4-mapped-IPv6 prefix
// and lowercases it so common duplicate spellings share one cache entry.
func NormalizeIP(ip string) string {
	ip = strings.ToLower(strings.TrimSpace(ip))
	ip = strings.TrimPrefix(ip, "::ffff:")
	return ip
}

// IsPrivateIP reports whether the address is private, loopback, link-local or
// otherwise not routable over the public internet. Unparseable addresses are
// treated as non-routable.
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() ||
		parsed.IsPrivate() ||
		parsed.IsLinkLocalUnicast() ||
		parsed.IsLinkLocalMulticast() ||
		parsed.IsUnspecified()
}
