package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"geo-redirector/internal/common/errors"
)

// MMDBProvider resolves countries from a local MaxMind-format database.
// When configured it sits ahead of the HTTP providers: no network call, no
// rate limits, and failures fall through to the remote providers as usual.
type MMDBProvider struct {
	reader *geoip2.Reader
}

// NewMMDBProvider opens the database at path.
func NewMMDBProvider(path string) (*MMDBProvider, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &MMDBProvider{reader: reader}, nil
}

func (p *MMDBProvider) Name() string { return "mmdb" }

func (p *MMDBProvider) Lookup(_ context.Context, ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", errors.ProviderError(p.Name(), fmt.Errorf("unparseable ip %q", ip))
	}

	record, err := p.reader.Country(parsed)
	if err != nil {
		return "", errors.ProviderError(p.Name(), err)
	}
	if record.Country.IsoCode == "" {
		return "", errors.ProviderError(p.Name(), fmt.Errorf("no country for %s", ip))
	}

	return record.Country.IsoCode, nil
}

// Close releases the database handle.
func (p *MMDBProvider) Close() error {
	return p.reader.Close()
}
