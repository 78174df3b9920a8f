package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"geo-redirector/internal/common/errors"
)

const maxResponseBytes = 4096

// IPAPIProvider queries ip-api.com. Free tier, JSON response, no credential.
type IPAPIProvider struct {
	client  *http.Client
	baseURL string
}

// NewIPAPIProvider creates an ip-api.com provider.
func NewIPAPIProvider(client *http.Client) *IPAPIProvider {
	return &IPAPIProvider{client: client, baseURL: "http://ip-api.com"}
}

func (p *IPAPIProvider) Name() string { return "ip-api" }

func (p *IPAPIProvider) Lookup(ctx context.Context, ip string) (string, error) {
	url := fmt.Sprintf("%s/json/%s?fields=status,message,countryCode", p.baseURL, ip)

	body, err := fetch(ctx, p.client, url)
	if err != nil {
		return "", errors.ProviderError(p.Name(), err)
	}

	var result struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		CountryCode string `json:"countryCode"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.ProviderError(p.Name(), err)
	}
	if result.Status != "success" {
		return "", errors.ProviderError(p.Name(), fmt.Errorf("lookup failed: %s", result.Message))
	}
	if result.CountryCode == "" {
		return "", errors.ProviderError(p.Name(), fmt.Errorf("empty country code"))
	}

	return result.CountryCode, nil
}

// IPWhoisProvider queries ipwho.is. Free tier, JSON response, no credential.
type IPWhoisProvider struct {
	client  *http.Client
	baseURL string
}

// NewIPWhoisProvider creates an ipwho.is provider.
func NewIPWhoisProvider(client *http.Client) *IPWhoisProvider {
	return &IPWhoisProvider{client: client, baseURL: "https://ipwho.is"}
}

func (p *IPWhoisProvider) Name() string { return "ipwhois" }

func (p *IPWhoisProvider) Lookup(ctx context.Context, ip string) (string, error) {
	body, err := fetch(ctx, p.client, p.baseURL+"/"+ip)
	if err != nil {
		return "", errors.ProviderError(p.Name(), err)
	}

	var result struct {
		Success     bool   `json:"success"`
		Message     string `json:"message"`
		CountryCode string `json:"country_code"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.ProviderError(p.Name(), err)
	}
	if !result.Success {
		return "", errors.ProviderError(p.Name(), fmt.Errorf("lookup failed: %s", result.Message))
	}
	if result.CountryCode == "" {
		return "", errors.ProviderError(p.Name(), fmt.Errorf("empty country code"))
	}

	return result.CountryCode, nil
}

// IPInfoProvider queries ipinfo.io. Plain-text country endpoint, requires a
// token. Also serves as the self-lookup provider: queried without a target IP
// it reports the location of the server's own egress address.
type IPInfoProvider struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewIPInfoProvider creates an ipinfo.io provider with the given credential.
func NewIPInfoProvider(client *http.Client, token string) *IPInfoProvider {
	return &IPInfoProvider{client: client, baseURL: "https://ipinfo.io", token: token}
}

func (p *IPInfoProvider) Name() string { return "ipinfo" }

func (p *IPInfoProvider) Lookup(ctx context.Context, ip string) (string, error) {
	if p.token == "" {
		return "", errors.ProviderError(p.Name(), fmt.Errorf("missing credential"))
	}
	return p.countryRequest(ctx, fmt.Sprintf("%s/%s/country?token=%s", p.baseURL, ip, p.token))
}

// SelfLookup resolves the server's own egress location.
func (p *IPInfoProvider) SelfLookup(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", errors.ProviderError(p.Name(), fmt.Errorf("missing credential"))
	}
	return p.countryRequest(ctx, fmt.Sprintf("%s/country?token=%s", p.baseURL, p.token))
}

func (p *IPInfoProvider) countryRequest(ctx context.Context, url string) (string, error) {
	body, err := fetch(ctx, p.client, url)
	if err != nil {
		return "", errors.ProviderError(p.Name(), err)
	}

	country := strings.TrimSpace(string(body))
	if country == "" {
		return "", errors.ProviderError(p.Name(), fmt.Errorf("empty country code"))
	}

	return country, nil
}

// fetch issues a GET with the request context and returns the (bounded) body,
// erroring on any non-2xx status.
func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
