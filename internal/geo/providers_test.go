package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geo-redirector/internal/common/errors"
)

func TestIPAPIProvider(t *testing.T) {
	t.Run("successful lookup", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/json/8.8.8.8", r.URL.Path)
			assert.Equal(t, "status,message,countryCode", r.URL.Query().Get("fields"))
			fmt.Fprint(w, `{"status":"success","countryCode":"US"}`)
		}))
		defer server.Close()

		p := NewIPAPIProvider(server.Client())
		p.baseURL = server.URL

		country, err := p.Lookup(context.Background(), "8.8.8.8")
		require.NoError(t, err)
		assert.Equal(t, "US", country)
	})

	t.Run("failed status in body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"fail","message":"reserved range"}`)
		}))
		defer server.Close()

		p := NewIPAPIProvider(server.Client())
		p.baseURL = server.URL

		_, err := p.Lookup(context.Background(), "192.168.1.1")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeProvider))
	})

	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		p := NewIPAPIProvider(server.Client())
		p.baseURL = server.URL

		_, err := p.Lookup(context.Background(), "8.8.8.8")
		assert.Error(t, err)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}))
		defer server.Close()

		p := NewIPAPIProvider(server.Client())
		p.baseURL = server.URL

		_, err := p.Lookup(context.Background(), "8.8.8.8")
		assert.Error(t, err)
	})
}

func TestIPWhoisProvider(t *testing.T) {
	t.Run("successful lookup", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/95.0.0.1", r.URL.Path)
			fmt.Fprint(w, `{"success":true,"country_code":"TR"}`)
		}))
		defer server.Close()

		p := NewIPWhoisProvider(server.Client())
		p.baseURL = server.URL

		country, err := p.Lookup(context.Background(), "95.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, "TR", country)
	})

	t.Run("unsuccessful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success":false,"message":"invalid ip"}`)
		}))
		defer server.Close()

		p := NewIPWhoisProvider(server.Client())
		p.baseURL = server.URL

		_, err := p.Lookup(context.Background(), "bad")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeProvider))
	})
}

func TestIPInfoProvider(t *testing.T) {
	t.Run("lookup uses token and trims body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/8.8.8.8/country", r.URL.Path)
			assert.Equal(t, "secret", r.URL.Query().Get("token"))
			fmt.Fprint(w, "US\n")
		}))
		defer server.Close()

		p := NewIPInfoProvider(server.Client(), "secret")
		p.baseURL = server.URL

		country, err := p.Lookup(context.Background(), "8.8.8.8")
		require.NoError(t, err)
		assert.Equal(t, "US", country)
	})

	t.Run("self lookup hits the bare country endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/country", r.URL.Path)
			fmt.Fprint(w, "DE")
		}))
		defer server.Close()

		p := NewIPInfoProvider(server.Client(), "secret")
		p.baseURL = server.URL

		country, err := p.SelfLookup(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "DE", country)
	})

	t.Run("missing token fails without a request", func(t *testing.T) {
		p := NewIPInfoProvider(http.DefaultClient, "")

		_, err := p.Lookup(context.Background(), "8.8.8.8")
		assert.Error(t, err)

		_, err = p.SelfLookup(context.Background())
		assert.Error(t, err)
	})

	t.Run("empty body is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "  ")
		}))
		defer server.Close()

		p := NewIPInfoProvider(server.Client(), "secret")
		p.baseURL = server.URL

		_, err := p.SelfLookup(context.Background())
		assert.Error(t, err)
	})
}
