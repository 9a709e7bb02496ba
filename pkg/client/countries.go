package client

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-formflow/components/countries"
	"github.com/goliatone/go-formflow/pkg/contract"
	"github.com/goliatone/go-formflow/pkg/profile"
)

// CountryClient implements profile.CountryService. Concurrent loads share one
// request and a successful list is cached for the life of the client.
type CountryClient struct {
	t   *transport
	url string

	group singleflight.Group
	mu    sync.RWMutex
	cache []countries.Country
}

var _ profile.CountryService = (*CountryClient)(nil)

// NewCountryClient fetches the list served at endpoint, typically a
// countries component mount.
func NewCountryClient(endpoint string, opts ...Option) *CountryClient {
	return &CountryClient{t: newTransport(opts), url: endpoint}
}

type countryList struct {
	Data []countries.Country `json:"data"`
}

// ListCountries returns the country options.
func (c *CountryClient) ListCountries(ctx context.Context) ([]countries.Country, error) {
	c.mu.RLock()
	cached := c.cache
	c.mu.RUnlock()
	if cached != nil {
		return append([]countries.Country(nil), cached...), nil
	}

	v, err, _ := c.group.Do("countries", func() (any, error) {
		var list countryList
		if err := c.t.do(ctx, call{
			method:         http.MethodGet,
			url:            c.url,
			responseSchema: contract.CountryList,
		}, &list); err != nil {
			return nil, err
		}
		// Flags from the wire are sanitised; no URLs are derived client side.
		clean := countries.WithFlags(list.Data, "")
		c.mu.Lock()
		c.cache = clean
		c.mu.Unlock()
		return clean, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]countries.Country(nil), v.([]countries.Country)...), nil
}

// Invalidate drops the cached list.
func (c *CountryClient) Invalidate() {
	c.mu.Lock()
	c.cache = nil
	c.mu.Unlock()
}
