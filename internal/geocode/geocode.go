package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Nominatim usage policy requires at most one request per second; spacing
// is enforced globally across all callers of one client.
const requestSpacing = 1100 * time.Millisecond

// Address is a reverse-geocoded place description.
type Address struct {
	DisplayName string `json:"display_name"`
	Road        string `json:"road,omitempty"`
	Suburb      string `json:"suburb,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
}

type cacheEntry struct {
	addr      *Address
	expiresAt time.Time
}

// Client resolves coordinates to addresses via the Nominatim API. Results
// are cached with a TTL and concurrent lookups of the same cell are
// deduplicated, so map screens full of markers do not hammer the API.
type Client struct {
	baseURL string
	ttl     time.Duration
	http    *http.Client
	now     func() time.Time

	group singleflight.Group

	mu          sync.Mutex
	cache       map[string]cacheEntry
	lastRequest time.Time
}

func NewClient(baseURL string, ttl time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		ttl:     ttl,
		http:    &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}
}

// Reverse resolves lat/lng to an address. Coordinates are truncated to
// ~100m cells so nearby lookups share cache entries.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Address, error) {
	key := fmt.Sprintf("%.3f,%.3f", lat, lng)

	if addr, ok := c.fromCache(key); ok {
		return addr, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have
		// populated the cache while we waited to join the group.
		if addr, ok := c.fromCache(key); ok {
			return addr, nil
		}

		addr, err := c.fetch(ctx, lat, lng)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cacheEntry{addr: addr, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return addr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Address), nil
}

func (c *Client) fromCache(key string) (*Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.cache, key)
		return nil, false
	}
	return entry.addr, true
}

func (c *Client) fetch(ctx context.Context, lat, lng float64) (*Address, error) {
	c.waitForSlot(ctx)

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lng))
	q.Set("format", "jsonv2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ecohunt-server/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var payload struct {
		DisplayName string `json:"display_name"`
		Address     struct {
			Road    string `json:"road"`
			Suburb  string `json:"suburb"`
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
			Country string `json:"country"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	city := payload.Address.City
	if city == "" {
		city = payload.Address.Town
	}
	if city == "" {
		city = payload.Address.Village
	}

	return &Address{
		DisplayName: payload.DisplayName,
		Road:        payload.Address.Road,
		Suburb:      payload.Address.Suburb,
		City:        city,
		Country:     payload.Address.Country,
	}, nil
}

// waitForSlot blocks until the per-client request spacing has elapsed.
func (c *Client) waitForSlot(ctx context.Context) {
	c.mu.Lock()
	wait := requestSpacing - c.now().Sub(c.lastRequest)
	if wait < 0 {
		wait = 0
	}
	c.lastRequest = c.now().Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
