// Package feeds merges remote JSON offer feeds into the catalog. Only
// feeds the operator owns or is authorised to consume are configured;
// arbitrary websites are never scanned.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/savvydealshub/SavvyDealsHub/internal/cache"
	"github.com/savvydealshub/SavvyDealsHub/internal/models"
)

const cacheKey = "feeds:offers"

// Config for the feed client.
type Config struct {
	URLs []string
	TTL  time.Duration
}

// Client fetches configured feeds through an injected TTL cache. No
// hidden module-level state: two clients with separate caches are fully
// independent.
type Client struct {
	cfg   Config
	cache cache.Cache
	http  *http.Client
}

// snapshot is the cached envelope for one merged fetch.
type snapshot struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Items     []models.Offer `json:"items"`
	Error     string         `json:"error,omitempty"`
}

// feedDocument accepts either a bare array or an {items: [...]} wrapper,
// matching what partner feeds actually send.
type feedDocument struct {
	Items []models.Offer `json:"items"`
}

func New(cfg Config, c cache.Cache) *Client {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &Client{
		cfg:   cfg,
		cache: c,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Offers returns the merged remote offers, from cache when fresh. Fetch
// failures degrade to an empty slice with the error recorded in Status;
// the catalog then serves local data only.
func (c *Client) Offers(ctx context.Context) ([]models.Offer, error) {
	if len(c.cfg.URLs) == 0 {
		return nil, nil
	}

	var cached snapshot
	if err := cache.GetJSON(ctx, c.cache, cacheKey, &cached); err == nil {
		return cached.Items, nil
	}

	snap := c.fetchAll(ctx)
	if err := cache.SetJSON(ctx, c.cache, cacheKey, snap, c.cfg.TTL); err != nil {
		return snap.Items, fmt.Errorf("failed to cache feed snapshot: %w", err)
	}
	return snap.Items, nil
}

func (c *Client) fetchAll(ctx context.Context) snapshot {
	var (
		merged []models.Offer
		errs   []string
	)

	for _, url := range c.cfg.URLs {
		items, err := c.fetchOne(ctx, url)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s -> %v", url, err))
			continue
		}
		merged = append(merged, items...)
	}

	return snapshot{
		FetchedAt: time.Now().UTC(),
		Items:     merged,
		Error:     strings.Join(errs, " | "),
	}
}

func (c *Client) fetchOne(ctx context.Context, url string) ([]models.Offer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", res.StatusCode)
	}

	dec := json.NewDecoder(res.Body)
	var doc feedDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid feed JSON: %w", err)
	}

	var valid []models.Offer
	for _, it := range doc.Items {
		// Feeds are third-party data: rows missing the required fields
		// are skipped, not fatal.
		if it.SKU == "" || it.Title == "" || it.URL == "" || it.Category == "" {
			continue
		}
		if it.Source == "" {
			it.Source = url
		}
		valid = append(valid, it)
	}
	return valid, nil
}

// UnmarshalJSON lets a feed be either `[...]` or `{"items": [...]}`.
func (d *feedDocument) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &d.Items)
	}

	type alias feedDocument
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	d.Items = a.Items
	return nil
}

// Status reports the cache state for the admin feeds surface.
func (c *Client) Status(ctx context.Context) models.FeedStatus {
	var cached snapshot
	if err := cache.GetJSON(ctx, c.cache, cacheKey, &cached); err != nil {
		return models.FeedStatus{}
	}
	return models.FeedStatus{
		FetchedAt: cached.FetchedAt,
		Count:     len(cached.Items),
		Error:     cached.Error,
	}
}

// Refresh drops the cached snapshot so the next read refetches.
func (c *Client) Refresh(ctx context.Context) error {
	return c.cache.Delete(ctx, cacheKey)
}
