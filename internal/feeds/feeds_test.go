package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/savvydealshub/SavvyDealsHub/internal/cache"
)

const feedBody = `{
	"items": [
		{"sku": "sku-1", "title": "Kettle", "url": "https://www.currys.co.uk/kettle", "category": "kitchen", "price": "£24.99"},
		{"sku": "sku-2", "title": "Toaster", "url": "https://www.currys.co.uk/toaster", "category": "kitchen", "price": 19.99},
		{"sku": "", "title": "Broken row", "url": "https://x", "category": "kitchen"}
	]
}`

func newFeedServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feedBody))
	}))
}

func TestOffers_FetchesAndValidates(t *testing.T) {
	var hits int32
	srv := newFeedServer(t, &hits)
	defer srv.Close()

	client := New(Config{URLs: []string{srv.URL}, TTL: time.Minute}, cache.NewInMemoryCache())

	offers, err := client.Offers(context.Background())
	if err != nil {
		t.Fatalf("Offers failed: %v", err)
	}

	if len(offers) != 2 {
		t.Fatalf("Expected 2 valid offers (row without sku skipped), got %d", len(offers))
	}
	if !offers[0].Price.Valid || offers[0].Price.Value != 24.99 {
		t.Errorf("Expected price 24.99 from string field, got %+v", offers[0].Price)
	}
	if offers[0].Source != srv.URL {
		t.Errorf("Expected source %s, got %s", srv.URL, offers[0].Source)
	}
}

func TestOffers_ServedFromCacheWithinTTL(t *testing.T) {
	var hits int32
	srv := newFeedServer(t, &hits)
	defer srv.Close()

	client := New(Config{URLs: []string{srv.URL}, TTL: time.Minute}, cache.NewInMemoryCache())
	ctx := context.Background()

	if _, err := client.Offers(ctx); err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if _, err := client.Offers(ctx); err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("Expected 1 upstream hit, got %d", got)
	}
}

func TestOffers_NoURLsConfigured(t *testing.T) {
	client := New(Config{}, cache.NewInMemoryCache())

	offers, err := client.Offers(context.Background())
	if err != nil {
		t.Fatalf("Offers failed: %v", err)
	}
	if offers != nil {
		t.Errorf("Expected nil, got %v", offers)
	}
}

func TestOffers_UpstreamFailureIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(Config{URLs: []string{srv.URL}, TTL: time.Minute}, cache.NewInMemoryCache())
	ctx := context.Background()

	offers, err := client.Offers(ctx)
	if err != nil {
		t.Fatalf("Offers must degrade, not fail: %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("Expected no offers, got %d", len(offers))
	}

	status := client.Status(ctx)
	if status.Error == "" {
		t.Error("Expected the upstream failure in Status")
	}
}

func TestOffers_BareArrayFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"sku": "sku-9", "title": "Lamp", "url": "https://www.ebay.co.uk/1", "category": "home"}]`))
	}))
	defer srv.Close()

	client := New(Config{URLs: []string{srv.URL}, TTL: time.Minute}, cache.NewInMemoryCache())

	offers, err := client.Offers(context.Background())
	if err != nil {
		t.Fatalf("Offers failed: %v", err)
	}
	if len(offers) != 1 || offers[0].SKU != "sku-9" {
		t.Fatalf("Expected the bare-array offer, got %+v", offers)
	}
}

func TestRefresh_DropsCachedSnapshot(t *testing.T) {
	var hits int32
	srv := newFeedServer(t, &hits)
	defer srv.Close()

	client := New(Config{URLs: []string{srv.URL}, TTL: time.Hour}, cache.NewInMemoryCache())
	ctx := context.Background()

	if _, err := client.Offers(ctx); err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if err := client.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := client.Offers(ctx); err != nil {
		t.Fatalf("Refetch failed: %v", err)
	}

	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("Expected 2 upstream hits after refresh, got %d", got)
	}
}

func TestStatus_ReportsSnapshot(t *testing.T) {
	var hits int32
	srv := newFeedServer(t, &hits)
	defer srv.Close()

	client := New(Config{URLs: []string{srv.URL}, TTL: time.Minute}, cache.NewInMemoryCache())
	ctx := context.Background()

	if status := client.Status(ctx); status.Count != 0 {
		t.Errorf("Expected empty status before fetch, got %+v", status)
	}

	if _, err := client.Offers(ctx); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	status := client.Status(ctx)
	if status.Count != 2 {
		t.Errorf("Expected 2 cached items, got %d", status.Count)
	}
	if status.FetchedAt.IsZero() {
		t.Error("Expected a fetch timestamp")
	}
}
