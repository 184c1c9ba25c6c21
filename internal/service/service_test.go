package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/savvydealshub/SavvyDealsHub/internal/database"
	"github.com/savvydealshub/SavvyDealsHub/internal/events"
	"github.com/savvydealshub/SavvyDealsHub/internal/features"
	"github.com/savvydealshub/SavvyDealsHub/internal/models"
	"github.com/savvydealshub/SavvyDealsHub/internal/pricing"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	flags := features.NewManager()
	flags.Register(features.FeatureClickTracking, true, "")
	flags.Register(features.FeatureSponsoredPlacements, true, "")

	return NewService(db, nil, events.NewManager(false), flags)
}

func testOffer(sku, url, category string, price, shipping pricing.Amount) models.Offer {
	return models.Offer{
		SKU:           sku,
		Title:         sku,
		URL:           url,
		Category:      category,
		Price:         price,
		ShippingPrice: shipping,
	}
}

func TestUpsertOffer_AssignsIDAndCondition(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	in := testOffer("sku-1", "https://www.ebay.co.uk/itm/1", "tech", pricing.AmountOf(20), pricing.Unknown())
	in.Title = "Refurbished laptop"

	out, err := svc.UpsertOffer(ctx, in)
	if err != nil {
		t.Fatalf("UpsertOffer failed: %v", err)
	}

	if out.ID == "" {
		t.Error("Expected an assigned id")
	}
	if out.Condition != models.ConditionRefurbished {
		t.Errorf("Expected inferred condition Refurbished, got %s", out.Condition)
	}
	if out.UpdatedAt.IsZero() {
		t.Error("Expected updated_at to be set")
	}
}

func TestUpsertOffer_Invalid(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.UpsertOffer(context.Background(), models.Offer{SKU: "sku-1"})
	if err == nil {
		t.Fatal("Expected validation error")
	}
}

func TestUpsertOffer_UpdatesExistingSKU(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	first := testOffer("sku-1", "https://www.ebay.co.uk/itm/1", "tech", pricing.AmountOf(20), pricing.Unknown())
	if _, err := svc.UpsertOffer(ctx, first); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	second := first
	second.Price = pricing.AmountOf(18)
	if _, err := svc.UpsertOffer(ctx, second); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	offers, err := svc.ListOffers(ctx, OfferQuery{})
	if err != nil {
		t.Fatalf("ListOffers failed: %v", err)
	}

	if len(offers) != 1 {
		t.Fatalf("Expected 1 offer after upsert, got %d", len(offers))
	}
	if offers[0].Price.Value != 18 {
		t.Errorf("Expected updated price 18, got %v", offers[0].Price.Value)
	}
}

func TestListOffers_FilterAndSearch(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	seed := []models.Offer{
		testOffer("kettle-1", "https://www.currys.co.uk/kettle", "kitchen", pricing.AmountOf(24.99), pricing.Unknown()),
		testOffer("lamp-1", "https://www.ebay.co.uk/lamp", "home", pricing.AmountOf(14.99), pricing.Unknown()),
		testOffer("toaster-1", "https://www.currys.co.uk/toaster", "kitchen", pricing.AmountOf(19.99), pricing.Unknown()),
	}
	for _, o := range seed {
		if _, err := svc.UpsertOffer(ctx, o); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}

	kitchen, err := svc.ListOffers(ctx, OfferQuery{Category: "kitchen"})
	if err != nil {
		t.Fatalf("ListOffers failed: %v", err)
	}
	if len(kitchen) != 2 {
		t.Errorf("Expected 2 kitchen offers, got %d", len(kitchen))
	}

	search, err := svc.ListOffers(ctx, OfferQuery{Search: "kettle"})
	if err != nil {
		t.Fatalf("ListOffers failed: %v", err)
	}
	if len(search) != 1 || search[0].SKU != "kettle-1" {
		t.Errorf("Expected [kettle-1], got %+v", search)
	}
}

func TestListOffers_DealsCategorySortsByPrice(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	seed := []models.Offer{
		testOffer("pricey", "https://www.currys.co.uk/1", "tech", pricing.AmountOf(99), pricing.Unknown()),
		testOffer("cheap", "https://www.currys.co.uk/2", "home", pricing.AmountOf(9), pricing.Unknown()),
		testOffer("unpriced", "https://www.currys.co.uk/3", "home", pricing.Unknown(), pricing.Unknown()),
	}
	for _, o := range seed {
		if _, err := svc.UpsertOffer(ctx, o); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}

	deals, err := svc.ListOffers(ctx, OfferQuery{Category: DealsCategory})
	if err != nil {
		t.Fatalf("ListOffers failed: %v", err)
	}

	if len(deals) != 3 {
		t.Fatalf("Expected the deals pseudo-category to span categories, got %d offers", len(deals))
	}
	if deals[0].SKU != "cheap" || deals[1].SKU != "pricey" || deals[2].SKU != "unpriced" {
		t.Errorf("Expected cheap, pricey, unpriced; got %s, %s, %s", deals[0].SKU, deals[1].SKU, deals[2].SKU)
	}
}

func TestCompare_PicksBestDeliveredTotal(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	// £20 + £2.50 feed shipping = £22.50 beats £19 + £4.99 estimate = £23.99.
	a := testOffer("with-shipping", "https://www.currys.co.uk/1", "tech", pricing.AmountOf(20), pricing.AmountOf(2.50))
	b := testOffer("estimated", "https://www.currys.co.uk/2", "tech", pricing.AmountOf(19), pricing.Unknown())
	for _, o := range []models.Offer{a, b} {
		if _, err := svc.UpsertOffer(ctx, o); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}

	res, err := svc.Compare(ctx, CompareQuery{Category: "tech"})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if len(res.Offers) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(res.Offers))
	}
	if res.Best == nil || res.Best.SKU != "with-shipping" {
		t.Fatalf("Expected best = with-shipping, got %+v", res.Best)
	}
	if res.Best.TotalPrice.Value != 22.50 {
		t.Errorf("Expected best total 22.50, got %v", res.Best.TotalPrice.Value)
	}
}

func TestCompare_MembershipAffectsDelivery(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	o := testOffer("amazon-1", "https://www.amazon.co.uk/dp/x", "tech", pricing.AmountOf(30), pricing.Unknown())
	if _, err := svc.UpsertOffer(ctx, o); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	noPrime, err := svc.Compare(ctx, CompareQuery{})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if noPrime.Offers[0].PostagePrice.Value != 4.99 {
		t.Errorf("Expected 4.99 without Prime, got %v", noPrime.Offers[0].PostagePrice.Value)
	}

	prime, err := svc.Compare(ctx, CompareQuery{Prime: true})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if prime.Offers[0].PostagePrice.Value != 0 {
		t.Errorf("Expected free delivery with Prime, got %v", prime.Offers[0].PostagePrice.Value)
	}
}

func TestTopDeals_ExcludesHighAndUnknownDelivery(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	seed := []models.Offer{
		testOffer("sane", "https://www.ebay.co.uk/1", "tech", pricing.AmountOf(30), pricing.AmountOf(2.99)),
		testOffer("high", "https://www.ebay.co.uk/2", "tech", pricing.AmountOf(9.99), pricing.AmountOf(16.99)),
		testOffer("unknown", "https://www.ebay.co.uk/3", "tech", pricing.AmountOf(200), pricing.Unknown()),
	}
	for _, o := range seed {
		if _, err := svc.UpsertOffer(ctx, o); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}

	res, err := svc.TopDeals(ctx, "", 0)
	if err != nil {
		t.Fatalf("TopDeals failed: %v", err)
	}

	if res.EligibleCount != 1 || res.HighDeliveryCount != 1 || res.UnknownDeliveryCount != 1 {
		t.Errorf("Expected counts 1/1/1, got %d/%d/%d",
			res.EligibleCount, res.HighDeliveryCount, res.UnknownDeliveryCount)
	}
	if len(res.Deals) != 1 || res.Deals[0].SKU != "sane" {
		t.Fatalf("Expected deals [sane], got %+v", res.Deals)
	}
	if res.Deals[0].TotalPrice.Value != 32.99 {
		t.Errorf("Expected delivered total 32.99, got %v", res.Deals[0].TotalPrice.Value)
	}
}

func TestCategories(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	seed := []models.Offer{
		testOffer("a", "https://www.ebay.co.uk/1", "tech", pricing.AmountOf(10), pricing.Unknown()),
		testOffer("b", "https://www.ebay.co.uk/2", "tech", pricing.AmountOf(10), pricing.Unknown()),
		testOffer("c", "https://www.ebay.co.uk/3", "home", pricing.AmountOf(10), pricing.Unknown()),
	}
	for _, o := range seed {
		if _, err := svc.UpsertOffer(ctx, o); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}

	categories, err := svc.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}

	if len(categories) != 2 {
		t.Fatalf("Expected 2 categories, got %d", len(categories))
	}
	if categories[0].Slug != "home" || categories[0].Count != 1 {
		t.Errorf("Expected home/1 first, got %+v", categories[0])
	}
	if categories[1].Slug != "tech" || categories[1].Count != 2 {
		t.Errorf("Expected tech/2 second, got %+v", categories[1])
	}
}

func TestRecordClick_AndAnalytics(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	clicks := []models.ClickEvent{
		{Retailer: "Amazon", Category: "tech", Source: "compare", CTA: "best"},
		{Retailer: "Amazon", Category: "tech", Source: "compare", CTA: "row"},
		{Retailer: "Argos", Category: "home", Source: "top-deals", CTA: "row"},
	}
	for _, c := range clicks {
		rec, err := svc.RecordClick(ctx, c)
		if err != nil {
			t.Fatalf("RecordClick failed: %v", err)
		}
		if rec.ID == "" {
			t.Error("Expected an assigned click id")
		}
	}

	analytics, err := svc.ClickAnalytics(ctx, 30)
	if err != nil {
		t.Fatalf("ClickAnalytics failed: %v", err)
	}

	if analytics.Total != 3 {
		t.Errorf("Expected 3 total clicks, got %d", analytics.Total)
	}
	if len(analytics.TopRetailers) != 2 || analytics.TopRetailers[0].Name != "Amazon" || analytics.TopRetailers[0].Clicks != 2 {
		t.Errorf("Expected Amazon first with 2 clicks, got %+v", analytics.TopRetailers)
	}
	if len(analytics.Performance) == 0 {
		t.Fatal("Expected retailer performance rows")
	}

	amazon := analytics.Performance[0]
	if amazon.Retailer != "Amazon" || amazon.Clicks7d != 2 || amazon.Prev7d != 0 {
		t.Errorf("Unexpected performance row %+v", amazon)
	}
	if amazon.DeltaPct7d != 100 {
		t.Errorf("Expected 100%% delta for new retailer clicks, got %d", amazon.DeltaPct7d)
	}
}

func TestRecordClick_Invalid(t *testing.T) {
	svc := setupTestService(t)

	if _, err := svc.RecordClick(context.Background(), models.ClickEvent{Retailer: "Amazon"}); err == nil {
		t.Fatal("Expected validation error for missing category")
	}
}

func TestRecordClick_DisabledFlag(t *testing.T) {
	svc := setupTestService(t)
	svc.flags.Disable(features.FeatureClickTracking)

	_, err := svc.RecordClick(context.Background(), models.ClickEvent{Retailer: "Amazon", Category: "tech"})
	if err == nil {
		t.Fatal("Expected error while click tracking is disabled")
	}
}

func TestHealth_Ready(t *testing.T) {
	svc := setupTestService(t)

	status := svc.Health(context.Background())
	if !status.OK || !status.Ready {
		t.Fatalf("Expected healthy database, got %+v", status)
	}
	for table, present := range status.Tables {
		if !present {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestClickAnalytics_WindowExcludesOldClicks(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	old := models.ClickEvent{
		Retailer:  "Amazon",
		Category:  "tech",
		CreatedAt: time.Now().UTC().AddDate(0, 0, -60),
	}
	if _, err := svc.RecordClick(ctx, old); err != nil {
		t.Fatalf("RecordClick failed: %v", err)
	}

	analytics, err := svc.ClickAnalytics(ctx, 30)
	if err != nil {
		t.Fatalf("ClickAnalytics failed: %v", err)
	}
	if analytics.Total != 0 {
		t.Errorf("Expected clicks outside the window to be excluded, got %d", analytics.Total)
	}
}
