package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/savvydealshub/SavvyDealsHub/internal/compare"
	"github.com/savvydealshub/SavvyDealsHub/internal/database"
	"github.com/savvydealshub/SavvyDealsHub/internal/events"
	"github.com/savvydealshub/SavvyDealsHub/internal/features"
	"github.com/savvydealshub/SavvyDealsHub/internal/feeds"
	"github.com/savvydealshub/SavvyDealsHub/internal/models"
	"github.com/savvydealshub/SavvyDealsHub/internal/validation"
)

// DealsCategory is the pseudo-category aggregating top picks across the
// whole catalog.
const DealsCategory = "deals"

const defaultListLimit = 200

// Service provides business logic for the deal comparison API.
type Service struct {
	db     *database.DB
	feeds  *feeds.Client
	events *events.Manager
	flags  *features.Manager
}

// NewService creates a new service instance. The feed client, event
// manager and flag manager may each be nil, in which case the matching
// behavior is simply off.
func NewService(db *database.DB, fc *feeds.Client, em *events.Manager, fm *features.Manager) *Service {
	return &Service{db: db, feeds: fc, events: em, flags: fm}
}

// UpsertOffer validates and stores a catalog offer.
func (s *Service) UpsertOffer(ctx context.Context, offer models.Offer) (models.Offer, error) {
	offer.SKU = validation.SanitizeString(offer.SKU)
	offer.Title = validation.SanitizeString(offer.Title)
	offer.Category = strings.ToLower(validation.SanitizeString(offer.Category))

	if err := validation.ValidateOffer(offer); err != nil {
		return models.Offer{}, err
	}

	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}
	if offer.Condition == "" {
		offer.Condition = compare.InferCondition(offer.Title)
	}
	if offer.UpdatedAt.IsZero() {
		offer.UpdatedAt = time.Now().UTC()
	}

	if err := s.db.UpsertOffer(ctx, offer); err != nil {
		return models.Offer{}, err
	}

	if s.events != nil {
		s.events.PublishOfferUpserted(ctx, offer)
	}

	return offer, nil
}

// OfferQuery filters the catalog.
type OfferQuery struct {
	Category string
	Search   string
	Limit    int
}

// ListOffers returns the merged catalog: remote feed offers first, then
// the local database, filtered and capped. The "deals" pseudo-category
// aggregates across categories and sorts by headline price.
func (s *Service) ListOffers(ctx context.Context, q OfferQuery) ([]models.Offer, error) {
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	q.Search = strings.ToLower(strings.TrimSpace(q.Search))
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}

	dbQuery := database.OfferQuery{Search: q.Search, Limit: q.Limit}
	if q.Category != "" && q.Category != DealsCategory {
		dbQuery.Category = q.Category
	}

	local, err := s.db.ListOffers(ctx, dbQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	merged := append(s.remoteOffers(ctx, q), local...)

	if q.Category == DealsCategory {
		sort.SliceStable(merged, func(i, j int) bool {
			return headlinePrice(merged[i]) < headlinePrice(merged[j])
		})
	}

	if len(merged) > q.Limit {
		merged = merged[:q.Limit]
	}
	return merged, nil
}

// remoteOffers fetches feed offers and applies the same filter the
// database applied to local rows. Feed failure degrades to local-only.
func (s *Service) remoteOffers(ctx context.Context, q OfferQuery) []models.Offer {
	if s.feeds == nil || s.flags == nil || !s.flags.IsEnabled(features.FeatureRemoteFeeds) {
		return nil
	}

	remote, err := s.feeds.Offers(ctx)
	if err != nil {
		return nil
	}

	var filtered []models.Offer
	for _, o := range remote {
		if q.Category != "" && q.Category != DealsCategory &&
			strings.ToLower(o.Category) != q.Category {
			continue
		}
		if q.Search != "" {
			hay := strings.ToLower(o.Title + " " + o.Description + " " + o.SKU)
			if !strings.Contains(hay, q.Search) {
				continue
			}
		}
		filtered = append(filtered, o)
	}
	return filtered
}

func headlinePrice(o models.Offer) float64 {
	if !o.Price.Valid {
		return 999999
	}
	return o.Price.Value
}

// CompareQuery holds the inputs of one comparison request.
type CompareQuery struct {
	Search   string
	Category string
	Postcode string
	Prime    bool
	Nectar   bool
	Clubcard bool
	Limit    int
}

// Compare builds the comparison table for the user's context and picks
// the best delivered total.
func (s *Service) Compare(ctx context.Context, q CompareQuery) (models.CompareResponse, error) {
	offers, err := s.ListOffers(ctx, OfferQuery{Category: q.Category, Search: q.Search, Limit: q.Limit})
	if err != nil {
		return models.CompareResponse{}, err
	}

	userCtx := models.UserContext{
		Postcode: validation.NormalizePostcode(q.Postcode),
		Membership: map[models.MembershipType]bool{
			models.MembershipAmazonPrime: q.Prime,
			models.MembershipNectar:      q.Nectar,
			models.MembershipClubcard:    q.Clubcard,
		},
	}

	rows := compare.BuildRows(offers, userCtx)
	if s.flags != nil && !s.flags.IsEnabled(features.FeatureSponsoredPlacements) {
		for i := range rows {
			rows[i].IsSponsored = false
			rows[i].SponsorLabel = ""
		}
	}

	if s.events != nil {
		s.events.PublishCompareRequested(ctx, q.Search, q.Category, userCtx.Postcode, len(rows))
	}

	return models.CompareResponse{
		Offers: rows,
		Best:   compare.BestOffer(rows),
	}, nil
}

// TopDeals returns the curated deal surface: offers with known, sane
// delivery costs, cheapest delivered total first.
func (s *Service) TopDeals(ctx context.Context, category string, limit int) (models.TopDealsResponse, error) {
	offers, err := s.ListOffers(ctx, OfferQuery{Category: category})
	if err != nil {
		return models.TopDealsResponse{}, err
	}

	p := compare.PartitionByDelivery(offers)

	rows := compare.BuildRows(p.Eligible, models.UserContext{})
	compare.SortByTotalAscending(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	return models.TopDealsResponse{
		Deals:                rows,
		EligibleCount:        len(p.Eligible),
		HighDeliveryCount:    len(p.HighDelivery),
		UnknownDeliveryCount: len(p.UnknownDelivery),
	}, nil
}

// Categories derives the category list from the merged catalog.
func (s *Service) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	offers, err := s.ListOffers(ctx, OfferQuery{Limit: 2000})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, o := range offers {
		slug := strings.TrimSpace(o.Category)
		if slug == "" {
			continue
		}
		counts[slug]++
	}

	result := make([]models.CategoryCount, 0, len(counts))
	for slug, count := range counts {
		result = append(result, models.CategoryCount{Slug: slug, Name: slug, Count: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// RecordClick validates and persists an outbound click event.
func (s *Service) RecordClick(ctx context.Context, click models.ClickEvent) (models.ClickEvent, error) {
	if s.flags != nil && !s.flags.IsEnabled(features.FeatureClickTracking) {
		return models.ClickEvent{}, fmt.Errorf("click tracking is disabled")
	}

	click.Retailer = validation.SanitizeString(click.Retailer)
	click.Category = validation.SanitizeString(click.Category)
	click.Source = validation.SanitizeString(click.Source)
	click.CTA = validation.SanitizeString(click.CTA)

	if err := validation.ValidateClickEvent(click); err != nil {
		return models.ClickEvent{}, err
	}

	click.ID = uuid.New().String()
	if click.CreatedAt.IsZero() {
		click.CreatedAt = time.Now().UTC()
	}

	if err := s.db.InsertClickEvent(ctx, click); err != nil {
		return models.ClickEvent{}, err
	}

	if s.events != nil {
		s.events.PublishClickRecorded(ctx, click)
	}

	return click, nil
}

// ClickAnalytics aggregates click totals, top groupings and per-retailer
// week-over-week performance for the analytics surface.
func (s *Service) ClickAnalytics(ctx context.Context, days int) (models.ClickAnalytics, error) {
	if days <= 0 {
		days = 30
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	total, err := s.db.CountClicksSince(ctx, since)
	if err != nil {
		return models.ClickAnalytics{}, err
	}

	result := models.ClickAnalytics{Days: days, Total: total}

	for _, g := range []struct {
		column string
		dest   *[]models.NameCount
	}{
		{"retailer", &result.TopRetailers},
		{"category", &result.TopCategories},
		{"source", &result.TopSources},
		{"cta", &result.TopCTAs},
	} {
		groups, err := s.db.GroupClicksSince(ctx, g.column, since, 10)
		if err != nil {
			return models.ClickAnalytics{}, err
		}
		*g.dest = groups
	}

	performance, err := s.retailerPerformance(ctx, now, since)
	if err != nil {
		return models.ClickAnalytics{}, err
	}
	result.Performance = performance

	return result, nil
}

func (s *Service) retailerPerformance(ctx context.Context, now, since time.Time) ([]models.RetailerPerformance, error) {
	since7 := now.AddDate(0, 0, -7)
	since14 := now.AddDate(0, 0, -14)

	last30, err := s.db.GroupClicksSince(ctx, "retailer", since, 50)
	if err != nil {
		return nil, err
	}

	last7, err := s.db.GroupClicksByRetailerBetween(ctx, since7, now)
	if err != nil {
		return nil, err
	}

	prev7, err := s.db.GroupClicksByRetailerBetween(ctx, since14, since7)
	if err != nil {
		return nil, err
	}

	result := make([]models.RetailerPerformance, 0, len(last30))
	for _, r := range last30 {
		l7 := last7[r.Name]
		pr := prev7[r.Name]
		delta := l7 - pr
		pct := 0
		switch {
		case pr == 0 && l7 > 0:
			pct = 100
		case pr > 0:
			pct = int(math.Round(float64(delta) / float64(pr) * 100))
		}
		result = append(result, models.RetailerPerformance{
			Retailer:   r.Name,
			Clicks30d:  r.Clicks,
			Clicks7d:   l7,
			Prev7d:     pr,
			Delta7d:    delta,
			DeltaPct7d: pct,
		})
	}

	return result, nil
}

// FeedStatus reports the remote feed cache state.
func (s *Service) FeedStatus(ctx context.Context) models.FeedStatus {
	if s.feeds == nil {
		return models.FeedStatus{}
	}
	return s.feeds.Status(ctx)
}

// RefreshFeeds drops the cached feed snapshot.
func (s *Service) RefreshFeeds(ctx context.Context) error {
	if s.feeds == nil {
		return nil
	}
	if err := s.feeds.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh feeds: %w", err)
	}
	if s.events != nil {
		s.events.PublishFeedsRefreshed(ctx)
	}
	return nil
}

// Health reports database reachability and schema readiness.
func (s *Service) Health(ctx context.Context) models.HealthStatus {
	return s.db.Readiness(ctx)
}
