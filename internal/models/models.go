package models

import (
	"time"

	"github.com/savvydealshub/SavvyDealsHub/internal/pricing"
)

// Condition of a listed item.
type Condition string

const (
	ConditionNew         Condition = "New"
	ConditionUsed        Condition = "Used"
	ConditionRefurbished Condition = "Refurbished"
	ConditionUnknown     Condition = "Unknown"
)

// MembershipType is a retailer loyalty scheme that can affect price or
// delivery. Self-declared by the user, never verified.
type MembershipType string

const (
	MembershipAmazonPrime MembershipType = "AMAZON_PRIME"
	MembershipNectar      MembershipType = "NECTAR"
	MembershipClubcard    MembershipType = "CLUBCARD"
)

// UserContext carries the per-request comparison inputs. Lifetime is one
// request; it is never persisted.
type UserContext struct {
	// Postcode is free text, normalized to uppercase.
	Postcode   string
	Membership map[MembershipType]bool
}

// HasMembership reports whether the user declared the given scheme.
func (c UserContext) HasMembership(m MembershipType) bool {
	if m == "" {
		return false
	}
	return c.Membership[m]
}

// Offer is one retailer listing as ingested from a CSV/feed. The engine
// treats it as an immutable snapshot per computation.
type Offer struct {
	ID          string `json:"id"` // uuid
	SKU         string `json:"sku"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	URL         string `json:"url"`
	Category    string `json:"category"`

	// Base item price, exclusive of delivery. Unknown for hub/category
	// links.
	Price pricing.Amount `json:"price"`

	// Delivery figure as supplied by the feed, if any.
	ShippingPrice    pricing.Amount `json:"shipping_price"`
	ShippingIncluded bool           `json:"shipping_included"`

	Condition Condition `json:"condition,omitempty"`

	// True when a retailer membership is needed to access the best
	// advertised price/delivery.
	MembershipRequired bool           `json:"membership_required"`
	MembershipType     MembershipType `json:"membership_type,omitempty"`

	// Sponsored placement (off by default; always labelled when set).
	IsSponsored  bool   `json:"is_sponsored,omitempty"`
	SponsorLabel string `json:"sponsor_label,omitempty"`

	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// CompareOffer is one row of the comparison table. The presentation layer
// must treat null price/total fields as "unknown", never as zero.
type CompareOffer struct {
	OfferID   string         `json:"offer_id,omitempty"`
	SKU       string         `json:"sku"`
	Title     string         `json:"title"`
	URL       string         `json:"url"`
	Retailer  string         `json:"retailer"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	Condition Condition      `json:"condition"`
	ItemPrice pricing.Amount `json:"item_price"`

	PostagePrice       pricing.Amount `json:"postage_price"`
	DeliveryIsEstimate bool           `json:"delivery_is_estimate"`
	DeliveryNotes      string         `json:"delivery_notes,omitempty"`

	MembershipRequired bool           `json:"membership_required"`
	MembershipType     MembershipType `json:"membership_type,omitempty"`
	MembershipLabel    string         `json:"membership_label,omitempty"`

	IsSponsored  bool   `json:"is_sponsored,omitempty"`
	SponsorLabel string `json:"sponsor_label,omitempty"`

	TotalPrice pricing.Amount `json:"total_price"`
}

// CompareResponse is the payload for a comparison request.
type CompareResponse struct {
	Offers []CompareOffer `json:"offers"`
	// Best is the row with the lowest delivered total, when any row has
	// a computable total.
	Best *CompareOffer `json:"best,omitempty"`
}

// TopDealsResponse carries the curated deal list plus partition counts.
type TopDealsResponse struct {
	Deals                []CompareOffer `json:"deals"`
	EligibleCount        int            `json:"eligible_count"`
	HighDeliveryCount    int            `json:"high_delivery_count"`
	UnknownDeliveryCount int            `json:"unknown_delivery_count"`
}

// ClickEvent records one outbound click on an offer.
type ClickEvent struct {
	ID        string    `json:"id"` // uuid
	OfferID   string    `json:"offer_id,omitempty"`
	Retailer  string    `json:"retailer"`
	Category  string    `json:"category"`
	Source    string    `json:"source,omitempty"`
	CTA       string    `json:"cta,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NameCount is one grouped analytics bucket.
type NameCount struct {
	Name   string `json:"name"`
	Clicks int    `json:"clicks"`
}

// RetailerPerformance compares recent click volume per retailer.
type RetailerPerformance struct {
	Retailer   string `json:"retailer"`
	Clicks30d  int    `json:"clicks_30d"`
	Clicks7d   int    `json:"clicks_7d"`
	Prev7d     int    `json:"prev_7d"`
	Delta7d    int    `json:"delta_7d"`
	DeltaPct7d int    `json:"delta_pct_7d"`
}

// ClickAnalytics is the analytics dashboard payload.
type ClickAnalytics struct {
	Days          int                   `json:"days"`
	Total         int                   `json:"total"`
	TopRetailers  []NameCount           `json:"top_retailers"`
	TopCategories []NameCount           `json:"top_categories"`
	TopSources    []NameCount           `json:"top_sources"`
	TopCTAs       []NameCount           `json:"top_ctas"`
	Performance   []RetailerPerformance `json:"performance"`
}

// CategoryCount is one catalog category with its offer count.
type CategoryCount struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HealthStatus distinguishes "DB unreachable" from "DB reachable but
// tables missing" so deploy issues are diagnosable from /health alone.
type HealthStatus struct {
	OK     bool            `json:"ok"`
	Ready  bool            `json:"ready"`
	Tables map[string]bool `json:"tables"`
	Error  string          `json:"error,omitempty"`
}

// FeedStatus reports the remote feed cache state.
type FeedStatus struct {
	FetchedAt time.Time `json:"fetched_at"`
	Count     int       `json:"count"`
	Error     string    `json:"error,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
