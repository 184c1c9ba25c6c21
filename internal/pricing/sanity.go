package pricing

import (
	"strings"

	"github.com/savvydealshub/SavvyDealsHub/internal/money"
)

// Shipping thresholds for "deal" surfaces (Top Deals + category pages).
// Bulky homeware gets looser caps, but extortionate postage is never let
// through.
const (
	DefaultDealShippingCap = 4.99
	BulkyDealShippingCap   = 9.99

	defaultShippingCeiling = 9.99
	bulkyShippingCeiling   = 14.99

	// Shipping above the deal cap that is also more than 35% of the item
	// price is flagged even when it clears the absolute ceiling.
	relativeShippingRatio = 0.35
)

// Reasons attached to a high-delivery verdict.
const (
	ReasonDeliveryGTEItem = "Delivery >= item price"
	ReasonDeliveryHigh    = "Delivery unusually high"
	ReasonDeliveryVsItem  = "Delivery high vs item price"
)

var bulkyKeywords = []string{
	"furniture", "sofa", "couch", "bed", "mattress",
	"wardrobe", "dining", "table", "chair",
}

// IsBulkyHomeware reports whether a category names clearly bulky homeware.
// Kept conservative: thresholds are only loosened when the match is obvious.
func IsBulkyHomeware(category string) bool {
	c := strings.ToLower(category)
	if c == "" {
		return false
	}
	for _, kw := range bulkyKeywords {
		if strings.Contains(c, kw) {
			return true
		}
	}
	return false
}

// DealShippingCap returns the maximum delivery cost an offer may carry and
// still appear on promotional surfaces. A curation policy, not a
// correctness threshold.
func DealShippingCap(category string) float64 {
	if IsBulkyHomeware(category) {
		return BulkyDealShippingCap
	}
	return DefaultDealShippingCap
}

// SanityInput is one raw offer snapshot as supplied by a feed.
type SanityInput struct {
	Price            Amount
	ShippingPrice    Amount
	ShippingIncluded bool
	Category         string
}

// Sanity is the normalized delivery verdict for one offer.
type Sanity struct {
	ItemPrice          Amount `json:"item_price"`
	ShippingPrice      Amount `json:"shipping_price"`
	ShippingIncluded   bool   `json:"shipping_included"`
	ShippingKnown      bool   `json:"shipping_known"`
	ShippingUnknown    bool   `json:"shipping_unknown"`
	TotalPrice         Amount `json:"total_price"`
	HighDelivery       bool   `json:"high_delivery"`
	HighDeliveryReason string `json:"high_delivery_reason,omitempty"`
	EligibleForDeals   bool   `json:"eligible_for_deals"`
}

// Evaluate derives the delivered total and the high-delivery verdict for a
// single offer. Pure: identical input always yields identical output.
//
// The goal is to stop "£9.99 item + £16.99 delivery" from ever appearing
// as a deal. Delivery is only trusted when a feed supplies it explicitly;
// checkout pages are never scraped.
func Evaluate(in SanityInput) Sanity {
	// A zero or negative headline price is not a comparable item price;
	// hub/category links carry no price at all.
	itemPrice := Amount{}
	if in.Price.Valid && in.Price.Value > 0 {
		itemPrice = AmountOf(in.Price.Value)
	}

	shippingPrice := Amount{}
	shippingKnown := false
	if in.ShippingIncluded {
		shippingPrice = AmountOf(0)
		shippingKnown = true
	} else if in.ShippingPrice.Valid && in.ShippingPrice.Value >= 0 {
		shippingPrice = AmountOf(in.ShippingPrice.Value)
		shippingKnown = true
	}

	totalPrice := Amount{}
	if itemPrice.Valid && shippingKnown && shippingPrice.Valid {
		totalPrice = AmountOf(money.Round2(itemPrice.Value + shippingPrice.Value))
	}

	highDelivery := false
	reason := ""
	if itemPrice.Valid && shippingKnown && shippingPrice.Valid {
		ceiling := defaultShippingCeiling
		if IsBulkyHomeware(in.Category) {
			ceiling = bulkyShippingCeiling
		}
		switch {
		case shippingPrice.Value >= itemPrice.Value:
			highDelivery = true
			reason = ReasonDeliveryGTEItem
		case shippingPrice.Value > ceiling:
			highDelivery = true
			reason = ReasonDeliveryHigh
		case shippingPrice.Value > DealShippingCap(in.Category) &&
			itemPrice.Value > 0 &&
			shippingPrice.Value/itemPrice.Value > relativeShippingRatio:
			highDelivery = true
			reason = ReasonDeliveryVsItem
		}
	}

	return Sanity{
		ItemPrice:          itemPrice,
		ShippingPrice:      shippingPrice,
		ShippingIncluded:   in.ShippingIncluded,
		ShippingKnown:      shippingKnown,
		ShippingUnknown:    !shippingKnown,
		TotalPrice:         totalPrice,
		HighDelivery:       highDelivery,
		HighDeliveryReason: reason,
		EligibleForDeals:   itemPrice.Valid && shippingKnown && !highDelivery && totalPrice.Valid,
	}
}
