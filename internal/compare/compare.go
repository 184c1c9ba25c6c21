package compare

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/savvydealshub/SavvyDealsHub/internal/models"
	"github.com/savvydealshub/SavvyDealsHub/internal/money"
	"github.com/savvydealshub/SavvyDealsHub/internal/pricing"
	"github.com/savvydealshub/SavvyDealsHub/internal/retailers"
)

// BuildRows maps catalog offers to comparison rows for one user context.
// Feed-supplied shipping always wins over our estimate; the estimator only
// runs when the feed is silent and the item price is known.
func BuildRows(offers []models.Offer, ctx models.UserContext) []models.CompareOffer {
	rows := make([]models.CompareOffer, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, buildRow(o, ctx))
	}
	return rows
}

func buildRow(o models.Offer, ctx models.UserContext) models.CompareOffer {
	retailer := retailers.FromURL(o.URL)

	itemPrice := pricing.Unknown()
	if o.Price.Valid {
		itemPrice = pricing.AmountOf(o.Price.Value)
	}

	condition := o.Condition
	if condition == "" {
		condition = InferCondition(o.Title)
	}

	membershipType := o.MembershipType
	if membershipType == "" {
		membershipType = retailer.Membership
	}
	membershipRequired := o.MembershipRequired || membershipType != ""

	var (
		delivery           = pricing.Unknown()
		deliveryIsEstimate = true
		deliveryNotes      string
	)
	switch {
	case o.ShippingPrice.Valid:
		delivery = pricing.AmountOf(o.ShippingPrice.Value)
		deliveryIsEstimate = false
		deliveryNotes = "Provided by feed"
	case o.ShippingIncluded:
		delivery = pricing.AmountOf(0)
		deliveryIsEstimate = false
		deliveryNotes = "Shipping included"
	case itemPrice.Valid:
		est := retailer.EstimateDelivery(itemPrice.Value, ctx)
		delivery = pricing.AmountOf(est.Cost)
		deliveryIsEstimate = est.IsEstimate
		deliveryNotes = est.Notes
	}

	total := pricing.Unknown()
	if itemPrice.Valid && delivery.Valid {
		sum, err := money.Add(money.GBP(itemPrice.Value), money.GBP(delivery.Value))
		if err == nil {
			total = pricing.AmountOf(sum.Amount)
		}
	}

	var updatedAt string
	if !o.UpdatedAt.IsZero() {
		updatedAt = o.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return models.CompareOffer{
		OfferID:            o.ID,
		SKU:                o.SKU,
		Title:              o.Title,
		URL:                o.URL,
		Retailer:           retailer.Name,
		UpdatedAt:          updatedAt,
		Condition:          condition,
		ItemPrice:          itemPrice,
		PostagePrice:       delivery,
		DeliveryIsEstimate: deliveryIsEstimate,
		DeliveryNotes:      deliveryNotes,
		MembershipRequired: membershipRequired,
		MembershipType:     membershipType,
		MembershipLabel:    retailers.MembershipLabel(membershipType),
		IsSponsored:        o.IsSponsored,
		SponsorLabel:       o.SponsorLabel,
		TotalPrice:         total,
	}
}

// InferCondition guesses the item condition from its title when the feed
// did not say.
func InferCondition(title string) models.Condition {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "refurb"):
		return models.ConditionRefurbished
	case strings.Contains(t, "used"), strings.Contains(t, "pre-owned"), strings.Contains(t, "preowned"):
		return models.ConditionUsed
	case strings.Contains(t, "new"):
		return models.ConditionNew
	default:
		return models.ConditionUnknown
	}
}

// Partition splits offers into the three delivery buckets. Hub pages and
// category links (no price) are never classed as a bad deal.
type Partition struct {
	Eligible        []models.Offer
	HighDelivery    []models.Offer
	UnknownDelivery []models.Offer
}

// PartitionByDelivery classifies each offer with the sanity evaluator.
func PartitionByDelivery(offers []models.Offer) Partition {
	var p Partition
	for _, o := range offers {
		s := pricing.Evaluate(pricing.SanityInput{
			Price:            o.Price,
			ShippingPrice:    o.ShippingPrice,
			ShippingIncluded: o.ShippingIncluded,
			Category:         o.Category,
		})

		switch {
		case !s.ItemPrice.Valid:
			p.Eligible = append(p.Eligible, o)
		case s.ShippingUnknown:
			p.UnknownDelivery = append(p.UnknownDelivery, o)
		case s.HighDelivery:
			p.HighDelivery = append(p.HighDelivery, o)
		default:
			p.Eligible = append(p.Eligible, o)
		}
	}
	return p
}

// SortByTotalAscending orders rows by delivered total, cheapest first.
// Rows with no computable total sort last; the sort is stable.
func SortByTotalAscending(rows []models.CompareOffer) {
	sort.SliceStable(rows, func(i, j int) bool {
		return totalOrInf(rows[i]) < totalOrInf(rows[j])
	})
}

func totalOrInf(r models.CompareOffer) float64 {
	if !r.TotalPrice.Valid {
		return math.Inf(1)
	}
	return r.TotalPrice.Value
}

// BestOffer picks the row with the minimum non-null delivered total. Ties
// go to the first-encountered row; nil when no row has a total.
func BestOffer(rows []models.CompareOffer) *models.CompareOffer {
	var best *models.CompareOffer
	for i := range rows {
		if !rows[i].TotalPrice.Valid {
			continue
		}
		if best == nil || rows[i].TotalPrice.Value < best.TotalPrice.Value {
			best = &rows[i]
		}
	}
	if best == nil {
		return nil
	}
	row := *best
	return &row
}
