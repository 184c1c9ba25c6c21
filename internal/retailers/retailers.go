package retailers

import (
	"net/url"
	"strings"

	"github.com/savvydealshub/SavvyDealsHub/internal/models"
	"github.com/savvydealshub/SavvyDealsHub/internal/money"
)

// Kind selects a delivery-estimation policy. Policies are dispatched
// through Estimate rather than hung off per-retailer objects.
type Kind int

const (
	KindGeneric Kind = iota
	KindAmazon
	KindEBay
	KindArgos
	KindCurrys
	KindAO
	KindJohnLewis
	KindTesco
	KindSainsburys
)

// Retailer is a static policy entry, resolved from an offer URL. Not a
// persisted entity.
type Retailer struct {
	ID   string
	Name string
	Kind Kind
	// Membership that may be required to access best delivery/deals.
	Membership models.MembershipType
}

// Estimate is a conservative delivery figure used until proper retailer
// APIs/feeds are connected. Always flagged as an estimate.
type Estimate struct {
	Cost       float64 `json:"cost"`
	IsEstimate bool    `json:"is_estimate"`
	Notes      string  `json:"notes,omitempty"`
}

const (
	genericFlatDelivery  = 4.99
	genericFreeThreshold = 50
	amazonFreeThreshold  = 35
	ebayFlatDelivery     = 3.99
	argosFlatDelivery    = 3.95
	remoteAreaSurcharge  = 9.99
)

// remotePrefixes covers Northern Ireland, the Scottish Highlands and
// Islands, the Isle of Man and the Channel Islands.
var remotePrefixes = []string{"BT", "HS", "IV", "KW", "ZE", "IM", "GY", "JE"}

var known = []struct {
	hostPart string
	retailer Retailer
}{
	{"amazon.", Retailer{ID: "amazon", Name: "Amazon", Kind: KindAmazon, Membership: models.MembershipAmazonPrime}},
	{"ebay.", Retailer{ID: "ebay", Name: "eBay", Kind: KindEBay}},
	{"argos.", Retailer{ID: "argos", Name: "Argos", Kind: KindArgos}},
	{"currys.", Retailer{ID: "currys", Name: "Currys", Kind: KindCurrys}},
	{"ao.", Retailer{ID: "ao", Name: "AO", Kind: KindAO}},
	{"johnlewis.", Retailer{ID: "johnlewis", Name: "John Lewis", Kind: KindJohnLewis}},
	{"tesco.", Retailer{ID: "tesco", Name: "Tesco", Kind: KindTesco, Membership: models.MembershipClubcard}},
	{"sainsburys.", Retailer{ID: "sainsburys", Name: "Sainsbury's", Kind: KindSainsburys, Membership: models.MembershipNectar}},
}

// FromURL infers the retailer from an offer URL's hostname. Unknown or
// malformed URLs fall back to a synthesized retailer on the generic
// policy rather than failing.
func FromURL(rawURL string) Retailer {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	}

	for _, k := range known {
		if strings.Contains(host, k.hostPart) {
			return k.retailer
		}
	}

	base := strings.TrimSpace(strings.SplitN(host, ".", 2)[0])
	name := "Retailer"
	id := "retailer"
	if base != "" {
		id = base
		name = strings.ToUpper(base[:1]) + base[1:]
	}
	return Retailer{ID: id, Name: name, Kind: KindGeneric}
}

// EstimateDelivery computes the retailer's delivery estimate for a known
// item price and the user's context. Deterministic and side-effect free.
func (r Retailer) EstimateDelivery(itemPrice float64, ctx models.UserContext) Estimate {
	switch r.Kind {
	case KindAmazon:
		return estimateAmazon(itemPrice, ctx)
	case KindEBay:
		return Estimate{
			Cost:       applyRemoteAreaSurcharge(ebayFlatDelivery, ctx.Postcode),
			IsEstimate: true,
			Notes:      "Typical eBay delivery (estimate)",
		}
	case KindArgos:
		return Estimate{
			Cost:       applyRemoteAreaSurcharge(argosFlatDelivery, ctx.Postcode),
			IsEstimate: true,
			Notes:      "Standard delivery (estimate)",
		}
	case KindCurrys, KindAO, KindJohnLewis, KindTesco, KindSainsburys:
		return Estimate{
			Cost:       defaultDelivery(itemPrice, ctx),
			IsEstimate: true,
			Notes:      "Delivery estimate until retailer feed is connected",
		}
	default:
		return Estimate{Cost: defaultDelivery(itemPrice, ctx), IsEstimate: true}
	}
}

func estimateAmazon(itemPrice float64, ctx models.UserContext) Estimate {
	cost := 0.0
	notes := "Prime delivery assumed"
	if !ctx.HasMembership(models.MembershipAmazonPrime) {
		if itemPrice >= amazonFreeThreshold {
			cost = 0
			notes = "Free standard delivery over £35 (estimate)"
		} else {
			cost = genericFlatDelivery
			notes = "Standard delivery (estimate)"
		}
	}
	cost = applyRemoteAreaSurcharge(cost, ctx.Postcode)
	return Estimate{Cost: money.Round2(cost), IsEstimate: true, Notes: notes}
}

func defaultDelivery(itemPrice float64, ctx models.UserContext) float64 {
	cost := genericFlatDelivery
	if itemPrice >= genericFreeThreshold {
		cost = 0
	}
	return money.Round2(applyRemoteAreaSurcharge(cost, ctx.Postcode))
}

// applyRemoteAreaSurcharge adds the remote-area figure to a non-zero base
// cost. Free delivery stays free.
func applyRemoteAreaSurcharge(cost float64, postcode string) float64 {
	if cost <= 0 {
		return cost
	}
	pc := strings.ToUpper(strings.TrimSpace(postcode))
	if pc == "" {
		return cost
	}
	prefix := strings.SplitN(pc, " ", 2)[0]
	for _, p := range remotePrefixes {
		if strings.HasPrefix(prefix, p) {
			return money.Round2(cost + remoteAreaSurcharge)
		}
	}
	return cost
}

// MembershipLabel is the human label shown next to a membership-gated
// offer.
func MembershipLabel(m models.MembershipType) string {
	switch m {
	case models.MembershipAmazonPrime:
		return "Prime (may affect delivery)"
	case models.MembershipNectar:
		return "Nectar (some offers)"
	case models.MembershipClubcard:
		return "Clubcard (some offers)"
	case "":
		return ""
	default:
		return "Membership"
	}
}
