package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/savvydealshub/SavvyDealsHub/internal/models"
)

var (
	uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
)

// UK postcodes are at most 8 characters including the space.
const maxPostcodeLen = 10

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateOffer checks a catalog offer before it is persisted.
func ValidateOffer(offer models.Offer) error {
	if strings.TrimSpace(offer.SKU) == "" {
		return &ValidationError{Field: "sku", Message: "is required"}
	}

	if strings.TrimSpace(offer.Title) == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}

	if len(offer.Title) > 500 {
		return &ValidationError{Field: "title", Message: "cannot exceed 500 characters"}
	}

	if err := validateOfferURL(offer.URL); err != nil {
		return err
	}

	if strings.TrimSpace(offer.Category) == "" {
		return &ValidationError{Field: "category", Message: "is required"}
	}

	if offer.Price.Valid && offer.Price.Value < 0 {
		return &ValidationError{Field: "price", Message: "must be non-negative"}
	}

	if offer.ShippingPrice.Valid && offer.ShippingPrice.Value < 0 {
		return &ValidationError{Field: "shipping_price", Message: "must be non-negative"}
	}

	if err := validateCondition(offer.Condition); err != nil {
		return err
	}

	if err := validateMembershipType(offer.MembershipType); err != nil {
		return err
	}

	if offer.IsSponsored && strings.TrimSpace(offer.SponsorLabel) == "" {
		return &ValidationError{
			Field:   "sponsor_label",
			Message: "is required when is_sponsored is set",
		}
	}

	return nil
}

// ValidateClickEvent checks an outbound click record.
func ValidateClickEvent(click models.ClickEvent) error {
	if strings.TrimSpace(click.Retailer) == "" {
		return &ValidationError{Field: "retailer", Message: "is required"}
	}

	if strings.TrimSpace(click.Category) == "" {
		return &ValidationError{Field: "category", Message: "is required"}
	}

	if click.OfferID != "" {
		if err := ValidateUUID(click.OfferID, "offer_id"); err != nil {
			return err
		}
	}

	for field, v := range map[string]string{
		"retailer": click.Retailer,
		"category": click.Category,
		"source":   click.Source,
		"cta":      click.CTA,
	} {
		if len(v) > 100 {
			return &ValidationError{Field: field, Message: "cannot exceed 100 characters"}
		}
	}

	return nil
}

// NormalizePostcode uppercases and trims a user-supplied postcode.
// Postcodes are free text: anything over-long is dropped, and delivery
// estimation simply skips the remote-area check when empty.
func NormalizePostcode(raw string) string {
	pc := strings.ToUpper(strings.TrimSpace(SanitizeString(raw)))
	if len(pc) > maxPostcodeLen {
		return ""
	}
	return pc
}

func validateOfferURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{Field: "url", Message: "is required"}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: "url", Message: "must be an absolute http(s) URL"}
	}

	return nil
}

func validateCondition(c models.Condition) error {
	switch c {
	case "", models.ConditionNew, models.ConditionUsed,
		models.ConditionRefurbished, models.ConditionUnknown:
		return nil
	default:
		return &ValidationError{
			Field:   "condition",
			Message: "must be one of New, Used, Refurbished, Unknown",
		}
	}
}

func validateMembershipType(m models.MembershipType) error {
	switch m {
	case "", models.MembershipAmazonPrime, models.MembershipNectar, models.MembershipClubcard:
		return nil
	default:
		return &ValidationError{
			Field:   "membership_type",
			Message: "must be one of AMAZON_PRIME, NECTAR, CLUBCARD",
		}
	}
}

// SanitizeString strips control characters and trims whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// ValidateUUID checks that id is a valid v4 UUID.
func ValidateUUID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	id = SanitizeString(id)

	if !uuidRegex.MatchString(strings.ToLower(id)) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a valid UUID v4",
		}
	}

	return nil
}
