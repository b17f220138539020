package domain

import "strings"

// Category selects one of the four dispute record collections.
type Category string

const (
	CategoryReceivedChargeback    Category = "received_chargeback"
	CategoryIssuedRepresentment   Category = "issued_representment"
	CategoryIssuedChargeback      Category = "issued_chargeback"
	CategoryReceivedRepresentment Category = "received_representment"
)

// Categories lists every category in dashboard display order.
var Categories = []Category{
	CategoryReceivedChargeback,
	CategoryIssuedRepresentment,
	CategoryIssuedChargeback,
	CategoryReceivedRepresentment,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryReceivedChargeback,
		CategoryIssuedRepresentment,
		CategoryIssuedChargeback,
		CategoryReceivedRepresentment:
		return true
	default:
		return false
	}
}

// Table returns the storage table backing the category.
func (c Category) Table() string {
	switch c {
	case CategoryReceivedChargeback:
		return "received_chargebacks"
	case CategoryIssuedRepresentment:
		return "issued_representments"
	case CategoryIssuedChargeback:
		return "issued_chargebacks"
	case CategoryReceivedRepresentment:
		return "received_representments"
	default:
		return ""
	}
}

// Path returns the kebab-case plural used in URLs and CLI flags.
func (c Category) Path() string {
	return strings.ReplaceAll(c.Table(), "_", "-")
}

// Counterpart returns the category whose records link to c through the
// composite key: chargebacks pair with the representments answering them.
func (c Category) Counterpart() Category {
	switch c {
	case CategoryReceivedChargeback:
		return CategoryIssuedRepresentment
	case CategoryIssuedRepresentment:
		return CategoryReceivedChargeback
	case CategoryIssuedChargeback:
		return CategoryReceivedRepresentment
	case CategoryReceivedRepresentment:
		return CategoryIssuedChargeback
	default:
		return ""
	}
}

// IsChargeback reports whether the category is a debit side of a matching pair.
func (c Category) IsChargeback() bool {
	return c == CategoryReceivedChargeback || c == CategoryIssuedChargeback
}

// Index returns the display position of the category, or -1.
func (c Category) Index() int {
	for i, candidate := range Categories {
		if candidate == c {
			return i
		}
	}
	return -1
}

// ParseCategory accepts the slug, the table name or the URL path form.
func ParseCategory(raw string) (Category, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	for _, c := range Categories {
		if value == string(c) || value == c.Table() {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}
