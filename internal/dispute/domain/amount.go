package domain

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits stored and served for money.
const AmountScale = 2

// Amount is a currency value. It reads and writes like decimal.Decimal in
// the database and always renders with AmountScale fractional digits in JSON.
type Amount struct {
	decimal.Decimal
}

// NewAmount rounds d to AmountScale.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d.Round(AmountScale)}
}

// AmountFromString parses a decimal string such as "1250.50".
func AmountFromString(value string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, err
	}
	return NewAmount(d), nil
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

// MarshalJSON renders the amount as a quoted fixed-point string, "3.00"
// rather than "3".
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.StringFixed(AmountScale) + `"`), nil
}
