// Package core provides price and date parsing utilities.
//
// Prices are whole amounts in the ledger currency's smallest unit. They are
// accepted from clients either as JSON numbers or numeric strings.
package core

import (
	"errors"
	"math"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Price is an amount in the ledger currency's smallest unit.
type Price int64

var (
	ErrInvalidPrice    = errors.New("invalid price")
	ErrFractionalPrice = errors.New("price must be a whole number")

	maxPrice = decimal.NewFromInt(math.MaxInt64)
)

// ParsePrice converts a decimal string to a Price.
//
// Examples:
//
//	ParsePrice("1200")    -> 1200, nil
//	ParsePrice(" 1200.0") -> 1200, nil
//	ParsePrice("12.5")    -> 0, ErrFractionalPrice
//	ParsePrice("1e3")     -> 1000, nil
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	if !d.IsInteger() {
		return 0, ErrFractionalPrice
	}
	if d.Abs().GreaterThan(maxPrice) {
		return 0, ErrInvalidPrice
	}
	return Price(d.IntPart()), nil
}

func (p Price) Validate() error {
	if p <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// UnmarshalJSON accepts 1200, 1200.0 and "1200". null leaves the value untouched.
func (p *Price) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidPrice
		}
		raw = s
	}
	v, err := ParsePrice(raw)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
