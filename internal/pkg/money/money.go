// Package money holds amounts in minor units (paisa) so that the two-decimal
// text sent to the payment gateway is exact.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a quantity in minor units.
type Amount int64

// FromMajor converts a decimal major-unit value, rounding to the nearest minor unit.
func FromMajor(v float64) (Amount, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, ErrInvalidAmount
	}
	return Amount(math.Round(v * 100)), nil
}

// Parse reads "1000", "1000.5" or "1000.00".
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, ErrInvalidAmount
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || major < 0 {
		return 0, ErrInvalidAmount
	}

	var minor int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		minor, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || minor < 0 {
			return 0, ErrInvalidAmount
		}
	}
	return Amount(major*100 + minor), nil
}

// String formats with exactly two decimals, e.g. "1000.00".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Major returns the value in major units.
func (a Amount) Major() float64 {
	return float64(a) / 100
}
