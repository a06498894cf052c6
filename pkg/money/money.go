// Package money represents monetary amounts as integer cents.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMalformed = errors.New("malformed amount")
	ErrOverflow  = errors.New("amount overflow")
)

// Amount is a signed value in cents. It marshals as a JSON number with two decimals.
type Amount int64

// Max is the largest representable amount.
const Max = Amount(math.MaxInt64)

func FromFloat(v float64) Amount {
	return Amount(math.Round(v * 100))
}

// Parse reads a decimal amount such as "0.50" or "-12". Values are rounded to cents.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformed
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	if math.Abs(v) >= float64(math.MaxInt64)/100 {
		return 0, fmt.Errorf("%w: %q out of range", ErrMalformed, s)
	}
	return FromFloat(v), nil
}

// ParseJSON accepts a JSON number or a quoted decimal string.
func ParseJSON(raw []byte) (Amount, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, ErrMalformed
	}
	if raw[0] == '"' {
		unquoted, err := strconv.Unquote(string(raw))
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrMalformed, raw)
		}
		return Parse(unquoted)
	}
	return Parse(string(raw))
}

func (a Amount) Float() float64 {
	return float64(a) / 100
}

func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	v, err := ParseJSON(b)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Add returns a+b, or ErrOverflow when the sum does not fit in an int64.
func Add(a, b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrOverflow
	}
	return sum, nil
}

func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}
