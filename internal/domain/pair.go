package domain

import (
	"fmt"
	"strings"
)

// Pair is an ordered (base, quote) asset pair, e.g. ADA-USDT.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses a "BASE-QUOTE" identifier. A malformed identifier (wrong
// number of segments or an empty asset) is a configuration error.
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("domain: parse pair %q: %w", s, ErrMalformedPair)
	}
	return Pair{Base: parts[0], Quote: parts[1]}, nil
}

// String returns the canonical BASE-QUOTE form.
func (p Pair) String() string {
	return p.Base + "-" + p.Quote
}

// Contains reports whether asset is either side of the pair.
func (p Pair) Contains(asset string) bool {
	return p.Base == asset || p.Quote == asset
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool {
	return p.Base == "" && p.Quote == ""
}
