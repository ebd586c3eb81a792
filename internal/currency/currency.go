// Package currency implements the multi-denomination bidding currency.
// All amounts are held as exact integer counts of silver, the smallest
// denomination, so comparison and addition never round.
package currency

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a non-negative currency amount in silver.
type Value int64

// Exchange rates to silver.
const (
	Silver   Value = 1
	Gold     Value = 100
	Platinum Value = 10_000
	Mithril  Value = 1_000_000
)

// Errors returned by Parse.
var (
	ErrEmptyBid            = errors.New("no bid amount given")
	ErrUnknownDenomination = errors.New("unknown currency denomination")
	ErrInvalidAmount       = errors.New("invalid bid amount")
)

// aliases maps every accepted denomination spelling to its rate.
var aliases = map[string]Value{
	"m": Mithril, "mith": Mithril, "mithril": Mithril,
	"p": Platinum, "plat": Platinum, "platinum": Platinum,
	"g": Gold, "gold": Gold,
	"s": Silver, "sil": Silver, "silver": Silver,
}

// Parse converts bid tokens like ["1m", "50p", "100g", "500s"] into a Value.
// Each token is a non-negative integer followed by a denomination alias,
// matched case-insensitively. Repeated denominations are summed. The total
// must be positive.
func Parse(tokens []string) (Value, error) {
	if len(tokens) == 0 {
		return 0, ErrEmptyBid
	}

	var total Value
	for _, raw := range tokens {
		tok := strings.ToLower(strings.TrimSpace(raw))

		i := 0
		for i < len(tok) && tok[i] >= '0' && tok[i] <= '9' {
			i++
		}
		if i == 0 {
			return 0, fmt.Errorf("%w: %q has no numeric part", ErrInvalidAmount, raw)
		}

		n, err := strconv.ParseInt(tok[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}

		rate, ok := aliases[tok[i:]]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownDenomination, raw)
		}

		if n > math.MaxInt64/int64(rate) || total > Value(math.MaxInt64)-Value(n)*rate {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, raw)
		}
		total += Value(n) * rate
	}

	if total <= 0 {
		return 0, fmt.Errorf("%w: total must be positive", ErrInvalidAmount)
	}
	return total, nil
}

// Format renders the value as its greedy largest-denomination breakdown,
// e.g. 1_510_500 silver -> "1m 51p 5g". Zero renders as "0s".
func (v Value) Format() string {
	if v <= 0 {
		return "0s"
	}

	denoms := []struct {
		rate   Value
		suffix string
	}{
		{Mithril, "m"},
		{Platinum, "p"},
		{Gold, "g"},
		{Silver, "s"},
	}

	var parts []string
	rem := v
	for _, d := range denoms {
		if n := rem / d.rate; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, d.suffix))
			rem -= n * d.rate
		}
	}
	return strings.Join(parts, " ")
}

func (v Value) String() string { return v.Format() }
