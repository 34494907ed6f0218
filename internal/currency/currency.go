// Package currency converts between the canonical copper amount stored in the
// ledger and the gold/silver/copper tiers shown to players.
package currency

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const (
	// Copper is the canonical smallest unit.
	Copper int64 = 1
	// Silver is worth 100 copper.
	Silver int64 = 100
	// Gold is worth 100 silver.
	Gold int64 = 100 * Silver
)

// Errors for amount parsing
var (
	ErrEmptyAmount   = errors.New("amount is empty")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Decompose converts a copper total into display tiers.
//
// Precondition: total >= 0.
// Postcondition: gold*Gold + silver*Silver + copper == total; 0 <= silver < 100; 0 <= copper < 100.
func Decompose(total int64) (gold, silver, copper int64) {
	gold = total / Gold
	remainder := total % Gold
	silver = remainder / Silver
	copper = remainder % Silver
	return gold, silver, copper
}

// Format renders a copper total as "12g 5s 3c", omitting zero tiers.
// Zero renders as "0c".
func Format(total int64) string {
	if total < 0 {
		return "-" + Format(-total)
	}
	gold, silver, copper := Decompose(total)

	var parts []string
	if gold > 0 {
		parts = append(parts, fmt.Sprintf("%dg", gold))
	}
	if silver > 0 {
		parts = append(parts, fmt.Sprintf("%ds", silver))
	}
	if copper > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dc", copper))
	}
	return strings.Join(parts, " ")
}

// Parse reads a player-entered amount and returns it in copper.
// A bare number is gold. Tiers may be combined: "1g50s", "30s", "5c", "2g 5c".
// Each tier may appear once and the total may not exceed maxGold gold.
// The "all"/"max" keywords are handled by callers, not here.
func Parse(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrEmptyAmount
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 || n > maxGold {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		return n * Gold, nil
	}

	var total int64
	var digits strings.Builder
	seen := make(map[rune]bool, 3)
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case unicode.IsSpace(r):
			continue
		case r == 'g' || r == 's' || r == 'c':
			if digits.Len() == 0 || seen[r] {
				return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
			}
			seen[r] = true
			n, err := strconv.ParseInt(digits.String(), 10, 64)
			if err != nil || n > maxGold {
				return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
			}
			digits.Reset()
			total += n * unitOf(r)
			if total > maxGold*Gold {
				return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
			}
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	if digits.Len() > 0 || total <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return total, nil
}

// maxGold bounds parsed numbers so that n*Gold never overflows int64.
const maxGold = 1 << 40

func unitOf(r rune) int64 {
	switch r {
	case 'g':
		return Gold
	case 's':
		return Silver
	default:
		return Copper
	}
}
