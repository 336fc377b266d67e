// Package token converts fixed-point token amounts between base units and
// decimal display strings. The stablecoins we accept carry 6 decimals, but
// nothing here assumes that.
package token

import (
	"errors"
	"math"
	"math/big"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// displayDigits is how many fractional digits the UI shows. Display values
// are truncated to this, never rounded, so a balance is never overstated.
const displayDigits = 2

// Format renders base units as a decimal string with exactly two fractional
// digits. It never fails: nil amounts and nonsense decimals render as "0.00".
func Format(amount *big.Int, decimals int) string {
	if amount == nil || decimals < 0 || amount.Sign() < 0 {
		return "0.00"
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(amount, scale, new(big.Int))

	fracStr := frac.String()
	if pad := decimals - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	if len(fracStr) > displayDigits {
		fracStr = fracStr[:displayDigits]
	}
	if pad := displayDigits - len(fracStr); pad > 0 {
		fracStr += strings.Repeat("0", pad)
	}

	return whole.String() + "." + fracStr
}

// Parse converts a user-supplied decimal string into base units.
// Accepts plain non-negative decimals ("500", "125.5"); anything else fails
// with ErrInvalidAmount, including more fractional digits than the token
// can represent.
func Parse(display string, decimals int) (*big.Int, error) {
	display = strings.TrimSpace(display)
	if display == "" || decimals < 0 {
		return nil, ErrInvalidAmount
	}

	wholeStr, fracStr := display, ""
	if i := strings.IndexByte(display, '.'); i >= 0 {
		wholeStr, fracStr = display[:i], display[i+1:]
	}
	if wholeStr == "" && fracStr == "" {
		return nil, ErrInvalidAmount
	}
	if wholeStr == "" {
		wholeStr = "0"
	}
	if !isDigits(wholeStr) || (fracStr != "" && !isDigits(fracStr)) {
		return nil, ErrInvalidAmount
	}
	if len(fracStr) > decimals {
		return nil, ErrInvalidAmount
	}

	// right-pad the fraction to the full decimal width, then concatenate
	fracStr += strings.Repeat("0", decimals-len(fracStr))

	amount, ok := new(big.Int).SetString(wholeStr+fracStr, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return amount, nil
}

// ProgressPercent returns raised/target as a percentage rounded to two
// decimal places. Zero or negative targets define progress as 0.
func ProgressPercent(raised, target *big.Int) float64 {
	if raised == nil || target == nil || target.Sign() <= 0 {
		return 0
	}

	ratio := new(big.Float).Quo(new(big.Float).SetInt(raised), new(big.Float).SetInt(target))
	pct, _ := new(big.Float).Mul(ratio, big.NewFloat(100)).Float64()
	return math.Round(pct*100) / 100
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
