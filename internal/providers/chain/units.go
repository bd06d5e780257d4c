package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// weiToDecimal renders an integer amount as a decimal string shifted left by
// the given number of places, trimming trailing zeros ("1500000000000000000",
// 18 -> "1.5").
func weiToDecimal(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	s := amount.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// decimalToWei parses a decimal string into an integer amount shifted right
// by the given number of places ("1.5", 18 -> 1500000000000000000).
func decimalToWei(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if len(fracPart) > decimals {
		return nil, fmt.Errorf("too many decimal places in %q", s)
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	n, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", s)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return n, nil
}
