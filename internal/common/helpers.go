package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	BalanceDecimals = 6 // fraction digits shown for cached balances
)

// ZeroBalance is the display value of an unknown or reset balance
var ZeroBalance = FormatBalance(new(big.Int), 0)

var (
	hexAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	hexRe        = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	digitsRe     = regexp.MustCompile(`^[0-9]*$`)
)

// Strip0x removes a single leading "0x" prefix
func Strip0x(s string) string {
	return strings.TrimPrefix(s, "0x")
}

// IsHex reports whether s is a non-empty string of hex digits (no prefix)
func IsHex(s string) bool {
	return hexRe.MatchString(s)
}

// HexToBytes decodes an even-length hex string with optional 0x prefix
func HexToBytes(s string) ([]byte, error) {
	h := Strip0x(s)
	if h == "" || len(h)%2 != 0 || !IsHex(h) {
		return nil, errors.New("invalid hex")
	}
	return hex.DecodeString(h)
}

// BytesToHex encodes bytes as lowercase 0x-prefixed hex
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// IsValidHexAddress checks the 0x + 40 hex digits shape (any case, surrounding spaces ignored)
func IsValidHexAddress(addr string) bool {
	return hexAddressRe.MatchString(strings.TrimSpace(addr))
}

// SameAddress compares two hex addresses case-insensitively
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FormatUnits converts an integer amount of smallest units into a decimal string.
// Trailing fraction zeros are trimmed but at least one fraction digit is kept.
// Example: FormatUnits(1500000000000000000, 18) = "1.5"
func FormatUnits(value *big.Int, decimals int) string {
	whole, frac := splitUnits(value, decimals)
	if decimals == 0 {
		return whole
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	return whole + "." + frac
}

// FormatBalance renders an amount with exactly BalanceDecimals fraction digits (truncated)
func FormatBalance(value *big.Int, decimals int) string {
	whole, frac := splitUnits(value, decimals)
	if len(frac) > BalanceDecimals {
		frac = frac[:BalanceDecimals]
	}
	frac += strings.Repeat("0", BalanceDecimals-len(frac))
	return whole + "." + frac
}

// splitUnits splits value into its whole part and its zero-padded fraction of exactly decimals digits
func splitUnits(value *big.Int, decimals int) (string, string) {
	if value == nil {
		value = new(big.Int)
	}
	neg := value.Sign() < 0
	s := new(big.Int).Abs(value).String()

	// Pad with leading zeros if needed
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	pos := len(s) - decimals
	whole := s[:pos]
	if neg {
		whole = "-" + whole
	}
	return whole, s[pos:]
}

// ParseUnits converts a non-negative decimal string into smallest units.
// A fraction longer than decimals is rejected rather than truncated.
// Example: ParseUnits("0.024981836", 9) = 24981836
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty string")
	}
	if decimals < 0 {
		return nil, fmt.Errorf("invalid decimals %d", decimals)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, errors.New("invalid decimal format")
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" && frac == "" {
		return nil, errors.New("invalid decimal format")
	}
	if !digitsRe.MatchString(whole) || !digitsRe.MatchString(frac) {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("too many decimal places (max %d)", decimals)
	}

	// Pad fractional part to exact decimals, then combine
	frac += strings.Repeat("0", decimals-len(frac))
	combined := strings.TrimLeft(whole+frac, "0")
	if combined == "" {
		return new(big.Int), nil
	}

	n, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}
