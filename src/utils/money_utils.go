package utils

import (
	"math"
	"strconv"
	"strings"
)

// ParseMoney parses a Danish-formatted numeric string (e.g. "1.234,56") into a
// float64. Dots are thousands separators, comma is the decimal separator.
// Unparseable or empty input yields 0; this never fails.
func ParseMoney(v string) float64 {
	s := strings.TrimSpace(v)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// ToMoney formats a number in Danish locale with exactly two decimals
// (e.g. 1234.56 -> "1.234,56").
func ToMoney(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		n = 0
	}
	x := math.Round(n*100) / 100
	neg := math.Signbit(x) && x != 0
	s := strconv.FormatFloat(math.Abs(x), 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var grouped strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}

	out := grouped.String() + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
