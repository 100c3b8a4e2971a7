package utils

import (
	"math"
	"strconv"
	"strings"
)

// Round2 rounds x to 2 decimal places (file sizes, confidence scores).
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ParseIntDefault parses a non-negative int query param, falling back to def.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}
