package domain

import (
	"strconv"
	"strings"
)

// FormatFloat renders v with the fewest digits that round-trip, always
// keeping a decimal point for integral values (5 -> "5.0").
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// FormatCellID renders an optional cell id, empty when absent.
func FormatCellID(id *int) string {
	if id == nil {
		return ""
	}
	return strconv.Itoa(*id)
}

// FormatValue renders an optional value, empty when absent.
func FormatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}
