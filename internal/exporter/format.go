package exporter

import (
	"math"
	"strconv"
)

// formatScore formats an importance or metric with six decimal places
func formatScore(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// formatInt formats a count for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}
