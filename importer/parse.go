package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// parseHours reads a non-negative decimal hour value. Both "7.5" and "7,5"
// are accepted; when both separators appear the dot is taken as a thousands
// separator.
func parseHours(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("empty hours")
	}
	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	hours, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hours %q: %w", raw, err)
	}
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0, fmt.Errorf("parse hours %q: not a finite number", raw)
	}
	if hours < 0 {
		return 0, fmt.Errorf("parse hours %q: negative", raw)
	}
	return hours, nil
}

// parseFlag treats TRUE and YES (any case) as set.
func parseFlag(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRUE", "YES":
		return true
	default:
		return false
	}
}
