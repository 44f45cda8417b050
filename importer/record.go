package importer

import (
	"strings"
)

// Record is one loosely typed source row keyed by normalized header.
type Record struct {
	RowNumber int
	Values    map[string]string
}

func (r Record) Get(keys ...string) string {
	value, _ := r.Lookup(keys...)
	return value
}

// Lookup returns the first non-empty value among keys. Empty cells count as absent.
func (r Record) Lookup(keys ...string) (string, bool) {
	for _, key := range keys {
		value, ok := r.Values[normalizeHeader(key)]
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

// NewRecord builds a record from a header row and one data row. Missing
// trailing cells become empty strings.
func NewRecord(rowNumber int, headers []string, cells []string) Record {
	values := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(cells) {
			values[header] = cells[i]
		} else {
			values[header] = ""
		}
	}
	return Record{RowNumber: rowNumber, Values: values}
}

// RecordFromMap builds a record from header/value pairs such as a decoded
// JSON object.
func RecordFromMap(rowNumber int, values map[string]string) Record {
	normalized := make(map[string]string, len(values))
	for key, value := range values {
		normalized[normalizeHeader(key)] = value
	}
	return Record{RowNumber: rowNumber, Values: normalized}
}

func normalizeHeaders(headers []string) []string {
	normalized := make([]string, len(headers))
	for i, header := range headers {
		normalized[i] = normalizeHeader(header)
	}
	return normalized
}

func normalizeHeader(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	trimmed = strings.TrimPrefix(trimmed, "\ufeff")
	trimmed = strings.ReplaceAll(trimmed, "_", "")
	trimmed = strings.ReplaceAll(trimmed, "-", "")
	trimmed = strings.ReplaceAll(trimmed, " ", "")
	return trimmed
}
