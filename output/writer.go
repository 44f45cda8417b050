package output

import (
	"fmt"
	"strings"
)

// Writer stores export rows in one file format.
type Writer interface {
	Write(path string, rows []ExportRow) error
}

func WriterForFormat(format string) (Writer, error) {
	switch normalizeFormat(format) {
	case "csv":
		return &CSVWriter{}, nil
	case "excel", "xlsx":
		return &ExcelWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// writeTable dispatches a header plus rows of cells to the format's table writer.
func writeTable(path, format string, headers []string, rows [][]string) error {
	switch normalizeFormat(format) {
	case "csv":
		return writeTableCSV(path, headers, rows)
	case "excel", "xlsx":
		return writeTableExcel(path, headers, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func normalizeFormat(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}
