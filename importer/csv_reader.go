package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

type CSVReader struct{}

func (r *CSVReader) Read(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file %s: %w", path, err)
	}
	defer file.Close()

	return readDelimited(file, ',')
}

// readDelimited reads a header row followed by data rows. Rows whose cells
// are all blank are dropped.
func readDelimited(source io.Reader, comma rune) ([]Record, error) {
	reader := csv.NewReader(source)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	normalized := normalizeHeaders(headers)

	records := make([]Record, 0, 128)
	rowNumber := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNumber++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowNumber, err)
		}
		if blankRow(row) {
			continue
		}
		records = append(records, NewRecord(rowNumber, normalized, row))
	}

	return records, nil
}

func blankRow(cells []string) bool {
	for _, cell := range cells {
		for _, r := range cell {
			if r != ' ' && r != '\t' && r != '\r' && r != '\n' {
				return false
			}
		}
	}
	return true
}
