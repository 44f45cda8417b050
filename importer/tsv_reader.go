package importer

import (
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TSVReader reads tab-separated sheets, including the UTF-16 "Unicode Text"
// export spreadsheet apps produce. The encoding is picked from the BOM; files
// without one are read as UTF-8.
type TSVReader struct{}

func (r *TSVReader) Read(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tsv file %s: %w", path, err)
	}
	defer file.Close()

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	records, err := readDelimited(transform.NewReader(file, decoder), '\t')
	if err != nil {
		return nil, fmt.Errorf("read tsv file %s: %w", path, err)
	}
	return records, nil
}
