package importer

// Result summarizes reading and coercing one or more source files.
type Result struct {
	FilesProcessed int
	RowsRead       int
	Rows           []Row
	Skipped        []*SkipError
}

// ReadFiles reads every path with the reader for format (inferred from the
// extension when empty) and coerces the records in file order.
func ReadFiles(paths []string, format string, coercer *Coercer) (*Result, error) {
	result := &Result{Rows: make([]Row, 0, 256)}
	for _, path := range paths {
		sourceFormat, err := InferFormat(path, format)
		if err != nil {
			return nil, err
		}
		reader, err := ReaderForFormat(sourceFormat)
		if err != nil {
			return nil, err
		}

		records, err := reader.Read(path)
		if err != nil {
			return nil, err
		}

		rows, skipped := coercer.CoerceAll(records)
		result.FilesProcessed++
		result.RowsRead += len(records)
		result.Rows = append(result.Rows, rows...)
		result.Skipped = append(result.Skipped, skipped...)
	}

	return result, nil
}
