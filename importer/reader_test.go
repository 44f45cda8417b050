package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
)

func TestCSVReader_ReadsAndDropsBlankRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs.csv")
	content := "Member Email,Date,Hours\na@x.com,2024-03-01,5\n,,\nb@x.com,2024-03-02\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := (&CSVReader{}).Read(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Get("MemberEmail") != "a@x.com" || records[0].Get("hours") != "5" {
		t.Fatalf("unexpected first record: %+v", records[0].Values)
	}
	if records[1].RowNumber != 4 {
		t.Fatalf("expected file row number 4, got %d", records[1].RowNumber)
	}
	if _, ok := records[1].Lookup("Hours"); ok {
		t.Fatalf("expected missing trailing cell to be absent")
	}
}

func TestTSVReader_DecodesUTF16(t *testing.T) {
	t.Parallel()

	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(
		"MemberEmail\tMemberName\tHours\r\na@x.com\tJürgen\t2,5\r\n",
	)
	if err != nil {
		t.Fatalf("encode utf16: %v", err)
	}
	path := filepath.Join(t.TempDir(), "logs.txt")
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		t.Fatalf("write tsv: %v", err)
	}

	records, err := (&TSVReader{}).Read(path)
	if err != nil {
		t.Fatalf("read tsv: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Get("MemberName") != "Jürgen" || records[0].Get("Hours") != "2,5" {
		t.Fatalf("unexpected record: %+v", records[0].Values)
	}
}

func TestExcelReader_ReadsFirstSheet(t *testing.T) {
	t.Parallel()

	file := excelize.NewFile()
	sheet := file.GetSheetName(0)
	rows := [][]any{
		{"MemberEmail", "Date", "Hours", "type"},
		{"a@x.com", "2024-03-01", "5", "Maintenance"},
		{"b@x.com", "2024-03-02", "1.5", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "logs.xlsx")
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	records, err := (&ExcelReader{}).Read(path)
	if err != nil {
		t.Fatalf("read excel: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Get("type") != "Maintenance" || records[1].Get("Hours") != "1.5" {
		t.Fatalf("unexpected records: %+v / %+v", records[0].Values, records[1].Values)
	}
}

func TestInferFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a.csv":  "csv",
		"a.TSV":  "tsv",
		"a.txt":  "tsv",
		"a.xlsx": "excel",
	}
	for path, want := range tests {
		got, err := InferFormat(path, "")
		if err != nil {
			t.Fatalf("infer %s: %v", path, err)
		}
		if got != want {
			t.Fatalf("infer %s: want %s, got %s", path, want, got)
		}
	}
	if _, err := InferFormat("a.json", ""); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestReadFiles_CollectsRowsAndSkips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs.csv")
	content := "Email,Date,Hours\na@x.com,2024-03-01,5\n,2024-03-01,2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	result, err := ReadFiles([]string{path}, "", newTestCoercer())
	if err != nil {
		t.Fatalf("read files: %v", err)
	}
	if result.FilesProcessed != 1 || result.RowsRead != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Rows) != 1 || len(result.Skipped) != 1 {
		t.Fatalf("expected 1 row and 1 skip, got %d / %d", len(result.Rows), len(result.Skipped))
	}
	if result.Skipped[0].RowNumber != 3 {
		t.Fatalf("expected skipped row 3, got %d", result.Skipped[0].RowNumber)
	}
}

func TestParseHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "5", want: 5},
		{input: "7.25", want: 7.25},
		{input: "7,5", want: 7.5},
		{input: "1.234,5", want: 1234.5},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "NaN", wantErr: true},
		{input: "-3", wantErr: true},
		{input: "-0,5", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseHours(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("unexpected hours for %q: want %v, got %v", tc.input, tc.want, got)
		}
	}
}
