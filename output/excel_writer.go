package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type ExcelWriter struct{}

func (w *ExcelWriter) Write(path string, rows []ExportRow) error {
	return writeTableExcel(path, ExportHeaders, exportCells(rows))
}

func writeTableExcel(path string, headers []string, rows [][]string) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	if err := setExcelRow(file, sheet, 1, headers); err != nil {
		return fmt.Errorf("set excel headers: %w", err)
	}
	for i, values := range rows {
		if err := setExcelRow(file, sheet, i+2, values); err != nil {
			return fmt.Errorf("set excel row %d: %w", i+2, err)
		}
	}

	if err := file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze excel header: %w", err)
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save excel output %s: %w", path, err)
	}

	return nil
}

func setExcelRow(file *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, value := range values {
		cells[i] = value
	}
	return file.SetSheetRow(sheet, cell, &cells)
}
