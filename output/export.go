// Package output writes log exports and member summaries as CSV or Excel.
package output

import (
	"strconv"
	"time"

	"clubhours/report"
	"clubhours/worklog"
)

// ExportHeaders is the export column order. It is also a valid import header row.
var ExportHeaders = []string{
	"MemberEmail",
	"MemberName",
	"Date",
	"Hours",
	"clockHours",
	"Activity",
	"type",
	"isMaintenance",
	"Status",
	"SourceSheet",
	"FiscalYearRollover",
	"importedAt",
}

// ExportRow is one exported record with every value already formatted.
type ExportRow struct {
	MemberEmail        string `json:"MemberEmail"`
	MemberName         string `json:"MemberName"`
	Date               string `json:"Date"`
	Hours              string `json:"Hours"`
	ClockHours         string `json:"clockHours"`
	Activity           string `json:"Activity"`
	Type               string `json:"type"`
	IsMaintenance      string `json:"isMaintenance"`
	Status             string `json:"Status"`
	SourceSheet        string `json:"SourceSheet"`
	FiscalYearRollover string `json:"FiscalYearRollover"`
	ImportedAt         string `json:"importedAt"`
}

// ExportRows formats entries for export. Timestamps are ISO-8601 in UTC.
func ExportRows(entries []worklog.Entry) []ExportRow {
	rows := make([]ExportRow, 0, len(entries))
	for _, entry := range entries {
		row := ExportRow{
			MemberEmail:        entry.MemberEmail,
			MemberName:         entry.MemberName,
			Date:               formatTimestamp(entry.Date),
			Hours:              formatHours(entry.CreditedHours),
			ClockHours:         formatHours(entry.ClockHours),
			Activity:           entry.Activity,
			Type:               string(entry.ActivityType),
			IsMaintenance:      strconv.FormatBool(entry.IsMaintenance),
			Status:             string(entry.Status),
			SourceSheet:        entry.SourceSheetID,
			FiscalYearRollover: string(entry.Rollover),
		}
		if entry.ImportedAt != nil {
			row.ImportedAt = formatTimestamp(*entry.ImportedAt)
		}
		rows = append(rows, row)
	}
	return rows
}

func (r ExportRow) Values() []string {
	return []string{
		r.MemberEmail,
		r.MemberName,
		r.Date,
		r.Hours,
		r.ClockHours,
		r.Activity,
		r.Type,
		r.IsMaintenance,
		r.Status,
		r.SourceSheet,
		r.FiscalYearRollover,
		r.ImportedAt,
	}
}

func exportCells(rows []ExportRow) [][]string {
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, row.Values())
	}
	return cells
}

var SummaryHeaders = []string{
	"MemberEmail",
	"MemberName",
	"LifetimeHours",
	"FiscalYearHours",
	"SpecialHours",
	"MaintenanceClockHours",
	"StandardVouchers",
	"BlueVouchers",
}

// SummaryCells formats the aggregate member table in SummaryHeaders order.
func SummaryCells(aggregates report.Aggregates) [][]string {
	cells := make([][]string, 0, len(aggregates.Members))
	for _, member := range aggregates.Members {
		cells = append(cells, []string{
			member.MemberEmail,
			member.MemberName,
			strconv.FormatFloat(member.LifetimeHours, 'f', 2, 64),
			strconv.FormatFloat(member.FiscalYearHours, 'f', 2, 64),
			strconv.FormatFloat(member.SpecialHours, 'f', 2, 64),
			strconv.FormatFloat(member.MaintenanceClockHours, 'f', 2, 64),
			strconv.Itoa(member.StandardVouchers),
			strconv.Itoa(member.BlueVouchers),
		})
	}
	return cells
}

// WriteMemberSummaries writes the aggregate member table as csv or excel.
func WriteMemberSummaries(path, format string, aggregates report.Aggregates) error {
	return writeTable(path, format, SummaryHeaders, SummaryCells(aggregates))
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatHours(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
