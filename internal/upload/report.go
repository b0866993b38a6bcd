package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var resultsHeader = []any{
	"Row", "ID Number", "First Name", "Surname", "Ward", "Status", "Reason", "Warnings",
}

// WriteReport writes the result workbook for s to w.
func WriteReport(w io.Writer, s *Summary) error {
	f, err := buildReport(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteReport: %w", err)
	}
	return nil
}

// SaveReport writes the result workbook for s to path, creating the
// directory if needed.
func SaveReport(path string, s *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("SaveReport: create dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("SaveReport: %w", err)
	}
	if err := WriteReport(out, s); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("SaveReport: close: %w", err)
	}
	return nil
}

func buildReport(s *Summary) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("buildReport: rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("buildReport: style: %w", err)
	}

	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return nil, fmt.Errorf("buildReport: header: %w", err)
	}
	for i, r := range s.Results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("buildReport: %w", err)
		}
		row := []any{
			r.Line, r.IDNumber, r.FirstName, r.Surname, r.WardCode,
			r.Status, r.Reason, strings.Join(r.Warnings, "; "),
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("buildReport: row %d: %w", r.Line, err)
		}
	}
	f.SetCellStyle(resultsSheet, "A1", "H1", bold)
	f.SetColWidth(resultsSheet, "B", "B", 16)
	f.SetColWidth(resultsSheet, "C", "E", 18)
	f.SetColWidth(resultsSheet, "G", "H", 45)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("buildReport: summary sheet: %w", err)
	}
	summary := [][]any{
		{"File", s.FileName},
		{"Started", s.StartedAt.Format(time.RFC3339)},
		{"Finished", s.FinishedAt.Format(time.RFC3339)},
		{"Total rows", s.Total},
		{"Accepted", s.Accepted},
		{"Created", s.Created},
		{"Updated", s.Updated},
		{"Rejected", s.Rejected},
		{"Rows with warnings", s.Warnings},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("buildReport: summary: %w", err)
		}
	}
	f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold)
	f.SetColWidth(summarySheet, "A", "A", 20)
	f.SetColWidth(summarySheet, "B", "B", 40)

	f.SetActiveSheet(0)
	return f, nil
}
