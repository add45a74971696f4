// Package report writes batch run results to an xlsx workbook.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/openbank/apitester/internal/runner"
)

const sheetName = "Results"

var headers = []string{
	"Operation", "Method", "Path", "Status", "Found",
	"Time (ms)", "Success", "Messages",
}

// WriteXLSX writes one row per result plus a summary line and saves the
// workbook at path.
func WriteXLSX(path string, results []runner.Result, elapsed time.Duration) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}
	f.SetColWidth(sheetName, "A", "C", 32)
	f.SetColWidth(sheetName, "H", "H", 48)

	passed := 0
	for i, res := range results {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), res.OperationID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), strings.ToUpper(res.Method))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), res.URLPath)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), res.StatusCode)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), res.Found)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), res.ExecutionTime)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), res.Success)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), strings.Join(res.Messages, "; "))
		if res.Success {
			passed++
		}
	}

	summary := len(results) + 3
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summary),
		fmt.Sprintf("%d/%d passed in %s", passed, len(results), elapsed.Round(time.Millisecond)))

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
