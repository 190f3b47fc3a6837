// Package report exports derived features to an Excel workbook.
package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/makoty26/HysteresisAnalyzer/src/store"
	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

// Sheet names.
const (
	SummarySheet = "summary"
	MissingSheet = "missing"
)

// SummaryHeader is the first row of the summary sheet.
var SummaryHeader = []string{
	"ElmNo", "CAD", "X", "Y", "R[Front]", "R[Rear]", "Rows", "Range", "ZeroCrossings",
	"ChangeRateMean", "ChangeRateVar", "GradientMid", "DeviationMid", "RatioMid", "PseudoArea",
}

// WriteWorkbook writes one summary row per sample and the missing identifiers to path.
func WriteWorkbook(path string, samples []store.Sample, missing []types.ElmNo) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &SummaryHeader); err != nil {
		return err
	}
	for i, s := range samples {
		row := []any{
			int(s.ElmNo), s.Meta.CAD, s.Meta.X, s.Meta.Y, cell(s.Meta.RFront), cell(s.Meta.RRear),
			s.Summary.Rows, cell(s.Summary.Range), s.Summary.ZeroCrossings,
			cell(s.Summary.ChangeRateMean), cell(s.Summary.ChangeRateVar), cell(s.Summary.GradientMid),
			cell(s.Summary.DeviationMid), cell(s.Summary.RatioMid), cell(s.Summary.PseudoArea),
		}
		if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	if err := f.SetPanes(SummarySheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if _, err := f.NewSheet(MissingSheet); err != nil {
		return err
	}
	if err := f.SetCellValue(MissingSheet, "A1", "ElmNo"); err != nil {
		return err
	}
	for i, id := range missing {
		if err := f.SetCellValue(MissingSheet, fmt.Sprintf("A%d", i+2), int(id)); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return &types.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// cell leaves non-finite values empty.
func cell(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
