package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/RoomPlan/internal/model"
)

const (
	roomsSheet   = "Rooms"
	summarySheet = "Summary"
)

var roomColumns = []string{"ID", "Label", "X", "Y", "Width", "Height", "Area", "Perimeter", "Target Area", "Aspect"}

// ExportXLSX writes a room schedule workbook with a "Rooms" sheet listing
// every placement and a "Summary" sheet with the solve metrics.
func ExportXLSX(path string, inst model.Instance, res model.LayoutResult) error {
	f, err := buildWorkbook(inst, res)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func buildWorkbook(inst model.Instance, res model.LayoutResult) (*excelize.File, error) {
	rooms, err := placements(inst, res)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(roomsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range roomColumns {
		if err := setCell(f, roomsSheet, col+1, 1, header); err != nil {
			f.Close()
			return nil, err
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(roomColumns), 1)
	if err := f.SetCellStyle(roomsSheet, first, last, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(roomsSheet, "A", "B", 18); err != nil {
		f.Close()
		return nil, err
	}

	for i, r := range rooms {
		row := i + 2
		values := []interface{}{
			r.Spec.ID,
			r.Spec.DisplayName(),
			r.Rect.X,
			r.Rect.Y,
			r.Rect.Width,
			r.Rect.Height,
			r.Rect.Area(),
			r.Rect.Perimeter(),
			r.Spec.TargetArea,
			r.Rect.Width / r.Rect.Height,
		}
		for col, v := range values {
			if err := setCell(f, roomsSheet, col+1, row, v); err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	if err := f.SetPanes(roomsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSummary(f, inst, res, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeSummary(f *excelize.File, inst model.Instance, res model.LayoutResult, headerStyle int) error {
	l := res.Layout
	budget := model.CalculateAreaBudget(inst)
	rows := [][2]interface{}{
		{"Metric", "Value"},
		{"Instance", inst.Name},
		{"Objective", res.Objective.Title()},
		{"Objective Value", res.ObjectiveValue},
		{"Certified Optimal", res.CertifiedOptimal},
		{"Gap", gapText(res)},
		{"Boundary Width", l.Boundary.Width},
		{"Boundary Height", l.Boundary.Height},
		{"Used Area", l.UsedArea()},
		{"Unused Area", l.UnusedArea()},
		{"Efficiency %", l.Efficiency()},
		{"Total Perimeter", l.TotalPerimeter()},
		{"Minimum Room Area", budget.MinRoomArea},
		{"Spacing", inst.Spacing},
		{"Oracle", res.Stats.Oracle},
		{"Nodes", res.Stats.Nodes},
		{"Elapsed", res.Stats.Elapsed.String()},
	}
	for i, r := range rows {
		if err := setCell(f, summarySheet, 1, i+1, r[0]); err != nil {
			return err
		}
		if err := setCell(f, summarySheet, 2, i+1, r[1]); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "B", 22)
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
