package export

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// minFreeRegion drops slivers from the free-region overlay.
const minFreeRegion = 0.5

// ExportPDF writes a layout sheet followed by a summary page.
func ExportPDF(path string, inst model.Instance, res model.LayoutResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create PDF: %w", err)
	}
	if err := WritePDF(f, inst, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WritePDF renders the PDF to w.
func WritePDF(w io.Writer, inst model.Instance, res model.LayoutResult) error {
	rooms, err := placements(inst, res)
	if err != nil {
		return err
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(inst.Name, true)
	pdf.SetCreator("RoomPlan", true)
	pdf.SetAutoPageBreak(false, marginBottom)

	pdf.AddPage()
	renderLayoutPage(pdf, inst, res, rooms)
	pdf.AddPage()
	renderSummaryPage(pdf, inst, res, rooms)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// pageTransform maps layout coordinates (y up) onto the page (y down).
type pageTransform struct {
	scale, offsetX, offsetY, height float64
}

func (t pageTransform) rect(r model.Rect) (x, y, w, h float64) {
	return t.offsetX + r.X*t.scale,
		t.offsetY + (t.height-r.Y-r.Height)*t.scale,
		r.Width * t.scale,
		r.Height * t.scale
}

func renderLayoutPage(pdf *fpdf.Fpdf, inst model.Instance, res model.LayoutResult, rooms []placedRoom) {
	b := res.Layout.Boundary

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("%s (%g x %g)", inst.Name, b.Width, b.Height)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Rooms: %d | Used area: %.2f | Unused: %.2f | Efficiency: %.1f%% | %s: %.4g (%s)",
		len(rooms), res.Layout.UsedArea(), res.Layout.UnusedArea(), res.Layout.Efficiency(),
		res.Objective.Title(), res.ObjectiveValue, gapText(res))
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight
	scale := math.Min(drawWidth/b.Width, drawHeight/b.Height)
	canvasW, canvasH := b.Width*scale, b.Height*scale
	t := pageTransform{scale: scale, offsetX: marginLeft + (drawWidth-canvasW)/2, offsetY: drawAreaTop, height: b.Height}

	// Boundary
	pdf.SetFillColor(245, 240, 230)
	pdf.SetDrawColor(60, 60, 60)
	pdf.SetLineWidth(0.6)
	pdf.Rect(t.offsetX, t.offsetY, canvasW, canvasH, "FD")

	drawFreeRegions(pdf, *res.Layout, t)

	for _, r := range rooms {
		x, y, w, h := t.rect(r.Rect)
		pdf.SetFillColor(r.Color.R, r.Color.G, r.Color.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(x, y, w, h, "FD")

		if w > 15 && h > 8 {
			pdf.SetFont("Helvetica", "", labelFontSize(w, h))
			pdf.SetTextColor(0, 0, 0)
			label := r.Spec.DisplayName()
			dims := fmt.Sprintf("%gx%g", r.Rect.Width, r.Rect.Height)
			labelW := pdf.GetStringWidth(label)
			dimsW := pdf.GetStringWidth(dims)
			if labelW < w-2 {
				pdf.SetXY(x+(w-labelW)/2, y+h/2-4)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
			if h > 14 && dimsW < w-2 {
				pdf.SetXY(x+(w-dimsW)/2, y+h/2)
				pdf.CellFormat(dimsW, 4, dims, "", 0, "C", false, 0, "")
			}
		}
	}

	drawDimensionAnnotations(pdf, b, t.offsetX, t.offsetY, canvasW, canvasH)
	drawRoomLegend(pdf, rooms, t.offsetY+canvasH+6)
}

// drawFreeRegions hatches the maximal empty rectangles of the layout.
func drawFreeRegions(pdf *fpdf.Fpdf, l model.Layout, t pageTransform) {
	for _, fr := range model.DetectFreeRegions(l, minFreeRegion) {
		x, y, w, h := t.rect(fr.Rect())
		drawHatchPattern(pdf, x, y, w, h)
	}
}

// drawHatchPattern draws diagonal lines inside a rectangle.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	pdf.SetDrawColor(200, 190, 170)
	pdf.SetLineWidth(0.15)

	const spacing = 4.0
	for d := spacing; d < w+h; d += spacing {
		x1 := x + math.Max(0, d-h)
		y1 := y + math.Min(h, d)
		x2 := x + math.Min(w, d)
		y2 := y + math.Max(0, d-w)
		pdf.Line(x1, y1, x2, y2)
	}
}

// drawDimensionAnnotations labels the boundary width below and height to
// the left of the drawing.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, b model.Boundary, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%g", b.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%g", b.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

func drawRoomLegend(pdf *fpdf.Fpdf, rooms []placedRoom, startY float64) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Rooms:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight
	for _, r := range rooms {
		label := fmt.Sprintf("%s (%gx%g)", r.Spec.DisplayName(), r.Rect.Width, r.Rect.Height)
		labelW := pdf.GetStringWidth(label) + 6
		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}
		pdf.SetFillColor(r.Color.R, r.Color.G, r.Color.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")
		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")
		xPos += labelW + 2
	}
}

func renderSummaryPage(pdf *fpdf.Fpdf, inst model.Instance, res model.LayoutResult, rooms []placedRoom) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Layout Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18
	budget := model.CalculateAreaBudget(inst)
	items := []struct {
		label string
		value string
	}{
		{"Objective", res.Objective.Title()},
		{"Objective Value", fmt.Sprintf("%.4g", res.ObjectiveValue)},
		{"Optimality Gap", gapText(res)},
		{"Efficiency", fmt.Sprintf("%.1f%%", res.Layout.Efficiency())},
		{"Minimum Room Area", fmt.Sprintf("%.2f of %.2f", budget.MinRoomArea, budget.BoundaryArea)},
		{"Spacing", fmt.Sprintf("%g", inst.Spacing)},
		{"Oracle", fmt.Sprintf("%s, %d nodes, %s", res.Stats.Oracle, res.Stats.Nodes, res.Stats.Elapsed)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range items {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(120, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}
	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Room Schedule", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{35, 55, 40, 40, 30, 30, 30}
	headers := []string{"Room", "Label", "Position", "Size", "Area", "Target", "Perimeter"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, r := range rooms {
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		target := "-"
		if r.Spec.TargetArea > 0 {
			target = fmt.Sprintf("%.2f", r.Spec.TargetArea)
		}
		row := []string{
			r.Spec.ID,
			r.Spec.DisplayName(),
			fmt.Sprintf("(%g, %g)", r.Rect.X, r.Rect.Y),
			fmt.Sprintf("%g x %g", r.Rect.Width, r.Rect.Height),
			fmt.Sprintf("%.2f", r.Rect.Area()),
			target,
			fmt.Sprintf("%.2f", r.Rect.Perimeter()),
		}
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		xPos = marginLeft
		for j, cell := range row {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(inst.Relations) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(100, 7, "Relations", "", 0, "L", false, 0, "")
		y += 8
		pdf.SetFont("Helvetica", "", 9)
		for _, rel := range inst.Relations {
			if y > pageHeight-marginBottom-5 {
				pdf.AddPage()
				y = marginTop
			}
			mark := "met"
			if !rel.Satisfied(*res.Layout, inst.Spacing) {
				mark = "NOT MET"
			}
			pdf.SetXY(marginLeft+5, y)
			pdf.CellFormat(250, 5, fmt.Sprintf("- %s [%s]", rel.String(), mark), "", 0, "L", false, 0, "")
			y += 5
		}
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by RoomPlan", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
