package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// LabelInfo holds the data encoded into each room label's QR code.
type LabelInfo struct {
	Instance string  `json:"instance"`
	Room     string  `json:"room"`
	Label    string  `json:"label"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"w"`
	Height   float64 `json:"h"`
	Area     float64 `json:"area"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// CollectLabelInfos lists one label per placed room in layout order.
func CollectLabelInfos(inst model.Instance, res model.LayoutResult) ([]LabelInfo, error) {
	rooms, err := placements(inst, res)
	if err != nil {
		return nil, err
	}
	labels := make([]LabelInfo, 0, len(rooms))
	for _, r := range rooms {
		labels = append(labels, LabelInfo{
			Instance: inst.Name,
			Room:     r.Spec.ID,
			Label:    r.Spec.DisplayName(),
			X:        r.Rect.X,
			Y:        r.Rect.Y,
			Width:    r.Rect.Width,
			Height:   r.Rect.Height,
			Area:     r.Rect.Area(),
		})
	}
	return labels, nil
}

// ExportLabels writes a sheet of QR-coded door labels, one per room.
func ExportLabels(path string, inst model.Instance, res model.LayoutResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create labels PDF: %w", err)
	}
	if err := WriteLabels(f, inst, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteLabels renders the label sheet to w. Labels are laid out on Avery
// 5160 stock (3 columns x 10 rows on US Letter).
func WriteLabels(w io.Writer, inst model.Instance, res model.LayoutResult) error {
	labels, err := CollectLabelInfos(inst, res)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		return fmt.Errorf("no rooms placed to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}
		pos := i % labelsPerPage
		x := labelMarginLeft + float64(pos%labelCols)*labelWidth
		y := labelMarginTop + float64(pos/labelCols)*labelHeight
		if err := renderLabel(pdf, x, y, i, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.Room, err)
		}
	}
	return pdf.Output(w)
}

func renderLabel(pdf *fpdf.Fpdf, x, y float64, index int, info LabelInfo) error {
	// Cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d", index)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 4.5, truncate(pdf, info.Label, textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("%g x %g (%.2f)", info.Width, info.Height, info.Area), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	pdf.CellFormat(textW, 3, fmt.Sprintf("%s @ (%g, %g)", info.Room, info.X, info.Y), "", 1, "L", false, 0, "")
	if info.Instance != "" {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.CellFormat(textW, 3, truncate(pdf, info.Instance, textW), "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// truncate shortens s with an ellipsis until it fits width.
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
