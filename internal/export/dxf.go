package export

import (
	"fmt"
	"math"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// BoundaryLayer holds the outer boundary outline in exported drawings.
const BoundaryLayer = "BOUNDARY"

var layerColors = []color.ColorNumber{
	color.Green, color.Blue, color.Yellow, color.Magenta, color.Cyan, color.Red,
}

// ExportDXF writes the layout as a DXF drawing: the boundary on its own
// layer and each room as a closed polyline on a layer named after its ID.
// The file reads back with importer.ImportDXF using BoundaryFromLargest.
func ExportDXF(path string, inst model.Instance, res model.LayoutResult) error {
	rooms, err := placements(inst, res)
	if err != nil {
		return err
	}

	d := dxf.NewDrawing()
	if _, err := d.AddLayer(BoundaryLayer, color.White, dxf.DefaultLineType, true); err != nil {
		return fmt.Errorf("failed to add boundary layer: %w", err)
	}
	b := res.Layout.Boundary
	if _, err := d.LwPolyline(true, rectVertices(model.Rect{Width: b.Width, Height: b.Height})...); err != nil {
		return fmt.Errorf("failed to draw boundary: %w", err)
	}

	for i, r := range rooms {
		if _, err := d.AddLayer(r.Spec.ID, layerColors[i%len(layerColors)], dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("failed to add layer for room %q: %w", r.Spec.ID, err)
		}
		if _, err := d.LwPolyline(true, rectVertices(r.Rect)...); err != nil {
			return fmt.Errorf("failed to draw room %q: %w", r.Spec.ID, err)
		}
		h := textHeight(r.Rect)
		x := r.Rect.X + h/2
		y := r.Rect.Top() - 1.5*h
		if _, err := d.Text(r.Spec.DisplayName(), x, y, 0, h); err != nil {
			return fmt.Errorf("failed to label room %q: %w", r.Spec.ID, err)
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save DXF: %w", err)
	}
	return nil
}

func rectVertices(r model.Rect) [][]float64 {
	return [][]float64{
		{r.X, r.Y},
		{r.Right(), r.Y},
		{r.Right(), r.Top()},
		{r.X, r.Top()},
	}
}

// textHeight scales labels to the smaller room side.
func textHeight(r model.Rect) float64 {
	return math.Max(math.Min(r.Width, r.Height)/8, 0.05)
}
