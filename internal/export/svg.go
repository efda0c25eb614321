package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// SVGOptions controls plan rendering.
type SVGOptions struct {
	// Width of the drawing in millimetres; 0 means 250.
	Width float64
	// FontPath is a TTF/OTF file for room labels. When empty a system
	// sans-serif is tried and labels are left out if none loads.
	FontPath string
}

const svgMargin = 10.0 // mm

// ExportSVG writes the layout as an SVG plan.
func ExportSVG(path string, inst model.Instance, res model.LayoutResult, opts SVGOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create SVG: %w", err)
	}
	if err := WriteSVG(f, inst, res, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteSVG renders the plan to w. Layout coordinates keep their y-up
// orientation.
func WriteSVG(w io.Writer, inst model.Instance, res model.LayoutResult, opts SVGOptions) error {
	rooms, err := placements(inst, res)
	if err != nil {
		return err
	}
	b := res.Layout.Boundary
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("boundary %gx%g cannot be drawn", b.Width, b.Height)
	}

	width := opts.Width
	if width <= 0 {
		width = 250
	}
	scale := (width - 2*svgMargin) / b.Width
	height := b.Height*scale + 2*svgMargin

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)

	ctx.SetFillColor(color.RGBA{R: 245, G: 245, B: 245, A: 255})
	ctx.SetStrokeColor(canvas.Black)
	ctx.SetStrokeWidth(0.6)
	ctx.DrawPath(svgMargin, svgMargin, canvas.Rectangle(b.Width*scale, b.Height*scale))

	family := loadFamily(opts.FontPath)
	for _, r := range rooms {
		x := svgMargin + r.Rect.X*scale
		y := svgMargin + r.Rect.Y*scale
		rw, rh := r.Rect.Width*scale, r.Rect.Height*scale

		ctx.SetFillColor(color.RGBA{R: uint8(r.Color.R), G: uint8(r.Color.G), B: uint8(r.Color.B), A: 200})
		ctx.SetStrokeColor(color.RGBA{R: 60, G: 60, B: 60, A: 255})
		ctx.SetStrokeWidth(0.3)
		ctx.DrawPath(x, y, canvas.Rectangle(rw, rh))

		if family == nil {
			continue
		}
		size := math.Min(math.Min(rw, rh)*1.2, 10) // pt
		face := family.Face(size, canvas.Black, canvas.FontRegular, canvas.FontNormal)
		name := canvas.NewTextLine(face, r.Spec.DisplayName(), canvas.Center)
		ctx.DrawText(x+rw/2, y+rh/2, name)
		dims := canvas.NewTextLine(face, fmt.Sprintf("%gx%g", r.Rect.Width, r.Rect.Height), canvas.Center)
		ctx.DrawText(x+rw/2, y+rh/2-size*0.5, dims)
	}

	out := svg.New(w, width, height, nil)
	c.RenderTo(out)
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write SVG: %w", err)
	}
	return nil
}

// loadFamily returns nil when no usable font is found.
func loadFamily(path string) *canvas.FontFamily {
	family := canvas.NewFontFamily("roomplan")
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil && family.LoadFont(data, 0, canvas.FontRegular) == nil {
			return family
		}
		return nil
	}
	if err := family.LoadSystemFont("sans-serif", canvas.FontRegular); err != nil {
		return nil
	}
	return family
}
