// Package export renders solved layouts to PDF sheets, QR room labels, DXF
// drawings, XLSX room schedules and SVG plans.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/piwi3910/RoomPlan/internal/model"
)

// ErrNoLayout is returned for results that carry no layout to draw.
var ErrNoLayout = errors.New("result has no layout to export")

// rgb is a fill color.
type rgb struct {
	R, G, B int
}

// palette is used for rooms without an explicit color.
var palette = []rgb{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// parseHex reads "#rgb" or "#rrggbb".
func parseHex(s string) (rgb, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, true
}

// placedRoom joins a room spec with its placement.
type placedRoom struct {
	Spec  model.RoomSpec
	Rect  model.Rect
	Color rgb
}

// placements lists the rooms of a solved result in layout order.
func placements(inst model.Instance, res model.LayoutResult) ([]placedRoom, error) {
	if !res.IsSolved() {
		if err := res.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoLayout, err)
		}
		return nil, ErrNoLayout
	}
	out := make([]placedRoom, 0, len(res.Layout.Order))
	for i, id := range res.Layout.Order {
		spec, _, ok := inst.Room(id)
		if !ok {
			spec = model.NewRoom(id, 0, 0)
		}
		col, ok := parseHex(spec.Color)
		if !ok {
			col = palette[i%len(palette)]
		}
		out = append(out, placedRoom{Spec: spec, Rect: res.Layout.Rooms[id], Color: col})
	}
	return out, nil
}

func gapText(res model.LayoutResult) string {
	switch {
	case res.CertifiedOptimal:
		return "optimal"
	case res.Gap < 0:
		return "unknown"
	}
	return fmt.Sprintf("%.2f%%", res.Gap*100)
}
