package animation

import "image"

// PageSize is the declared page size in document units.
type PageSize struct {
	CX, CY int64
}

// Placement is an animation's offset and extent in document units.
type Placement struct {
	OffX, OffY int64
	CX, CY     int64
}

// Pixels converts p to pixel space for a background of the given size. Each
// axis is scaled independently by background pixels over page units.
// Width and height never drop below one pixel.
func (p Placement) Pixels(page PageSize, background image.Point) image.Rectangle {
	x := scale(p.OffX, background.X, page.CX)
	y := scale(p.OffY, background.Y, page.CY)
	w := max(scale(p.CX, background.X, page.CX), 1)
	h := max(scale(p.CY, background.Y, page.CY), 1)
	return image.Rect(x, y, x+w, y+h)
}

func scale(v int64, pixels int, units int64) int {
	if units <= 0 {
		return int(v)
	}
	return int(v * int64(pixels) / units)
}
