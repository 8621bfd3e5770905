package presenter

import "image"

var (
	MinSize = image.Pt(400, 150)
	MaxSize = image.Pt(800, 600)
)

// Fit sizes the window to its natural content size within MinSize and
// MaxSize, never larger than display.
func Fit(natural image.Point, display image.Rectangle) image.Point {
	w := clamp(natural.X, MinSize.X, MaxSize.X)
	h := clamp(natural.Y, MinSize.Y, MaxSize.Y)
	if dw := display.Dx(); dw > 0 && w > dw {
		w = dw
	}
	if dh := display.Dy(); dh > 0 && h > dh {
		h = dh
	}
	return image.Pt(w, h)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
