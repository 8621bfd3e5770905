package screenshot

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// FallbackDisplay is used when no display can be queried (e.g. Wayland
// sessions without XWayland).
var FallbackDisplay = image.Rect(0, 0, 1920, 1080)

// GetDisplayBounds returns the bounds of the primary display
func GetDisplayBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}

	return screenshot.GetDisplayBounds(0), nil
}

// DisplayContaining returns the bounds of the display that contains the
// centre of r, the primary display when none does, and FallbackDisplay when
// no display information is available.
func DisplayContaining(r image.Rectangle) image.Rectangle {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return FallbackDisplay
	}
	center := image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
	for i := 0; i < n; i++ {
		if b := screenshot.GetDisplayBounds(i); center.In(b) {
			return b
		}
	}
	return screenshot.GetDisplayBounds(0)
}
