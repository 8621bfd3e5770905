package screenshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	// ErrEnvironmentUnsupported means no screenshot backend can be invoked.
	ErrEnvironmentUnsupported = errors.New("no usable screenshot backend")
	// ErrUserCancelled means the user aborted the region selection.
	ErrUserCancelled = errors.New("region selection cancelled")
	// ErrBackendFailed means the backend ran but produced no image.
	ErrBackendFailed = errors.New("screenshot backend failed")
)

// Kind names one of the supported capture backends.
type Kind int

const (
	PlasmaSpectacle Kind = iota
	FreedesktopPortal
)

func (k Kind) String() string {
	switch k {
	case PlasmaSpectacle:
		return "plasma-spectacle"
	case FreedesktopPortal:
		return "freedesktop-portal"
	default:
		return "unknown"
	}
}

// Capture is the raster produced by a backend. Image is released by the OCR
// stage once it has been consumed.
type Capture struct {
	Image   image.Image
	Region  image.Rectangle
	Backend Kind
}

// Release drops the pixel buffer.
func (c *Capture) Release() {
	if c != nil {
		c.Image = nil
	}
}

// Backend lets the user draw a rectangle and returns its pixels.
type Backend interface {
	Kind() Kind
	Capture(ctx context.Context) (*Capture, error)
}

// Environment abstracts the process environment for detection.
type Environment struct {
	Getenv   func(string) string
	LookPath func(string) (string, error)
}

// Detect picks the capture backend once at startup: Spectacle inside an
// active Plasma session when the binary is on PATH, the portal otherwise.
// Portal availability is only checked when Capture runs.
func Detect(env Environment) Backend {
	if env.Getenv == nil {
		env.Getenv = os.Getenv
	}
	if isPlasmaSession(env.Getenv) && env.LookPath != nil {
		if path, err := env.LookPath(spectacleBinary); err == nil {
			return &Spectacle{Path: path}
		}
	}
	return &Portal{}
}

func isPlasmaSession(getenv func(string) string) bool {
	if strings.Contains(strings.ToUpper(getenv("XDG_CURRENT_DESKTOP")), "KDE") {
		return true
	}
	if strings.EqualFold(getenv("KDE_FULL_SESSION"), "true") {
		return true
	}
	return strings.Contains(strings.ToLower(getenv("DESKTOP_SESSION")), "plasma")
}

func decodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrBackendFailed, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrBackendFailed)
	}
	return img, nil
}

func readCapture(path string, kind Kind) (*Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrBackendFailed, path, err)
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	return &Capture{
		Image:   img,
		Region:  image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()),
		Backend: kind,
	}, nil
}
