//go:build !cgo || !linux

package ocr

import (
	"context"
	"fmt"
)

// Tesseract is unavailable without cgo on Linux; every call reports
// ErrEngineUnavailable so the session fails cleanly.
type Tesseract struct {
	TessdataDir string
}

func NewTesseract(tessdataDir string) *Tesseract {
	return &Tesseract{TessdataDir: tessdataDir}
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte, languageID string) (Candidate, error) {
	return Candidate{}, fmt.Errorf("%w: built without cgo tesseract bindings", ErrEngineUnavailable)
}
