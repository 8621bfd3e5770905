//go:build cgo && linux

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes text with libtesseract through gosseract. Each call
// owns its own client so runs for different languages can proceed in
// parallel.
type Tesseract struct {
	TessdataDir string
}

func NewTesseract(tessdataDir string) *Tesseract {
	return &Tesseract{TessdataDir: tessdataDir}
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte, languageID string) (Candidate, error) {
	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}
	if err := CheckModels(t.TessdataDir, LanguageSet{languageID}); err != nil {
		return Candidate{}, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataDir != "" {
		if err := client.SetTessdataPrefix(t.TessdataDir); err != nil {
			return Candidate{}, fmt.Errorf("%w: tessdata prefix: %v", ErrEngineUnavailable, err)
		}
	}
	if err := client.SetLanguage(languageID); err != nil {
		return Candidate{}, fmt.Errorf("%w: language %s: %v", ErrEngineUnavailable, languageID, err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return Candidate{}, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, languageID, err)
	}

	// Mean word confidence; gosseract reports 0-100.
	var sum float64
	var words int
	if boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		for _, box := range boxes {
			if strings.TrimSpace(box.Word) == "" {
				continue
			}
			sum += box.Confidence
			words++
		}
	}
	mean := 0.0
	if words > 0 {
		mean = sum / float64(words) / 100.0
	}

	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}
	return Candidate{LanguageID: languageID, Text: strings.TrimSpace(text), MeanConfidence: mean}, nil
}
