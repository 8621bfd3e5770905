package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEngineUnavailable means the recognizer could not be initialised, e.g.
// model data is missing. It is fatal for the session.
var ErrEngineUnavailable = errors.New("OCR engine unavailable")

// Candidate is one model's hypothesis for the whole image.
type Candidate struct {
	LanguageID     string
	Text           string
	MeanConfidence float64 // 0.0 - 1.0
}

// Engine runs a single language model over an encoded image.
type Engine interface {
	Recognize(ctx context.Context, image []byte, languageID string) (Candidate, error)
}

// CheckModels verifies that a .traineddata file exists in dir for every id.
func CheckModels(dir string, set LanguageSet) error {
	if dir == "" {
		return nil
	}
	for _, id := range set {
		path := filepath.Join(dir, id+".traineddata")
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: model %s not found in %s", ErrEngineUnavailable, id, dir)
		}
	}
	return nil
}
