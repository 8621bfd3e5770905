package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"floating-dictionary/src/logutil"
)

// Result is the merged outcome of an ensemble run.
type Result struct {
	Text       string
	Winner     Candidate
	Candidates []Candidate
}

// Ensemble runs one Engine per language concurrently and keeps the most
// confident hypothesis.
type Ensemble struct {
	Engine  Engine
	Workers int // <=0 means NumCPU
}

func NewEnsemble(engine Engine, workers int) *Ensemble {
	return &Ensemble{Engine: engine, Workers: workers}
}

// Recognize fans out over set and reduces by max confidence. An image with
// no text yields an empty Result and no error.
func (e *Ensemble) Recognize(ctx context.Context, img image.Image, set LanguageSet) (Result, error) {
	logger := logutil.Component("ocr")
	if e.Engine == nil {
		return Result{}, fmt.Errorf("%w: no engine configured", ErrEngineUnavailable)
	}
	if len(set) == 0 {
		return Result{}, errors.New("empty OCR language set")
	}

	data, err := Prepare(img)
	if err != nil {
		return Result{}, err
	}

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	// Each worker writes only its own slot; data is shared read-only.
	candidates := make([]Candidate, len(set))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, lang := range set {
		g.Go(func() error {
			c, err := e.Engine.Recognize(gctx, data, lang)
			if err != nil {
				return fmt.Errorf("recognize %s: %w", lang, err)
			}
			c.LanguageID = lang
			candidates[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}

	winner, ok := Best(candidates)
	for _, c := range candidates {
		logger.Debug().
			Str("lang", c.LanguageID).
			Float64("confidence", c.MeanConfidence).
			Str("text", logutil.SanitizeForLog(c.Text)).
			Msg("candidate")
	}
	if !ok {
		logger.Info().Str("set", set.String()).Dur("took", time.Since(start)).Msg("no text recognized")
		return Result{Candidates: candidates}, nil
	}
	logger.Info().
		Str("winner", winner.LanguageID).
		Float64("confidence", winner.MeanConfidence).
		Dur("took", time.Since(start)).
		Msg("ensemble finished")
	return Result{Text: winner.Text, Winner: winner, Candidates: candidates}, nil
}

// Best returns the non-empty candidate with the highest mean confidence.
// Ties go to the earliest candidate, so the result follows the language set
// order. ok is false when every candidate is empty.
func Best(candidates []Candidate) (best Candidate, ok bool) {
	for _, c := range candidates {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if !ok || c.MeanConfidence > best.MeanConfidence {
			best, ok = c, true
		}
	}
	return best, ok
}
