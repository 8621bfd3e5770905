package main

import (
	"context"
	"os"
	"os/exec"

	"fyne.io/fyne/v2"

	"floating-dictionary/src/clipboard"
	"floating-dictionary/src/config"
	"floating-dictionary/src/logutil"
	"floating-dictionary/src/ocr"
	"floating-dictionary/src/presenter"
	"floating-dictionary/src/presenter/fyneview"
	"floating-dictionary/src/screenshot"
	"floating-dictionary/src/session"
	"floating-dictionary/src/translate"
)

// pipeline holds the long-lived collaborators of every session. Only the
// presenter is created per session.
type pipeline struct {
	cfg   *config.Config
	langs ocr.LanguageSet

	capture    session.Capturer
	recognize  session.Recognizer
	translate  session.Translator
	dictionary session.Dictionary
	view       *fyneview.View
}

func newPipeline(cfg *config.Config, langs ocr.LanguageSet, a fyne.App) *pipeline {
	logger := logutil.Component("main")

	backend := screenshot.Detect(screenshot.Environment{Getenv: os.Getenv, LookPath: exec.LookPath})
	logger.Info().Stringer("backend", backend.Kind()).Msg("screenshot backend selected")

	display, err := screenshot.GetDisplayBounds()
	if err != nil {
		logger.Debug().Err(err).Msg("display bounds unavailable, using fallback")
		display = screenshot.FallbackDisplay
	}

	return &pipeline{
		cfg:       cfg,
		langs:     langs,
		capture:   backend,
		recognize: ocr.NewEnsemble(ocr.NewTesseract(cfg.TessdataDir), cfg.OCRWorkers),
		translate: translate.NewClient(translate.Config{
			BaseURL:    cfg.TranslateURL,
			Timeout:    cfg.HTTPTimeout,
			RetryDelay: cfg.RetryDelay,
		}),
		dictionary: translate.NewDictionaryClient(cfg.DictionaryURL, cfg.HTTPTimeout, nil),
		view:       fyneview.New(a, fyneview.Options{Display: display, Copy: clipboard.Write}),
	}
}

func (p *pipeline) clipboardTarget() session.ResultTarget {
	return session.ClipboardTarget{Enabled: p.cfg.CopyTranslation}
}

// run executes one session and returns once its window has closed.
func (p *pipeline) run(ctx context.Context, target session.ResultTarget) error {
	pres := presenter.New(p.view, presenter.Options{
		Ceiling:      p.cfg.PresentCeiling,
		ErrorDisplay: p.cfg.ErrorDisplay,
	})
	p.view.Bind(pres)

	s, err := session.Execute(ctx, session.Options{
		Deadline:       p.cfg.OCRDeadline,
		DictionaryWait: p.cfg.DictionaryWait,
		TargetLang:     p.cfg.TargetLang,
		Languages:      p.langs,
		Capture:        p.capture,
		Recognize:      p.recognize,
		Translate:      p.translate,
		Dictionary:     p.dictionary,
		Presenter:      pres,
		Target:         target,
	})
	if s != nil {
		logutil.Component("main").Debug().
			Str("session", s.ID.String()).
			Stringer("stage", s.Stage).
			Stringer("reason", pres.Reason()).
			Msg("session closed")
	}
	return err
}
