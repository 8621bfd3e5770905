// Package runtimeinit performs the startup shared by every binary: load
// configuration, set up logging and resolve the OCR language set.
package runtimeinit

import (
	"fmt"

	"floating-dictionary/src/clipboard"
	"floating-dictionary/src/config"
	"floating-dictionary/src/logutil"
	"floating-dictionary/src/ocr"
)

type Options struct {
	LoadOptions config.LoadOptions
	Verbose     bool
	// NoFileLogging keeps file logging off regardless of configuration.
	NoFileLogging bool
}

type Runtime struct {
	Config    *config.Config
	Languages ocr.LanguageSet
}

// Bootstrap returns an error for usage problems (bad target or OCR
// language) before anything is captured. Missing model files and an
// unusable clipboard are only logged; sessions report them when they matter.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logutil.Setup(logutil.Options{
		EnableFileLogging: cfg.EnableFileLogging && !opts.NoFileLogging,
		Verbose:           opts.Verbose,
		Level:             cfg.LogLevel,
	})
	logger := logutil.Component("runtimeinit")

	if err := ocr.ValidateTarget(cfg.TargetLang); err != nil {
		return nil, err
	}
	langs, err := ocr.ResolveLanguageSet(cfg.OCRLang, cfg.TargetLang)
	if err != nil {
		return nil, err
	}

	if err := ocr.CheckModels(cfg.TessdataDir, langs); err != nil {
		logger.Warn().Err(err).Msg("OCR models missing")
	}
	if cfg.CopyTranslation {
		if err := clipboard.Init(); err != nil {
			logger.Warn().Err(err).Msg("clipboard unavailable, translations will not be copied")
		}
	}

	logger.Info().
		Str("target", cfg.TargetLang).
		Str("languages", langs.String()).
		Str("tessdata", cfg.TessdataDir).
		Msg("runtime initialized")
	return &Runtime{Config: cfg, Languages: langs}, nil
}
