package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"floating-dictionary/src/logutil"
	"floating-dictionary/src/ocr"
	"floating-dictionary/src/presenter"
	"floating-dictionary/src/screenshot"
	"floating-dictionary/src/translate"
)

var (
	// ErrSelectionCancelled is returned when the user aborts region
	// selection. It matches screenshot.ErrUserCancelled.
	ErrSelectionCancelled = screenshot.ErrUserCancelled

	// ErrPresenterClosed is returned when the window closed while the
	// pipeline was still running. Late results are discarded.
	ErrPresenterClosed = errors.New("result window closed before the pipeline finished")
)

const (
	defaultDeadline       = 30 * time.Second
	defaultDictionaryWait = 1500 * time.Millisecond
)

type Stage int

const (
	Capturing Stage = iota
	Recognizing
	Translating
	Presenting
	Done
	Failed
)

func (s Stage) String() string {
	switch s {
	case Capturing:
		return "capturing"
	case Recognizing:
		return "recognizing"
	case Translating:
		return "translating"
	case Presenting:
		return "presenting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the record of one pipeline run. It is owned by Execute and
// must not be read until Execute returns.
type Session struct {
	ID                 uuid.UUID
	Region             image.Rectangle
	OCRText            string
	DetectedSourceLang string
	TranslatedText     string
	Dictionary         *translate.DictionaryEntry
	Stage              Stage
	Err                error
}

type Capturer interface {
	Capture(ctx context.Context) (*screenshot.Capture, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, set ocr.LanguageSet) (ocr.Result, error)
}

type Translator interface {
	Translate(ctx context.Context, req translate.Request) (translate.Response, error)
}

type Dictionary interface {
	Lookup(ctx context.Context, word string) (*translate.DictionaryEntry, error)
}

// Presenter is the subset of *presenter.Presenter the pipeline drives.
type Presenter interface {
	Begin() bool
	Succeed(presenter.Content) bool
	Fail(message string) bool
	Abort()
	Done() <-chan struct{}
}

// ResultTarget is told about the outcome as soon as it is known, before the
// window closes.
type ResultTarget interface {
	OnSuccess(s *Session) error
	OnFailure(err error) error
}

type Options struct {
	// Deadline bounds recognition and translation together.
	Deadline time.Duration
	// DictionaryWait is how long presentation waits for the dictionary
	// after the translation has arrived.
	DictionaryWait time.Duration
	TargetLang     string
	Languages      ocr.LanguageSet

	Capture    Capturer
	Recognize  Recognizer
	Translate  Translator
	Dictionary Dictionary // optional
	Presenter  Presenter
	Target     ResultTarget // optional
}

// Execute runs capture, recognition, translation and presentation in order
// and returns when the result window has closed. A cancelled selection
// returns ErrSelectionCancelled without ever showing the window.
func Execute(ctx context.Context, opts Options) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Deadline <= 0 {
		opts.Deadline = defaultDeadline
	}
	if opts.DictionaryWait <= 0 {
		opts.DictionaryWait = defaultDictionaryWait
	}

	s := &Session{ID: uuid.New(), Stage: Capturing}
	r := &run{opts: opts, s: s, logger: logutil.Component("session").With().Str("session", s.ID.String()).Logger()}
	return s, r.execute(ctx)
}

func (o Options) validate() error {
	switch {
	case o.Capture == nil:
		return errors.New("Capture is required")
	case o.Recognize == nil:
		return errors.New("Recognize is required")
	case o.Translate == nil:
		return errors.New("Translate is required")
	case o.Presenter == nil:
		return errors.New("Presenter is required")
	case len(o.Languages) == 0:
		return errors.New("Languages must not be empty")
	case o.TargetLang == "":
		return errors.New("TargetLang is required")
	}
	return nil
}

type run struct {
	opts   Options
	s      *Session
	logger zerolog.Logger
}

func (r *run) execute(ctx context.Context) error {
	p := r.opts.Presenter
	r.logger.Info().Str("languages", r.opts.Languages.String()).Str("target", r.opts.TargetLang).Msg("session started")

	capture, err := r.opts.Capture.Capture(ctx)
	if errors.Is(err, screenshot.ErrUserCancelled) {
		// Silent: the presenter never leaves Hidden.
		r.s.Stage = Done
		r.logger.Info().Msg("selection cancelled")
		r.notifyFailure(ErrSelectionCancelled)
		return ErrSelectionCancelled
	}
	if err != nil {
		return r.fail(ctx, err)
	}
	r.s.Region = capture.Region
	r.logger.Debug().Stringer("backend", capture.Backend).Stringer("region", capture.Region).Msg("region captured")
	p.Begin()

	runCtx, cancel := context.WithTimeout(ctx, r.opts.Deadline)
	defer cancel()
	go func() {
		select {
		case <-p.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	r.s.Stage = Recognizing
	result, err := r.opts.Recognize.Recognize(runCtx, capture.Image, r.opts.Languages)
	capture.Release()
	if closed(p) {
		return r.discard()
	}
	if err != nil {
		return r.fail(ctx, err)
	}
	text := ocr.CleanText(result.Text)
	r.s.OCRText = text
	r.logger.Info().Str("text", logutil.SanitizeForLog(text)).Str("winner", result.Winner.LanguageID).Msg("text recognized")

	r.s.Stage = Translating
	var lookup <-chan *translate.DictionaryEntry
	if r.opts.Dictionary != nil && translate.WantsDictionary(text, r.opts.TargetLang) {
		lookup = r.lookup(runCtx, text)
	}

	resp, err := r.opts.Translate.Translate(runCtx, translate.Request{Text: text, TargetLang: r.opts.TargetLang})
	if closed(p) {
		return r.discard()
	}
	if err != nil {
		return r.fail(ctx, err)
	}
	r.s.TranslatedText = resp.TranslatedText
	r.s.DetectedSourceLang = resp.ResolvedSourceLang

	if lookup != nil {
		r.s.Dictionary = r.join(runCtx, lookup)
		if closed(p) {
			return r.discard()
		}
	}

	r.s.Stage = Presenting
	content := presenter.Content{
		SearchText:  text,
		SourceLang:  r.s.DetectedSourceLang,
		TargetLang:  r.opts.TargetLang,
		Translation: r.s.TranslatedText,
		Dictionary:  r.s.Dictionary,
	}
	if !p.Succeed(content) {
		return r.discard()
	}
	if r.opts.Target != nil {
		if err := r.opts.Target.OnSuccess(r.s); err != nil {
			r.logger.Warn().Err(err).Msg("result target failed")
		}
	}

	r.wait(ctx)
	r.s.Stage = Done
	r.logger.Info().Msg("session finished")
	return nil
}

// lookup runs the dictionary query detached from translation. The channel
// is buffered so an abandoned lookup never blocks.
func (r *run) lookup(ctx context.Context, word string) <-chan *translate.DictionaryEntry {
	out := make(chan *translate.DictionaryEntry, 1)
	go func() {
		entry, err := r.opts.Dictionary.Lookup(ctx, word)
		if err != nil {
			r.logger.Debug().Err(err).Msg("dictionary lookup failed")
			entry = nil
		}
		if entry.Empty() {
			entry = nil
		}
		out <- entry
	}()
	return out
}

func (r *run) join(ctx context.Context, lookup <-chan *translate.DictionaryEntry) *translate.DictionaryEntry {
	timer := time.NewTimer(r.opts.DictionaryWait)
	defer timer.Stop()
	select {
	case entry := <-lookup:
		return entry
	case <-timer.C:
		r.logger.Debug().Dur("waited", r.opts.DictionaryWait).Msg("presenting without dictionary")
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (r *run) fail(ctx context.Context, err error) error {
	r.s.Stage = Failed
	r.s.Err = err
	r.logger.Error().Err(err).Msg("session failed")
	r.notifyFailure(err)
	if r.opts.Presenter.Fail(UserMessage(err)) {
		r.wait(ctx)
	}
	return err
}

func (r *run) discard() error {
	r.s.Stage = Done
	r.logger.Info().Msg("window closed in flight, discarding results")
	r.notifyFailure(ErrPresenterClosed)
	return ErrPresenterClosed
}

func (r *run) notifyFailure(err error) {
	if r.opts.Target == nil {
		return
	}
	if terr := r.opts.Target.OnFailure(err); terr != nil {
		r.logger.Warn().Err(terr).Msg("result target failed")
	}
}

// wait blocks until the window closes. Cancelling ctx closes it.
func (r *run) wait(ctx context.Context) {
	p := r.opts.Presenter
	select {
	case <-p.Done():
	case <-ctx.Done():
		p.Abort()
	}
}

func closed(p Presenter) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

// UserMessage is the short text shown in the error indicator.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, screenshot.ErrEnvironmentUnsupported):
		return "No screenshot backend is available on this desktop."
	case errors.Is(err, screenshot.ErrBackendFailed):
		return "Screenshot failed."
	case errors.Is(err, ocr.ErrEngineUnavailable):
		return "Text recognition is unavailable. Are the language models installed?"
	case errors.Is(err, translate.ErrServiceUnavailable):
		return "Translation service unavailable."
	case errors.Is(err, translate.ErrProtocolMismatch):
		return "Unexpected response from the translation service."
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
