package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floating-dictionary/src/ocr"
	"floating-dictionary/src/presenter"
	"floating-dictionary/src/screenshot"
	"floating-dictionary/src/translate"
)

type captureFunc func(ctx context.Context) (*screenshot.Capture, error)

func (f captureFunc) Capture(ctx context.Context) (*screenshot.Capture, error) { return f(ctx) }

type recognizeFunc func(ctx context.Context, img image.Image, set ocr.LanguageSet) (ocr.Result, error)

func (f recognizeFunc) Recognize(ctx context.Context, img image.Image, set ocr.LanguageSet) (ocr.Result, error) {
	return f(ctx, img, set)
}

type fakeTranslator struct {
	resp  translate.Response
	err   error
	calls atomic.Int32
}

func (f *fakeTranslator) Translate(ctx context.Context, req translate.Request) (translate.Response, error) {
	f.calls.Add(1)
	return f.resp, f.err
}

type fakeDictionary struct {
	entry *translate.DictionaryEntry
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeDictionary) Lookup(ctx context.Context, word string) (*translate.DictionaryEntry, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	e := *f.entry
	e.Headword = word
	return &e, nil
}

type recordingView struct {
	mu    sync.Mutex
	calls []string
	last  presenter.Content
}

func (v *recordingView) add(c string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, c)
}
func (v *recordingView) ShowLoading() { v.add("loading") }
func (v *recordingView) ShowResult(c presenter.Content) {
	v.mu.Lock()
	v.last = c
	v.mu.Unlock()
	v.add("result")
}
func (v *recordingView) ShowError(string) { v.add("error") }
func (v *recordingView) Close()           { v.add("close") }
func (v *recordingView) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

type recordingTarget struct {
	success *Session
	failure error
}

func (t *recordingTarget) OnSuccess(s *Session) error { t.success = s; return nil }
func (t *recordingTarget) OnFailure(err error) error  { t.failure = err; return nil }

var region = image.Rect(100, 100, 260, 140)

func capturedImage(ctx context.Context) (*screenshot.Capture, error) {
	return &screenshot.Capture{Image: image.NewGray(region), Region: region, Backend: screenshot.FreedesktopPortal}, nil
}

func recognizes(text string) recognizeFunc {
	return func(ctx context.Context, img image.Image, set ocr.LanguageSet) (ocr.Result, error) {
		return ocr.Result{Text: text, Winner: ocr.Candidate{LanguageID: set[0], Text: text, MeanConfidence: 0.9}}, nil
	}
}

type harness struct {
	view       *recordingView
	presenter  *presenter.Presenter
	translator *fakeTranslator
	dictionary *fakeDictionary
	target     *recordingTarget
	opts       Options
}

func newHarness(text string) *harness {
	h := &harness{
		view:       &recordingView{},
		translator: &fakeTranslator{resp: translate.Response{TranslatedText: "สวัสดี", ResolvedSourceLang: "en"}},
		dictionary: &fakeDictionary{entry: &translate.DictionaryEntry{
			Senses: []translate.Sense{{Word: "hello", PartOfSpeech: "int", Meaning: "สวัสดี", Dictionary: "Hope Dictionary"}},
		}},
		target: &recordingTarget{},
	}
	h.presenter = presenter.New(h.view, presenter.Options{Ceiling: 20 * time.Millisecond, ErrorDisplay: 20 * time.Millisecond})
	h.opts = Options{
		Deadline:       5 * time.Second,
		DictionaryWait: time.Second,
		TargetLang:     "th",
		Languages:      ocr.AutoSet("th"),
		Capture:        captureFunc(capturedImage),
		Recognize:      recognizes(text),
		Translate:      h.translator,
		Dictionary:     h.dictionary,
		Presenter:      h.presenter,
		Target:         h.target,
	}
	return h
}

func TestHelloToThai(t *testing.T) {
	h := newHarness("Hello")

	s, err := Execute(context.Background(), h.opts)
	require.NoError(t, err)

	assert.Equal(t, Done, s.Stage)
	assert.Equal(t, region, s.Region)
	assert.Equal(t, "Hello", s.OCRText)
	assert.Equal(t, "สวัสดี", s.TranslatedText)
	assert.Equal(t, "en", s.DetectedSourceLang)
	require.NotNil(t, s.Dictionary)
	assert.Equal(t, "Hello", s.Dictionary.Headword)
	assert.NotEqual(t, [16]byte{}, [16]byte(s.ID))

	assert.Equal(t, []string{"loading", "result", "close"}, h.view.Calls())
	assert.Equal(t, presenter.ReasonTimeout, h.presenter.Reason())
	assert.Same(t, s, h.target.success)
	assert.Equal(t, "Hello", h.view.last.Dictionary.Headword)
}

func TestCleansSingleWordBeforeTranslating(t *testing.T) {
	h := newHarness("  “Hello,”\n")
	s, err := Execute(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Equal(t, "Hello", s.OCRText)
	assert.Equal(t, int32(1), h.dictionary.calls.Load())
}

func TestUserCancelNeverLeavesHidden(t *testing.T) {
	h := newHarness("Hello")
	h.opts.Capture = captureFunc(func(ctx context.Context) (*screenshot.Capture, error) {
		return nil, screenshot.ErrUserCancelled
	})

	s, err := Execute(context.Background(), h.opts)
	assert.ErrorIs(t, err, ErrSelectionCancelled)
	assert.Equal(t, Done, s.Stage)
	assert.Nil(t, s.Err)
	assert.Equal(t, presenter.Hidden, h.presenter.State())
	assert.Empty(t, h.view.Calls())
	assert.Zero(t, h.translator.calls.Load())
	assert.ErrorIs(t, h.target.failure, ErrSelectionCancelled)
}

func TestMalformedPayloadFailsWithoutRetry(t *testing.T) {
	h := newHarness("Hello world")
	h.translator.err = &translate.Error{Op: "translate", Err: translate.ErrProtocolMismatch}

	s, err := Execute(context.Background(), h.opts)
	assert.ErrorIs(t, err, translate.ErrProtocolMismatch)
	assert.Equal(t, Failed, s.Stage)
	assert.ErrorIs(t, s.Err, translate.ErrProtocolMismatch)
	assert.Equal(t, int32(1), h.translator.calls.Load())
	assert.Equal(t, []string{"loading", "error", "close"}, h.view.Calls())
	assert.True(t, h.presenter.ShowingError())
}

func TestCaptureFailureShowsError(t *testing.T) {
	h := newHarness("Hello")
	h.opts.Capture = captureFunc(func(ctx context.Context) (*screenshot.Capture, error) {
		return nil, screenshot.ErrBackendFailed
	})

	s, err := Execute(context.Background(), h.opts)
	assert.ErrorIs(t, err, screenshot.ErrBackendFailed)
	assert.Equal(t, Failed, s.Stage)
	assert.Equal(t, []string{"error", "close"}, h.view.Calls())
}

func TestEngineUnavailableFailsSession(t *testing.T) {
	h := newHarness("")
	h.opts.Recognize = recognizeFunc(func(ctx context.Context, img image.Image, set ocr.LanguageSet) (ocr.Result, error) {
		return ocr.Result{}, ocr.ErrEngineUnavailable
	})

	s, err := Execute(context.Background(), h.opts)
	assert.ErrorIs(t, err, ocr.ErrEngineUnavailable)
	assert.Equal(t, Failed, s.Stage)
	assert.Zero(t, h.translator.calls.Load())
}

func TestDictionaryConditions(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		target string
		want   int32
	}{
		{"single english word to thai", "Hello", "th", 1},
		{"two words", "Hello world", "th", 0},
		{"target not thai", "Hello", "en", 0},
		{"not english", "Привет", "th", 0},
		{"empty text", "", "th", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.text)
			h.opts.TargetLang = tt.target
			s, err := Execute(context.Background(), h.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.dictionary.calls.Load())
			if tt.want == 0 {
				assert.Nil(t, s.Dictionary)
			}
		})
	}
}

func TestDictionaryFailureIsSwallowed(t *testing.T) {
	h := newHarness("Hello")
	h.dictionary.err = translate.ErrDictionaryUnavailable

	s, err := Execute(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Nil(t, s.Dictionary)
	assert.Equal(t, "สวัสดี", s.TranslatedText)
}

func TestSlowDictionaryDoesNotBlockPresentation(t *testing.T) {
	h := newHarness("Hello")
	h.dictionary.delay = time.Minute
	h.opts.DictionaryWait = 20 * time.Millisecond

	start := time.Now()
	s, err := Execute(context.Background(), h.opts)
	require.NoError(t, err)
	assert.Nil(t, s.Dictionary)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClosedInFlightDiscardsLateResults(t *testing.T) {
	h := newHarness("Hello")
	released := make(chan struct{})
	h.opts.Recognize = recognizeFunc(func(ctx context.Context, img image.Image, set ocr.LanguageSet) (ocr.Result, error) {
		<-ctx.Done()
		close(released)
		return ocr.Result{Text: "late"}, nil
	})

	go func() {
		for h.presenter.State() != presenter.Loading {
			time.Sleep(time.Millisecond)
		}
		h.presenter.Dismiss()
	}()

	s, err := Execute(context.Background(), h.opts)
	assert.ErrorIs(t, err, ErrPresenterClosed)
	<-released
	assert.Empty(t, s.OCRText)
	assert.Zero(t, h.translator.calls.Load())
	assert.Equal(t, []string{"loading", "close"}, h.view.Calls())
	assert.ErrorIs(t, h.target.failure, ErrPresenterClosed)
}

func TestParentCancelClosesWindow(t *testing.T) {
	h := newHarness("Hello")
	h.presenter = presenter.New(h.view, presenter.Options{Ceiling: time.Hour})
	h.opts.Presenter = h.presenter

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for h.presenter.State() != presenter.Presenting {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := Execute(ctx, h.opts)
	require.NoError(t, err)
	assert.Equal(t, presenter.ReasonAborted, h.presenter.Reason())
}

func TestRequiredOptions(t *testing.T) {
	_, err := Execute(context.Background(), Options{})
	assert.Error(t, err)
}

func TestClipboardTarget(t *testing.T) {
	var copied string
	target := ClipboardTarget{Enabled: true, Write: func(s string) error { copied = s; return nil }}
	require.NoError(t, target.OnSuccess(&Session{TranslatedText: "สวัสดี"}))
	assert.Equal(t, "สวัสดี", copied)

	copied = ""
	require.NoError(t, ClipboardTarget{Write: func(s string) error { copied = s; return nil }}.OnSuccess(&Session{TranslatedText: "x"}))
	assert.Empty(t, copied)
}

type fakeConn struct{ verdicts []string }

func (c *fakeConn) RespondOK() error              { c.verdicts = append(c.verdicts, "OK"); return nil }
func (c *fakeConn) RespondBusy() error            { c.verdicts = append(c.verdicts, "BUSY"); return nil }
func (c *fakeConn) RespondError(msg string) error { c.verdicts = append(c.verdicts, "ERROR "+msg); return nil }
func (c *fakeConn) Close() error                  { return nil }

func TestDelegatedTarget(t *testing.T) {
	conn := &fakeConn{}
	target := DelegatedTarget{Conn: conn}
	require.NoError(t, target.OnSuccess(&Session{}))
	require.NoError(t, target.OnFailure(ErrSelectionCancelled))
	require.NoError(t, target.OnFailure(errors.New("boom")))
	assert.Equal(t, []string{"OK", "OK", "ERROR boom"}, conn.verdicts)
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(ocr.ErrEngineUnavailable), "language models")
	assert.Contains(t, UserMessage(&translate.Error{Op: "translate", Err: translate.ErrServiceUnavailable}), "unavailable")
	assert.Contains(t, UserMessage(errors.New("x")), "x")
}
