package presenter

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floating-dictionary/src/translate"
)

type fakeView struct {
	mu      sync.Mutex
	calls   []string
	content Content
	errMsg  string
}

func (v *fakeView) record(call string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, call)
}

func (v *fakeView) ShowLoading() { v.record("loading") }

func (v *fakeView) ShowResult(c Content) {
	v.mu.Lock()
	v.content = c
	v.mu.Unlock()
	v.record("result")
}

func (v *fakeView) ShowError(msg string) {
	v.mu.Lock()
	v.errMsg = msg
	v.mu.Unlock()
	v.record("error")
}

func (v *fakeView) Close() { v.record("close") }

func (v *fakeView) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

func waitClosed(t *testing.T, p *Presenter, within time.Duration) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(within):
		t.Fatalf("presenter still %s after %s", p.State(), within)
	}
}

func TestHiddenUntilBegin(t *testing.T) {
	view := &fakeView{}
	p := New(view, Options{})
	assert.Equal(t, Hidden, p.State())

	// Focus and dismissal events have no effect while hidden.
	p.FocusGained()
	p.FocusLost()
	p.Dismiss()
	p.Interact()
	assert.Equal(t, Hidden, p.State())
	assert.False(t, p.Succeed(Content{}))
	assert.Equal(t, Hidden, p.State())
	assert.Empty(t, view.Calls())
}

func TestAbortWhileHiddenNeverShowsWindow(t *testing.T) {
	view := &fakeView{}
	p := New(view, Options{})
	p.Abort()
	assert.Equal(t, Closed, p.State())
	assert.Equal(t, ReasonAborted, p.Reason())
	assert.Empty(t, view.Calls())
	waitClosed(t, p, time.Second)
}

func TestPresentThenFocusLossClosesImmediately(t *testing.T) {
	view := &fakeView{}
	p := New(view, Options{Ceiling: time.Minute})

	require.True(t, p.Begin())
	assert.Equal(t, Loading, p.State())
	require.True(t, p.Succeed(Content{SearchText: "Hello", Translation: "สวัสดี", TargetLang: "th"}))
	assert.Equal(t, Presenting, p.State())

	p.FocusGained()
	p.FocusLost()
	assert.Equal(t, Closed, p.State())
	assert.Equal(t, ReasonFocusLost, p.Reason())
	waitClosed(t, p, 10*time.Millisecond)
	assert.Equal(t, []string{"loading", "result", "close"}, view.Calls())
	assert.Equal(t, "Hello", view.content.SearchText)
}

func TestFocusLossBeforeFirstGainIgnored(t *testing.T) {
	p := New(&fakeView{}, Options{})
	p.Begin()
	p.Succeed(Content{})
	p.FocusLost()
	assert.Equal(t, Presenting, p.State())
	p.Abort()
}

func TestFocusLossDuringLoadingCloses(t *testing.T) {
	view := &fakeView{}
	p := New(view, Options{})
	p.Begin()
	p.FocusGained()
	p.FocusLost()
	assert.Equal(t, Closed, p.State())

	// The pipeline finishing afterwards is discarded.
	assert.False(t, p.Succeed(Content{SearchText: "late"}))
	assert.False(t, p.Fail("late"))
	assert.Equal(t, []string{"loading", "close"}, view.Calls())
}

func TestDismiss(t *testing.T) {
	view := &fakeView{}
	p := New(view, Options{})
	p.Begin()
	p.Succeed(Content{})
	p.Dismiss()
	assert.Equal(t, ReasonDismissed, p.Reason())

	// Closed is terminal.
	p.Dismiss()
	p.Abort()
	assert.False(t, p.Begin())
	assert.Equal(t, ReasonDismissed, p.Reason())
	assert.Equal(t, []string{"loading", "result", "close"}, view.Calls())
}

func TestCeilingTimeout(t *testing.T) {
	p := New(&fakeView{}, Options{Ceiling: 20 * time.Millisecond})
	p.Begin()
	p.Succeed(Content{})
	waitClosed(t, p, time.Second)
	assert.Equal(t, ReasonTimeout, p.Reason())
}

func TestInteractionRestartsCeiling(t *testing.T) {
	p := New(&fakeView{}, Options{Ceiling: 200 * time.Millisecond})
	p.Begin()
	p.Succeed(Content{})

	time.Sleep(120 * time.Millisecond)
	p.Interact()
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, Presenting, p.State())

	waitClosed(t, p, time.Second)
	assert.Equal(t, ReasonTimeout, p.Reason())
}

func TestLoadingHasNoCeiling(t *testing.T) {
	p := New(&fakeView{}, Options{Ceiling: 10 * time.Millisecond})
	p.Begin()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, Loading, p.State())
	p.Abort()
}

func TestFailShowsShortLivedError(t *testing.T) {
	view := &fakeView{}
	p := New(view, Options{Ceiling: time.Minute, ErrorDisplay: 20 * time.Millisecond})
	p.Begin()
	require.True(t, p.Fail("translation failed"))
	assert.Equal(t, Presenting, p.State())
	assert.True(t, p.ShowingError())

	waitClosed(t, p, time.Second)
	assert.Equal(t, ReasonTimeout, p.Reason())
	assert.Equal(t, []string{"loading", "error", "close"}, view.Calls())
	assert.Equal(t, "translation failed", view.errMsg)
}

func TestFailFromHidden(t *testing.T) {
	view := &fakeView{}
	p := New(view, Options{ErrorDisplay: time.Minute})
	require.True(t, p.Fail("capture failed"))
	assert.True(t, p.ShowingError())
	p.Dismiss()
	assert.Equal(t, []string{"error", "close"}, view.Calls())
}

func TestStaleTimerIgnored(t *testing.T) {
	p := New(&fakeView{}, Options{Ceiling: time.Minute})
	p.Begin()
	p.Succeed(Content{})

	p.mu.Lock()
	stale := p.gen - 1
	p.mu.Unlock()
	p.timeout(stale)
	assert.Equal(t, Presenting, p.State())
	p.Abort()
}

func TestBlocks(t *testing.T) {
	c := Content{
		SearchText:  "Hello",
		SourceLang:  "en",
		TargetLang:  "th",
		Translation: "สวัสดี",
		Dictionary: &translate.DictionaryEntry{
			Headword: "Hello",
			Senses:   []translate.Sense{{Word: "hello", PartOfSpeech: "int", Meaning: "สวัสดี", Dictionary: "Hope Dictionary"}},
			Examples: []translate.Example{{Source: "a", Target: "ก"}, {Source: "b", Target: "ข"}, {Source: "c", Target: "ค"}},
		},
	}
	blocks := c.Blocks()
	require.Len(t, blocks, 10)
	assert.Equal(t, Block{Kind: Heading, Text: "Hello"}, blocks[0])
	assert.Equal(t, "Google (TH):", blocks[1].Text)
	assert.Equal(t, "Longdo Dict:", blocks[3].Text)
	assert.Equal(t, "[int]", blocks[4].Detail)
	assert.Equal(t, "Example Sentences (Longdo):", blocks[5].Text)
	assert.Equal(t, "EN: a", blocks[6].Text)
	assert.Equal(t, "-> TH: ข", blocks[9].Text)
	assert.Contains(t, c.PlainText(), "• สวัสดี")
}

func TestBlocksWithoutDictionary(t *testing.T) {
	blocks := Content{SearchText: "Привет мир", TargetLang: "th", Translation: "x"}.Blocks()
	assert.Len(t, blocks, 3)
}

func TestBlocksEmptyText(t *testing.T) {
	blocks := Content{TargetLang: "th"}.Blocks()
	assert.Equal(t, "No text recognized", blocks[0].Text)
}

func TestFit(t *testing.T) {
	display := image.Rect(0, 0, 1920, 1080)
	assert.Equal(t, image.Pt(400, 150), Fit(image.Pt(100, 20), display))
	assert.Equal(t, image.Pt(520, 310), Fit(image.Pt(520, 310), display))
	assert.Equal(t, image.Pt(800, 600), Fit(image.Pt(2000, 2000), display))
	assert.Equal(t, image.Pt(640, 480), Fit(image.Pt(2000, 2000), image.Rect(0, 0, 640, 480)))
	assert.Equal(t, image.Pt(400, 150), Fit(image.Pt(0, 0), image.Rectangle{}))
}
