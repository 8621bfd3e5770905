// Package fyneview renders the result window with fyne.
package fyneview

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"floating-dictionary/src/logutil"
	"floating-dictionary/src/presenter"
)

const windowTitle = "Floating Dictionary"

// Events receives the window's input. *presenter.Presenter implements it.
type Events interface {
	FocusGained()
	FocusLost()
	Dismiss()
	Interact()
}

type Options struct {
	// Display bounds the window size.
	Display image.Rectangle
	// Copy writes the translation to the clipboard on Ctrl+C.
	Copy func(string) error
}

// View is a presenter.View backed by a borderless fyne window. All widget
// work runs through fyne.Do.
type View struct {
	app  fyne.App
	opts Options

	mu      sync.Mutex
	events  Events
	win     fyne.Window
	copyOut string

	logger zerolog.Logger
}

func New(app fyne.App, opts Options) *View {
	if opts.Display.Empty() {
		opts.Display = image.Rect(0, 0, 1920, 1080)
	}
	return &View{app: app, opts: opts, logger: logutil.Component("view")}
}

// Bind routes window and application focus events to ev. The lifecycle
// hooks are per application, so binding a new session replaces the old one.
func (v *View) Bind(ev Events) {
	v.mu.Lock()
	v.events = ev
	v.mu.Unlock()

	lc := v.app.Lifecycle()
	lc.SetOnEnteredForeground(func() { v.emit(Events.FocusGained) })
	lc.SetOnExitedForeground(func() { v.emit(Events.FocusLost) })
}

func (v *View) emit(f func(Events)) {
	v.mu.Lock()
	ev := v.events
	v.mu.Unlock()
	if ev != nil {
		f(ev)
	}
}

func (v *View) ShowLoading() {
	fyne.Do(func() {
		progress := widget.NewProgressBarInfinite()
		label := widget.NewLabelWithStyle("Translating...", fyne.TextAlignCenter, fyne.TextStyle{})
		v.present(container.NewVBox(layoutSpacer(), progress, label), image.Pt(0, 0))
	})
}

func (v *View) ShowResult(c presenter.Content) {
	v.mu.Lock()
	v.copyOut = c.Translation
	v.mu.Unlock()

	fyne.Do(func() {
		body, natural := render(c.Blocks())
		v.present(container.NewVScroll(body), natural)
	})
}

func (v *View) ShowError(message string) {
	fyne.Do(func() {
		icon := widget.NewIcon(theme.ErrorIcon())
		label := widget.NewLabel(message)
		label.Wrapping = fyne.TextWrapWord
		v.present(container.NewBorder(nil, nil, icon, nil, label), image.Pt(0, 0))
	})
}

func (v *View) Close() {
	fyne.Do(func() {
		v.mu.Lock()
		win := v.win
		v.win = nil
		v.mu.Unlock()
		if win != nil {
			win.Close()
		}
	})
}

// present must run on the fyne thread.
func (v *View) present(content fyne.CanvasObject, natural image.Point) {
	v.mu.Lock()
	win := v.win
	v.mu.Unlock()
	if win == nil {
		win = v.newWindow()
		v.mu.Lock()
		v.win = win
		v.mu.Unlock()
	}

	size := presenter.Fit(natural, v.opts.Display)
	win.SetContent(content)
	win.Resize(fyne.NewSize(float32(size.X), float32(size.Y)))
	win.CenterOnScreen()
	win.Show()
	win.RequestFocus()
	v.logger.Debug().Int("w", size.X).Int("h", size.Y).Msg("window presented")
}

func (v *View) newWindow() fyne.Window {
	var win fyne.Window
	if drv, ok := v.app.Driver().(desktop.Driver); ok {
		win = drv.CreateSplashWindow()
	} else {
		win = v.app.NewWindow(windowTitle)
	}
	win.SetTitle(windowTitle)
	win.SetPadded(true)

	c := win.Canvas()
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			v.emit(Events.Dismiss)
			return
		}
		v.emit(Events.Interact)
	})
	c.AddShortcut(&fyne.ShortcutCopy{}, func(fyne.Shortcut) {
		v.emit(Events.Interact)
		v.copyTranslation()
	})
	win.SetOnClosed(func() {
		v.mu.Lock()
		if v.win == win {
			v.win = nil
		}
		v.mu.Unlock()
		v.emit(Events.Dismiss)
	})
	return win
}

func (v *View) copyTranslation() {
	v.mu.Lock()
	text := v.copyOut
	v.mu.Unlock()
	if text == "" || v.opts.Copy == nil {
		return
	}
	if err := v.opts.Copy(text); err != nil {
		v.logger.Warn().Err(err).Msg("copy failed")
		return
	}
	v.logger.Debug().Int("bytes", len(text)).Msg("translation copied")
}

func layoutSpacer() fyne.CanvasObject {
	return widget.NewLabel("")
}
