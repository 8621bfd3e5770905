// Package presenter drives the result window: Hidden, Loading, Presenting
// and Closed. The state machine is independent of the toolkit; a View
// renders it.
package presenter

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"floating-dictionary/src/logutil"
)

type State int

const (
	Hidden State = iota
	Loading
	Presenting
	Closed
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Loading:
		return "loading"
	case Presenting:
		return "presenting"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Reason records why the presenter closed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonFocusLost
	ReasonDismissed
	ReasonTimeout
	ReasonAborted
)

func (r Reason) String() string {
	switch r {
	case ReasonFocusLost:
		return "focus_lost"
	case ReasonDismissed:
		return "dismissed"
	case ReasonTimeout:
		return "timeout"
	case ReasonAborted:
		return "aborted"
	default:
		return "none"
	}
}

// View renders presenter states. Calls arrive from arbitrary goroutines and
// must not call back into the Presenter synchronously.
type View interface {
	ShowLoading()
	ShowResult(Content)
	ShowError(message string)
	Close()
}

const (
	DefaultCeiling      = 60 * time.Second
	DefaultErrorDisplay = 3 * time.Second
)

type Options struct {
	// Ceiling closes a Presenting window after this long without interaction.
	Ceiling time.Duration
	// ErrorDisplay is the shorter ceiling used for the error indicator.
	ErrorDisplay time.Duration
}

// Presenter is safe for concurrent use. Every transition happens under mu;
// view calls are made after mu is released.
type Presenter struct {
	view View
	opts Options

	mu        sync.Mutex
	state     State
	errorMode bool
	armed     bool // focus gained at least once
	reason    Reason
	gen       uint64
	timer     *time.Timer
	done      chan struct{}

	logger zerolog.Logger
}

func New(view View, opts Options) *Presenter {
	if opts.Ceiling <= 0 {
		opts.Ceiling = DefaultCeiling
	}
	if opts.ErrorDisplay <= 0 {
		opts.ErrorDisplay = DefaultErrorDisplay
	}
	return &Presenter{
		view:   view,
		opts:   opts,
		done:   make(chan struct{}),
		logger: logutil.Component("presenter"),
	}
}

func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reason is ReasonNone until the presenter closes.
func (p *Presenter) Reason() Reason {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}

// ShowingError reports whether the window shows the error indicator.
func (p *Presenter) ShowingError() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errorMode
}

// Done is closed on the transition to Closed.
func (p *Presenter) Done() <-chan struct{} {
	return p.done
}

// Begin moves Hidden to Loading once a region has been captured.
func (p *Presenter) Begin() bool {
	p.mu.Lock()
	if p.state != Hidden {
		p.mu.Unlock()
		return false
	}
	p.setState(Loading)
	p.mu.Unlock()

	p.view.ShowLoading()
	return true
}

// Succeed moves Loading to Presenting. Results arriving in any other state
// are discarded and false is returned.
func (p *Presenter) Succeed(c Content) bool {
	p.mu.Lock()
	if p.state != Loading {
		p.logger.Debug().Stringer("state", p.state).Msg("discarding late result")
		p.mu.Unlock()
		return false
	}
	p.setState(Presenting)
	p.armTimer(p.opts.Ceiling)
	p.mu.Unlock()

	p.view.ShowResult(c)
	return true
}

// Fail shows the error indicator. It behaves like Presenting with the
// ErrorDisplay ceiling. Allowed from Hidden (capture failed) and Loading.
func (p *Presenter) Fail(message string) bool {
	p.mu.Lock()
	if p.state != Hidden && p.state != Loading {
		p.mu.Unlock()
		return false
	}
	p.errorMode = true
	p.setState(Presenting)
	p.armTimer(p.opts.ErrorDisplay)
	p.mu.Unlock()

	p.view.ShowError(message)
	return true
}

// FocusGained arms focus-loss handling. The capture tool owns focus while
// the user selects a region, so a loss before the first gain is ignored.
func (p *Presenter) FocusGained() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.armed {
		p.logger.Debug().Msg("focus gained")
	}
	p.armed = true
}

// FocusLost closes the window once focus has been gained.
func (p *Presenter) FocusLost() {
	p.mu.Lock()
	if !p.armed || (p.state != Loading && p.state != Presenting) {
		p.mu.Unlock()
		return
	}
	p.closeLocked(ReasonFocusLost)
}

// Dismiss is the explicit user close (Escape).
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	if p.state != Loading && p.state != Presenting {
		p.mu.Unlock()
		return
	}
	p.closeLocked(ReasonDismissed)
}

// Interact restarts the idle ceiling.
func (p *Presenter) Interact() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Presenting {
		return
	}
	if p.errorMode {
		p.armTimer(p.opts.ErrorDisplay)
		return
	}
	p.armTimer(p.opts.Ceiling)
}

// Abort closes from any state. A Hidden presenter closes without touching
// the view.
func (p *Presenter) Abort() {
	p.mu.Lock()
	if p.state == Closed {
		p.mu.Unlock()
		return
	}
	p.closeLocked(ReasonAborted)
}

func (p *Presenter) timeout(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.state != Presenting {
		p.mu.Unlock()
		return
	}
	p.closeLocked(ReasonTimeout)
}

// closeLocked is entered with mu held and releases it.
func (p *Presenter) closeLocked(reason Reason) {
	shown := p.state != Hidden
	p.reason = reason
	p.setState(Closed)
	p.stopTimer()
	close(p.done)
	p.mu.Unlock()

	p.logger.Info().Stringer("reason", reason).Msg("presenter closed")
	if shown {
		p.view.Close()
	}
}

func (p *Presenter) setState(s State) {
	p.logger.Debug().Stringer("from", p.state).Stringer("to", s).Msg("transition")
	p.state = s
}

func (p *Presenter) armTimer(d time.Duration) {
	p.stopTimer()
	gen := p.gen
	p.timer = time.AfterFunc(d, func() { p.timeout(gen) })
}

// stopTimer invalidates any pending timeout by bumping the generation.
func (p *Presenter) stopTimer() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
