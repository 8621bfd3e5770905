package eventloop

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"floating-dictionary/src/logutil"
	"floating-dictionary/src/session"
	"floating-dictionary/src/singleinstance"
)

// Runner runs one complete session and returns when its window has closed.
type Runner func(ctx context.Context, target session.ResultTarget) error

// Source names what asked for a capture.
type Source string

const (
	SourceHotkey    Source = "hotkey"
	SourceTray      Source = "tray"
	SourceDelegated Source = "delegated"
)

// Loop is the single coordinator of the resident instance. At most one
// session runs at a time; a trigger that arrives while one is active is
// rejected, never queued.
type Loop struct {
	run    Runner
	srv    singleinstance.Server
	target session.ResultTarget

	triggers chan Source
	finished chan error
	busy     bool

	// OnBusy is called on the loop goroutine for every rejected trigger.
	OnBusy func(Source)

	logger zerolog.Logger
}

// New creates a loop. srv may be nil to accept only local triggers; target
// receives the outcome of hotkey and tray sessions.
func New(run Runner, srv singleinstance.Server, target session.ResultTarget) *Loop {
	return &Loop{
		run:      run,
		srv:      srv,
		target:   target,
		triggers: make(chan Source, 4),
		finished: make(chan error, 1),
		logger:   logutil.Component("eventloop"),
	}
}

// Trigger posts a capture request from the hotkey or the tray. It never
// blocks; bursts beyond the buffer are dropped.
func (l *Loop) Trigger(src Source) {
	select {
	case l.triggers <- src:
	default:
		l.logger.Debug().Str("source", string(src)).Msg("trigger dropped")
	}
}

// Run processes triggers and delegated requests until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	reqCh := make(chan singleinstance.Conn, 4)
	if l.srv != nil {
		if err := l.srv.Start(ctx); err != nil {
			return err
		}
		defer l.srv.Close()
		l.logger.Info().Int("port", l.srv.Port()).Msg("resident listening")

		// Accept loop in background to avoid blocking trigger handling
		go func() {
			for {
				conn, err := l.srv.Next(ctx)
				if err != nil {
					return
				}
				select {
				case reqCh <- conn:
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			if l.busy {
				// Let the running session observe cancellation and close.
				<-l.finished
			}
			return ctx.Err()
		case src := <-l.triggers:
			l.start(ctx, src, l.target, nil)
		case conn := <-reqCh:
			l.handleConn(ctx, conn)
		case err := <-l.finished:
			l.busy = false
			l.logFinished(err)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	l.start(ctx, SourceDelegated, session.DelegatedTarget{Conn: conn, Next: l.target}, conn)
}

// start runs target's session unless one is active. conn is the delegated
// client, if any; it is answered BUSY on rejection and closed when done.
func (l *Loop) start(ctx context.Context, src Source, target session.ResultTarget, conn singleinstance.Conn) {
	if l.busy {
		l.logger.Info().Str("source", string(src)).Msg("busy, rejecting trigger")
		if conn != nil {
			_ = conn.RespondBusy()
			_ = conn.Close()
		}
		if l.OnBusy != nil {
			l.OnBusy(src)
		}
		return
	}

	l.busy = true
	l.logger.Info().Str("source", string(src)).Msg("starting session")
	go func() {
		err := l.run(ctx, target)
		if conn != nil {
			_ = conn.Close()
		}
		l.finished <- err
	}()
}

func (l *Loop) logFinished(err error) {
	switch {
	case err == nil:
		l.logger.Info().Msg("session finished")
	case errors.Is(err, session.ErrSelectionCancelled), errors.Is(err, session.ErrPresenterClosed):
		l.logger.Info().Err(err).Msg("session ended early")
	case errors.Is(err, context.Canceled):
		l.logger.Debug().Msg("session cancelled")
	default:
		l.logger.Warn().Err(err).Msg("session failed")
	}
}
