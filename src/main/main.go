package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"floating-dictionary/src/config"
	"floating-dictionary/src/eventloop"
	"floating-dictionary/src/hotkey"
	"floating-dictionary/src/logutil"
	"floating-dictionary/src/ocr"
	"floating-dictionary/src/runtimeinit"
	"floating-dictionary/src/screenshot"
	"floating-dictionary/src/session"
	"floating-dictionary/src/singleinstance"
	"floating-dictionary/src/tray"
)

const (
	appID = "com.github.floating-dictionary"

	exitOK          = 0
	exitFailure     = 1
	exitUnsupported = 2
)

var errResidentBusy = errors.New("resident instance is busy")

type mainOptions struct {
	ocrLang  string
	target   string
	resident bool
	verbose  bool
}

func main() {
	err := runWithArgs(os.Args)
	code := exitCode(err)
	if code != exitOK {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"floating-dictionary"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "floating-dictionary",
		Short:         "Select a screen region, recognize its text and show a translation",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts)
		},
	}

	cmd.Flags().StringVar(&opts.ocrLang, "ocr-lang", ocr.Auto, "OCR model id, or auto to run every model except the target's")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "translation target language (BCP 47, default from TARGET_LANG or th)")
	cmd.Flags().BoolVar(&opts.resident, "resident", false, "stay running with a tray icon and global hotkey")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	return cmd
}

// exitCode maps the outcome of a run onto the process exit status. A
// cancelled selection or a window closed before the result is a success.
func exitCode(err error) int {
	switch {
	case err == nil,
		errors.Is(err, session.ErrSelectionCancelled),
		errors.Is(err, session.ErrPresenterClosed),
		errors.Is(err, context.Canceled):
		return exitOK
	case errors.Is(err, screenshot.ErrEnvironmentUnsupported):
		return exitUnsupported
	default:
		return exitFailure
	}
}

func runWithOptions(ctx context.Context, opts mainOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			TargetOverride:  opts.target,
			OCRLangOverride: opts.ocrLang,
		},
		Verbose: opts.verbose,
	})
	if err != nil {
		return err
	}
	cfg, langs := rt.Config, rt.Languages
	logger := logutil.Component("main")
	logger.Info().Bool("resident", opts.resident).Msg("starting")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.resident {
		return runResident(ctx, cfg, langs)
	}

	handled, err := delegate(ctx, singleinstance.NewClient(cfg.ResidentPort), os.Stdout)
	if handled {
		return err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("delegation failed, running standalone")
	}
	return runStandalone(ctx, cfg, langs)
}

// delegate hands the capture to a running resident instance. handled is
// false when no resident answered and the caller should run the pipeline
// itself.
func delegate(ctx context.Context, client singleinstance.Client, out io.Writer) (handled bool, err error) {
	logger := logutil.Component("main")
	delegated, v, err := client.TryCapture(ctx)
	if !delegated {
		logger.Debug().Msg("no resident instance")
		return false, err
	}
	if err != nil {
		return true, fmt.Errorf("resident did not answer: %w", err)
	}
	logger.Info().Stringer("verdict", v.Status).Msg("delegated to resident")
	fmt.Fprintln(out, v.Status)
	switch v.Status {
	case singleinstance.StatusOK:
		return true, nil
	case singleinstance.StatusBusy:
		return true, errResidentBusy
	default:
		return true, fmt.Errorf("resident: %s", v.Message)
	}
}

// runStandalone runs one session on its own fyne app and returns once the
// result window has closed.
func runStandalone(ctx context.Context, cfg *config.Config, langs ocr.LanguageSet) error {
	a := app.NewWithID(appID)
	p := newPipeline(cfg, langs, a)

	done := make(chan error, 1)
	started := false
	a.Lifecycle().SetOnStarted(func() {
		started = true
		go func() {
			done <- p.run(ctx, p.clipboardTarget())
			fyne.Do(a.Quit)
		}()
	})
	a.Run()
	if !started {
		return nil
	}
	return <-done
}

// runResident keeps the app alive behind the tray and the hotkey and serves
// delegated captures until quit or signalled.
func runResident(ctx context.Context, cfg *config.Config, langs ocr.LanguageSet) error {
	logger := logutil.Component("main")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := app.NewWithID(appID)
	// Never shown; closing a result window must not end the app.
	keeper := a.NewWindow(tray.Title)
	keeper.SetMaster()

	p := newPipeline(cfg, langs, a)

	// EnvironmentUnsupported is fatal for the process, not only the session.
	var fatal error
	run := func(ctx context.Context, target session.ResultTarget) error {
		err := p.run(ctx, target)
		if errors.Is(err, screenshot.ErrEnvironmentUnsupported) {
			fatal = err
			cancel()
		}
		return err
	}

	loop := eventloop.New(run, singleinstance.NewServer(cfg.ResidentPort), p.clipboardTarget())
	loop.OnBusy = func(src eventloop.Source) {
		logger.Info().Str("source", string(src)).Msg("capture ignored, session active")
	}

	tray.Install(a, tray.Menu(cfg.Hotkey,
		func() { loop.Trigger(eventloop.SourceTray) },
		cancel,
	))
	if err := hotkey.Listen(ctx, cfg.Hotkey, func() { loop.Trigger(eventloop.SourceHotkey) }); err != nil {
		// The tray and delegated clients still work.
		logger.Warn().Err(err).Msg("global hotkey unavailable")
	}

	loopErr := make(chan error, 1)
	started := false
	a.Lifecycle().SetOnStarted(func() {
		started = true
		go func() {
			loopErr <- loop.Run(ctx)
			fyne.Do(a.Quit)
		}()
	})
	a.Run()
	cancel()
	if !started {
		return nil
	}

	err := <-loopErr
	if fatal != nil {
		return fatal
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
