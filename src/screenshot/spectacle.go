package screenshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"floating-dictionary/src/logutil"
)

const spectacleBinary = "spectacle"

// Spectacle drives KDE's screenshot utility in interactive region mode.
type Spectacle struct {
	Path string
}

func (s *Spectacle) Kind() Kind { return PlasmaSpectacle }

// Capture runs spectacle in background region mode and blocks until it exits.
// -b: no GUI, -n: no notification, -r: region, -o: output file.
func (s *Spectacle) Capture(ctx context.Context) (*Capture, error) {
	logger := logutil.Component("screenshot")

	dir, err := os.MkdirTemp("", "floating-dictionary-")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", ErrBackendFailed, err)
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "capture.png")

	path := s.Path
	if path == "" {
		path = spectacleBinary
	}
	cmd := exec.CommandContext(ctx, path, "-b", "-n", "-r", "-o", out)
	logger.Debug().Str("binary", path).Msg("starting spectacle region capture")
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Warn().Int("exit_code", exitErr.ExitCode()).Str("output", logutil.SanitizeForLog(string(output))).Msg("spectacle failed")
			return nil, fmt.Errorf("%w: spectacle exited with code %d", ErrBackendFailed, exitErr.ExitCode())
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrEnvironmentUnsupported, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendFailed, err)
	}

	if _, err := os.Stat(out); err != nil {
		return nil, fmt.Errorf("%w: spectacle produced no output file", ErrBackendFailed)
	}
	return readCapture(out, PlasmaSpectacle)
}
