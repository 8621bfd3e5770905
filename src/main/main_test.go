package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"floating-dictionary/src/screenshot"
	"floating-dictionary/src/session"
	"floating-dictionary/src/singleinstance"
)

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--ocr-lang", "tha", "-t", "ru", "--resident", "-v"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.ocrLang != "tha" {
		t.Fatalf("Expected ocrLang=tha, got %q", opts.ocrLang)
	}
	if opts.target != "ru" {
		t.Fatalf("Expected target=ru, got %q", opts.target)
	}
	if !opts.resident || !opts.verbose {
		t.Fatal("Expected resident and verbose to be set")
	}
}

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.ocrLang != "auto" {
		t.Fatalf("Expected ocrLang=auto, got %q", opts.ocrLang)
	}
	if opts.target != "" || opts.resident {
		t.Fatalf("Unexpected defaults: %+v", *opts)
	}
}

func TestUsageErrorsStopBeforeCapture(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"invalid target", []string{"floating-dictionary", "--target", "not a tag!"}},
		{"unknown OCR language", []string{"floating-dictionary", "--ocr-lang", "klingon"}},
		{"positional argument", []string{"floating-dictionary", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runWithArgs(tt.args)
			if err == nil {
				t.Fatal("Expected a usage error")
			}
			if code := exitCode(err); code != exitFailure {
				t.Fatalf("Expected exit code %d, got %d", exitFailure, code)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{session.ErrSelectionCancelled, exitOK},
		{session.ErrPresenterClosed, exitOK},
		{fmt.Errorf("wrapped: %w", context.Canceled), exitOK},
		{fmt.Errorf("capture: %w", screenshot.ErrEnvironmentUnsupported), exitUnsupported},
		{screenshot.ErrBackendFailed, exitFailure},
		{errResidentBusy, exitFailure},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

type fakeClient struct {
	delegated bool
	verdict   singleinstance.Verdict
	err       error
	called    bool
}

func (f *fakeClient) TryCapture(ctx context.Context) (bool, singleinstance.Verdict, error) {
	f.called = true
	return f.delegated, f.verdict, f.err
}

func TestDelegate_NoResident(t *testing.T) {
	client := &fakeClient{}
	var out bytes.Buffer

	handled, err := delegate(context.Background(), client, &out)
	if !client.called {
		t.Fatal("Expected client.TryCapture to be called")
	}
	if handled || err != nil {
		t.Fatalf("Expected fallback to standalone, got handled=%v err=%v", handled, err)
	}
	if out.Len() != 0 {
		t.Fatalf("Expected no output, got %q", out.String())
	}
}

func TestDelegate_Verdicts(t *testing.T) {
	tests := []struct {
		name    string
		verdict singleinstance.Verdict
		wantErr error
		wantOut string
	}{
		{"ok", singleinstance.Verdict{Status: singleinstance.StatusOK}, nil, "OK\n"},
		{"busy", singleinstance.Verdict{Status: singleinstance.StatusBusy}, errResidentBusy, "BUSY\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			handled, err := delegate(context.Background(), &fakeClient{delegated: true, verdict: tt.verdict}, &out)
			if !handled {
				t.Fatal("Expected the resident to handle the capture")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if out.String() != tt.wantOut {
				t.Fatalf("Expected output %q, got %q", tt.wantOut, out.String())
			}
		})
	}
}

func TestDelegate_ErrorVerdictCarriesMessage(t *testing.T) {
	client := &fakeClient{delegated: true, verdict: singleinstance.Verdict{Status: singleinstance.StatusError, Message: "translation service unavailable"}}
	handled, err := delegate(context.Background(), client, &bytes.Buffer{})
	if !handled || err == nil {
		t.Fatalf("Expected a handled failure, got handled=%v err=%v", handled, err)
	}
	if err.Error() != "resident: translation service unavailable" {
		t.Fatalf("Unexpected error %q", err)
	}
}

func TestDelegate_ResidentHangsUp(t *testing.T) {
	client := &fakeClient{delegated: true, err: errors.New("connection reset")}
	handled, err := delegate(context.Background(), client, &bytes.Buffer{})
	if !handled || err == nil {
		t.Fatalf("Expected a handled failure, got handled=%v err=%v", handled, err)
	}
}
