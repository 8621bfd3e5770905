package singleinstance

// This file defines the API for the resident instance and delegation from
// one-shot invocations.

import (
	"context"
)

// Server owns the loopback endpoint of the resident instance.
type Server interface {
	// Start binds the configured port. It fails when the port is taken.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next CAPTURE request, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close stops accepting clients.
	Close() error
}

// Conn is one delegated CAPTURE request awaiting a verdict.
type Conn interface {
	RespondOK() error
	RespondBusy() error
	RespondError(msg string) error
	Close() error
}

// Verdict is the resident's answer to CAPTURE.
type Verdict struct {
	Status  Status
	Message string
}

type Status int

const (
	StatusOK Status = iota
	StatusBusy
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBusy:
		return "BUSY"
	default:
		return "ERROR"
	}
}

// Client delegates a capture to a resident instance.
type Client interface {
	// TryCapture pings the resident and, when one answers, asks it to run a
	// session. delegated is false when no resident is listening.
	TryCapture(ctx context.Context) (delegated bool, v Verdict, err error)
}

func NewServer(port int) Server { return newTCPServer(port) }

func NewClient(port int) Client { return newTCPClient(port) }
