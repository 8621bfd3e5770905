package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

type tcpClient struct {
	port int
}

func newTCPClient(port int) *tcpClient { return &tcpClient{port: port} }

func (c *tcpClient) TryCapture(ctx context.Context) (bool, Verdict, error) {
	addr := net.JoinHostPort(residentHost, strconv.Itoa(c.port))
	if !ping(addr, pingTimeout(ctx)) {
		return false, Verdict{}, nil
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, Verdict{}, nil
	}
	defer conn.Close()
	// Unblock the read below when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(captureRequest); err != nil {
		return true, Verdict{}, err
	}
	if err := w.Flush(); err != nil {
		return true, Verdict{}, err
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return true, Verdict{}, ctx.Err()
		}
		return true, Verdict{}, err
	}
	v, err := parseVerdict(line)
	return true, v, err
}

func parseVerdict(line string) (Verdict, error) {
	switch {
	case line == okResponse:
		return Verdict{Status: StatusOK}, nil
	case line == busyResponse:
		return Verdict{Status: StatusBusy}, nil
	case strings.HasPrefix(line, errorPrefix):
		return Verdict{Status: StatusError, Message: strings.TrimSuffix(strings.TrimPrefix(line, errorPrefix), "\n")}, nil
	default:
		return Verdict{}, fmt.Errorf("unexpected resident response %q", line)
	}
}
