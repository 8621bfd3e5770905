package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"
)

const defaultPingTimeout = 300 * time.Millisecond

// DetectResident reports whether a resident answers PING on port.
func DetectResident(ctx context.Context, port int) bool {
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	return ping(addr, pingTimeout(ctx))
}

func pingTimeout(ctx context.Context) time.Duration {
	timeout := defaultPingTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}
	return timeout
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(pingRequest); err != nil {
		return false
	}
	if err := w.Flush(); err != nil {
		return false
	}
	br := bufio.NewReader(conn)
	resp, err := br.ReadString('\n')
	return err == nil && resp == pongResponse
}
