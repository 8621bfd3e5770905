package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"floating-dictionary/src/logutil"
)

const (
	residentHost    = "127.0.0.1"
	pingRequest     = "PING\n"
	pongResponse    = "PONG\n"
	captureRequest  = "CAPTURE\n"
	okResponse      = "OK\n"
	busyResponse    = "BUSY\n"
	errorPrefix     = "ERROR "
	handshakeWindow = 3 * time.Second
)

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	port     int
	lis      net.Listener
	incoming chan *tcpConn
	once     sync.Once
}

func newTCPServer(port int) *tcpServer {
	return &tcpServer{port: port, incoming: make(chan *tcpConn, 8)}
}

// Start binds only the configured port. If it is occupied, Start fails.
func (s *tcpServer) Start(ctx context.Context) error {
	logger := logutil.Component("singleinstance")
	if s.lis != nil {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", residentHost, s.port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error().Err(err).Str("addr", addr).Msg("failed to bind")
		return err
	}
	s.lis = lis
	s.port = lis.Addr().(*net.TCPAddr).Port
	logger.Info().Str("addr", lis.Addr().String()).Msg("listening")
	go s.acceptLoop(ctx)
	return nil
}

func (s *tcpServer) Port() int {
	if s.lis == nil {
		return 0
	}
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context) {
	logger := logutil.Component("singleinstance")
	for {
		c, err := s.lis.Accept()
		if err != nil {
			return
		}
		remote := c.RemoteAddr().String()
		_ = c.SetDeadline(time.Now().Add(handshakeWindow))
		br := bufio.NewReader(c)
		line, _ := br.ReadString('\n')
		bw := bufio.NewWriter(c)

		switch line {
		case pingRequest:
			logger.Debug().Str("remote", remote).Msg("PING -> PONG")
			_, _ = bw.WriteString(pongResponse)
			_ = bw.Flush()
			_ = c.Close()
		case captureRequest:
			// The verdict may take as long as the user's selection.
			_ = c.SetDeadline(time.Time{})
			logger.Info().Str("remote", remote).Msg("capture request")
			select {
			case s.incoming <- &tcpConn{c: c, w: bw}:
			case <-ctx.Done():
				_ = c.Close()
				return
			}
		default:
			logger.Warn().Str("remote", remote).Str("line", logutil.SanitizeForLog(line)).Msg("unknown request")
			_, _ = bw.WriteString(errorPrefix + "unknown request\n")
			_ = bw.Flush()
			_ = c.Close()
		}
	}
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case tc, ok := <-s.incoming:
		if !ok {
			return nil, net.ErrClosed
		}
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.once.Do(func() {
		if s.lis != nil {
			_ = s.lis.Close()
		}
	})
	return nil
}

type tcpConn struct {
	c  net.Conn
	w  *bufio.Writer
	mu sync.Mutex
	// answered guards against a second verdict on one request.
	answered bool
}

func (tc *tcpConn) respond(line string) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.answered {
		return nil
	}
	tc.answered = true
	if _, err := tc.w.WriteString(line); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondOK() error   { return tc.respond(okResponse) }
func (tc *tcpConn) RespondBusy() error { return tc.respond(busyResponse) }

func (tc *tcpConn) RespondError(msg string) error {
	msg = strings.ReplaceAll(msg, "\n", " ")
	return tc.respond(errorPrefix + msg + "\n")
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
