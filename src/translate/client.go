package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"floating-dictionary/src/logutil"
)

const (
	autoDetect     = "auto"
	maxAttempts    = 2 // one fixed retry
	maxPayload     = 1 << 20
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
	defaultTimeout = 10 * time.Second
)

// Request is one translation call. An empty SourceLang asks the backend to
// detect the language.
type Request struct {
	Text       string
	TargetLang string
	SourceLang string
}

// Response carries the translation and the language the backend resolved.
type Response struct {
	TranslatedText     string
	ResolvedSourceLang string
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Client talks to the Google "translate_a/single" endpoint.
type Client struct {
	baseURL    string
	retryDelay time.Duration
	http       *http.Client
}

func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: cfg.BaseURL, retryDelay: cfg.RetryDelay, http: hc}
}

// Translate sends req to the backend. Blank text succeeds immediately without
// a network call. Service failures are retried once after RetryDelay; protocol
// mismatches are returned as is.
func (c *Client) Translate(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Response{}, nil
	}
	logger := logutil.Component("translate")
	logger.Debug().Stringer("request", req).Msg("translating")

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			logger.Warn().Err(lastErr).Dur("backoff", delay).Msg("retrying translation")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Response{}, ctx.Err()
			}
		}

		resp, err := c.do(ctx, req)
		if err == nil {
			logger.Debug().
				Str("source", resp.ResolvedSourceLang).
				Str("target", req.TargetLang).
				Int("attempt", attempt+1).
				Msg("translation succeeded")
			return resp, nil
		}
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if !errors.Is(err, ErrServiceUnavailable) {
			return Response{}, err
		}
		lastErr = err
	}
	return Response{}, lastErr
}

func (c *Client) do(ctx context.Context, req Request) (Response, error) {
	source := req.SourceLang
	if source == "" {
		source = autoDetect
	}
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", req.TargetLang)
	q.Set("dt", "t")
	q.Set("q", req.Text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Response{}, newError("translate", ErrServiceUnavailable, "build request: %v", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, newError("translate", ErrServiceUnavailable, "%v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return Response{}, newError("translate", ErrServiceUnavailable, "read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, newError("translate", ErrServiceUnavailable, "status %d", resp.StatusCode)
	}

	return parseResponse(body)
}

// parseResponse decodes the positional gtx payload:
//
//	[[["<translated>","<source>",...],...], null, "<detected lang>", ...]
func parseResponse(body []byte) (Response, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return Response{}, newError("translate", ErrProtocolMismatch, "decode: %v", err)
	}
	if len(top) < 3 {
		return Response{}, newError("translate", ErrProtocolMismatch, "payload has %d elements", len(top))
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(top[0], &segments); err != nil {
		return Response{}, newError("translate", ErrProtocolMismatch, "segments: %v", err)
	}
	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			// null segments carry transliteration only
			continue
		}
		b.WriteString(part)
	}

	var detected string
	if err := json.Unmarshal(top[2], &detected); err != nil || detected == "" {
		return Response{}, newError("translate", ErrProtocolMismatch, "detected language missing")
	}

	return Response{TranslatedText: b.String(), ResolvedSourceLang: detected}, nil
}

// String is used by log lines.
func (r Request) String() string {
	return fmt.Sprintf("%s->%s (%d bytes)", orAuto(r.SourceLang), r.TargetLang, len(r.Text))
}

func orAuto(lang string) string {
	if lang == "" {
		return autoDetect
	}
	return lang
}
