// Package session layers a request/response HTTP client over the shared
// pooled transport. A session never owns its transport: the transport
// outlives any one session and is replaced only by its own manager.
package session

import (
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"runner-rpc/transport"
)

// DefaultTimeout bounds a whole call (connect, send, headers, body) when the
// caller supplies no explicit timeout.
const DefaultTimeout = 5 * time.Minute

// Session is an HTTP client handle over the shared transport. The protocol
// is stateless per call: no cookies persist, and response compression is
// handled nowhere — the dispatcher sees the wire bytes untouched.
type Session struct {
	client  *http.Client
	conn    *transport.Conn
	timeout time.Duration
}

func newSession(conn *transport.Conn, timeout time.Duration, tracer trace.Tracer) *Session {
	return &Session{
		client: &http.Client{
			Transport: &tracingRoundTripper{base: conn.RoundTripper(), tracer: tracer},
			Timeout:   timeout,
		},
		conn:    conn,
		timeout: timeout,
	}
}

// Do sends a request through the session.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	return s.client.Do(req)
}

// BaseURL returns the authority of the underlying connection.
func (s *Session) BaseURL() string { return s.conn.BaseURL() }

// Timeout returns the total-call timeout this session applies.
func (s *Session) Timeout() time.Duration { return s.timeout }

// valid reports whether the session's transport handle is still live.
func (s *Session) valid() bool { return !s.conn.Closed() }

// tracingRoundTripper records each request into a client span. Query
// parameters are stripped from the recorded URL before the span is created,
// so call arguments never leak into span identifiers.
type tracingRoundTripper struct {
	base   http.RoundTripper
	tracer trace.Tracer
}

func (t *tracingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	stripped := *req.URL
	stripped.RawQuery = ""
	stripped.Fragment = ""

	ctx, span := t.tracer.Start(req.Context(), "runner-rpc "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", stripped.String()),
		),
	)
	defer span.End()

	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, urlErrorMessage(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

// urlErrorMessage strips query parameters out of transport errors too, since
// url.Error echoes the full request URL.
func urlErrorMessage(err error) string {
	if uerr, ok := err.(*url.Error); ok {
		stripped := uerr.URL
		if u, perr := url.Parse(uerr.URL); perr == nil {
			u.RawQuery = ""
			stripped = u.String()
		}
		return uerr.Op + " " + stripped + ": " + uerr.Err.Error()
	}
	return err.Error()
}
