// Package runnertest provides an in-process stub runner speaking the wire
// protocol, for exercising the client end to end. It listens on TCP or a
// unix socket, decodes incoming calls (fast path and multipart), and answers
// with whatever the scripted handler returns. A call counter supports
// asserting that invalid calls never reach the wire.
package runnertest

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/valyala/fasthttp"

	"runner-rpc/params"
	"runner-rpc/payload"
	"runner-rpc/protocol"
)

// Call is one decoded incoming request.
type Call struct {
	// Method is the path with the leading slash trimmed; empty for the
	// root path (the default method).
	Method string
	// RunnerName echoes the Runner-Name request header.
	RunnerName string
	// ArgsNumber echoes the Args-Number request header.
	ArgsNumber int
	// Params holds the decoded argument payloads. Single-argument calls
	// appear as one positional payload.
	Params params.Params[*payload.Payload]
}

// Reply scripts the response to one call.
type Reply struct {
	StatusCode int
	Body       []byte
	Meta       map[string]interface{}
	Container  string

	// Protocol-violation knobs for fault-injection tests.
	OmitMeta        bool
	OmitContentType bool
	ContentType     string // overrides the derived content type when set
	RawMeta         string // overrides the Payload-Meta header verbatim when set
}

// Handler maps a decoded call to a scripted reply.
type Handler func(call *Call) *Reply

// Server is the stub runner.
type Server struct {
	handler Handler
	srv     *fasthttp.Server
	ln      net.Listener
	calls   int64
}

// NewServer creates a stub runner. A nil handler echoes every call's first
// argument back unchanged.
func NewServer(handler Handler) *Server {
	if handler == nil {
		handler = Echo
	}
	s := &Server{handler: handler}
	s.srv = &fasthttp.Server{
		Handler: s.handleRequest,
		Name:    "runnertest",
		// decodeCall reads the raw multipart body via ctx.PostBody();
		// fasthttp's default pre-parsing consumes it and drops the
		// custom per-part headers on reconstruction.
		DisablePreParseMultipartForm: true,
	}
	return s
}

// ListenTCP binds a loopback TCP port and returns the bind URI for the
// runner map.
func (s *Server) ListenTCP() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	s.serve(ln)
	return "tcp://" + ln.Addr().String(), nil
}

// ListenUnix binds a unix socket at the given path and returns the bind URI.
func (s *Server) ListenUnix(path string) (string, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return "", err
	}
	s.serve(ln)
	return "file://" + path, nil
}

func (s *Server) serve(ln net.Listener) {
	s.ln = ln
	go s.srv.Serve(ln) // nolint: errcheck
}

// Close stops the listener.
func (s *Server) Close() error {
	return s.srv.Shutdown()
}

// Calls returns how many requests reached the server.
func (s *Server) Calls() int64 {
	return atomic.LoadInt64(&s.calls)
}

func (s *Server) handleRequest(ctx *fasthttp.RequestCtx) {
	atomic.AddInt64(&s.calls, 1)

	call, err := s.decodeCall(ctx)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString(err.Error())
		return
	}

	s.writeReply(ctx, s.handler(call))
}

func (s *Server) decodeCall(ctx *fasthttp.RequestCtx) (*Call, error) {
	call := &Call{
		Method:     strings.TrimPrefix(string(ctx.Path()), "/"),
		RunnerName: string(ctx.Request.Header.Peek(protocol.HeaderRunnerName)),
	}
	if raw := ctx.Request.Header.Peek(protocol.HeaderArgsNumber); len(raw) > 0 {
		n, err := strconv.Atoi(string(raw))
		if err != nil {
			return nil, fmt.Errorf("bad %s header: %w", protocol.HeaderArgsNumber, err)
		}
		call.ArgsNumber = n
	}

	contentType := string(ctx.Request.Header.ContentType())
	if strings.HasPrefix(contentType, "multipart/") {
		decoded, err := protocol.DecodeParams(contentType, ctx.PostBody())
		if err != nil {
			return nil, err
		}
		call.Params = decoded
		return call, nil
	}

	// Fast path: one payload, metadata in the request headers.
	metaHeader := ctx.Request.Header.Peek(protocol.HeaderPayloadMeta)
	if len(metaHeader) == 0 {
		return nil, fmt.Errorf("missing %s header", protocol.HeaderPayloadMeta)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(metaHeader, &meta); err != nil {
		return nil, fmt.Errorf("malformed %s header: %w", protocol.HeaderPayloadMeta, err)
	}
	container := string(ctx.Request.Header.Peek(protocol.HeaderPayloadContainer))
	if container == "" {
		return nil, fmt.Errorf("missing %s header", protocol.HeaderPayloadContainer)
	}

	body := append([]byte(nil), ctx.PostBody()...)
	call.Params = params.New([]*payload.Payload{payload.New(body, meta, container)}, nil)
	return call, nil
}

func (s *Server) writeReply(ctx *fasthttp.RequestCtx, reply *Reply) {
	status := reply.StatusCode
	if status == 0 {
		status = fasthttp.StatusOK
	}
	ctx.SetStatusCode(status)

	if reply.RawMeta != "" {
		ctx.Response.Header.Set(protocol.HeaderPayloadMeta, reply.RawMeta)
	} else if !reply.OmitMeta {
		meta := reply.Meta
		if meta == nil {
			meta = map[string]interface{}{}
		}
		raw, err := json.Marshal(meta)
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString(err.Error())
			return
		}
		ctx.Response.Header.Set(protocol.HeaderPayloadMeta, string(raw))
	}

	switch {
	case reply.OmitContentType:
		// Suppress fasthttp's default content type so the response truly
		// lacks the header.
		ctx.Response.Header.SetNoDefaultContentType(true)
	case reply.ContentType != "":
		ctx.Response.Header.SetContentType(reply.ContentType)
	default:
		container := reply.Container
		if container == "" {
			container = payload.ContainerDefault
		}
		ctx.Response.Header.SetContentType(protocol.ContentTypeFor(container))
	}

	ctx.SetBody(reply.Body)
}

// Echo answers every call with its first argument payload unchanged.
func Echo(call *Call) *Reply {
	leaves := call.Params.Leaves()
	if len(leaves) == 0 {
		return &Reply{StatusCode: fasthttp.StatusBadRequest, Body: []byte("no arguments")}
	}
	pl := leaves[0]
	return &Reply{
		Body:      pl.Data,
		Meta:      pl.Meta,
		Container: pl.Container,
	}
}

// Status scripts a fixed failure response.
func Status(code int, body string) Handler {
	return func(*Call) *Reply {
		return &Reply{StatusCode: code, Body: []byte(body), OmitMeta: true, OmitContentType: true}
	}
}
