package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"runner-rpc/params"
	"runner-rpc/payload"
	"runner-rpc/protocol"
)

// dispatch runs one call end to end: serialize, validate, send, decode.
// Serialization and the batch check are pure CPU work; the only suspension
// points are inside the session send and body read.
func (c *Client) dispatch(ctx context.Context, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	m, ok := c.runner.Method(method)
	if !ok {
		return nil, fmt.Errorf("runner %s has no method %q", c.runner.Name, method)
	}

	p, err := params.Map(params.New(args, kwargs), func(v interface{}) (*payload.Payload, error) {
		return payload.ToPayload(v, m.BatchDim)
	})
	if err != nil {
		return nil, fmt.Errorf("serialize arguments for %s.%s: %w", c.runner.Name, method, err)
	}

	// Batch consistency must hold before any network I/O: the remote slices
	// batches assuming alignment, so a misaligned call must never be sent.
	if m.Batchable {
		if err := checkBatchSizes(p); err != nil {
			return nil, err
		}
	}

	header := http.Header{}
	header.Set(protocol.HeaderBentoName, c.identity.Name)
	header.Set(protocol.HeaderBentoVersion, c.identity.Version)
	header.Set(protocol.HeaderRunnerName, c.runner.Name)
	header.Set(protocol.HeaderDeploymentName, c.identity.DeploymentName)
	header.Set(protocol.HeaderDeploymentNamespace, c.identity.DeploymentNamespace)
	header.Set(protocol.HeaderArgsNumber, strconv.Itoa(p.Count()))

	var body []byte
	if p.Count() == 1 {
		// Single-argument fast path: metadata rides in the headers and the
		// body is the payload bytes unmodified — no second serialization.
		pl := p.Leaves()[0]
		meta, err := json.Marshal(pl.Meta)
		if err != nil {
			return nil, fmt.Errorf("encode payload meta: %w", err)
		}
		header.Set(protocol.HeaderPayloadMeta, string(meta))
		header.Set(protocol.HeaderPayloadContainer, pl.Container)
		if size, ok := pl.BatchSize(); ok {
			header.Set(protocol.HeaderBatchSize, strconv.Itoa(size))
		}
		body = pl.Data
	} else {
		contentType, framed, err := protocol.EncodeParams(p)
		if err != nil {
			return nil, fmt.Errorf("frame arguments for %s.%s: %w", c.runner.Name, method, err)
		}
		header.Set("Content-Type", contentType)
		body = framed
	}

	sess, err := c.sessions.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sess.BaseURL()+protocol.MethodPath(method), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request for %s.%s: %w", c.runner.Name, method, err)
	}
	for name, values := range header {
		req.Header[name] = values
	}

	resp, err := sess.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: runner %s method %s", ErrTimeout, c.runner.Name, method)
		}
		return nil, fmt.Errorf("call runner %s method %s: %w", c.runner.Name, method, err)
	}
	defer resp.Body.Close()

	// Within one call, the body is read in order after the headers.
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: runner %s method %s", ErrTimeout, c.runner.Name, method)
		}
		return nil, fmt.Errorf("read response from runner %s: %w", c.runner.Name, err)
	}

	return c.decodeResponse(resp, respBody)
}

// decodeResponse validates the response in protocol order and reconstructs
// the result payload.
func (c *Client) decodeResponse(resp *http.Response, body []byte) (interface{}, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{
			Runner:     c.runner.Name,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	metaHeader := resp.Header.Get(protocol.HeaderPayloadMeta)
	if metaHeader == "" {
		return nil, &ProtocolError{
			Runner:     c.runner.Name,
			Reason:     protocol.HeaderPayloadMeta + " header not set",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return nil, &ProtocolError{
			Runner:     c.runner.Name,
			Reason:     "Content-Type header not set",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	container, err := protocol.ContainerFromContentType(contentType)
	if err != nil {
		return nil, &ProtocolError{
			Runner:     c.runner.Name,
			Reason:     err.Error(),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(metaHeader), &meta); err != nil {
		return nil, fmt.Errorf("malformed payload metadata %q: %w", metaHeader, err)
	}

	return payload.FromPayload(payload.New(body, meta, container))
}

// checkBatchSizes enforces the batch-consistency invariant: of the payloads
// that declare a batch size, all declarations must agree. Payloads that
// declare none (opaque containers) stay out of the comparison.
func checkBatchSizes(p params.Params[*payload.Payload]) error {
	declared := -1
	for _, pl := range p.Leaves() {
		size, ok := pl.BatchSize()
		if !ok {
			continue
		}
		if declared == -1 {
			declared = size
			continue
		}
		if size != declared {
			return fmt.Errorf("%w: got %d and %d", ErrBatchSizeMismatch, declared, size)
		}
	}
	return nil
}

// isTimeout recognizes total-call timeouts from the http client and context
// deadline expiry, keeping them distinct from remote-side failures.
func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
