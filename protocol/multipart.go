package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"runner-rpc/params"
	"runner-rpc/payload"
)

// Multi-argument calls are framed as multipart/form-data: one part per
// argument, preserving per-argument payload boundaries and metadata.
// Positional arguments are named arg-<index>, keyword arguments
// kwarg-<name>. Each part carries the same headers the single-argument fast
// path puts on the request itself.
const (
	argPartPrefix   = "arg-"
	kwargPartPrefix = "kwarg-"
)

// EncodeParams frames a payload params set into a multipart body.
// Returns the content type (with boundary) and the body bytes.
func EncodeParams(p params.Params[*payload.Payload]) (string, []byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for i, pl := range p.Args {
		if err := writePart(w, argPartPrefix+strconv.Itoa(i), pl); err != nil {
			return "", nil, err
		}
	}
	for _, name := range p.KwargNames() {
		if err := writePart(w, kwargPartPrefix+name, p.Kwargs[name]); err != nil {
			return "", nil, err
		}
	}

	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("finalize multipart body: %w", err)
	}
	return w.FormDataContentType(), buf.Bytes(), nil
}

func writePart(w *multipart.Writer, name string, pl *payload.Payload) error {
	meta, err := json.Marshal(pl.Meta)
	if err != nil {
		return fmt.Errorf("encode payload meta for part %q: %w", name, err)
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, name))
	h.Set("Content-Type", ContentTypeFor(pl.Container))
	h.Set(HeaderPayloadMeta, string(meta))
	h.Set(HeaderPayloadContainer, pl.Container)
	if size, ok := pl.BatchSize(); ok {
		h.Set(HeaderBatchSize, strconv.Itoa(size))
	}

	pw, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %q: %w", name, err)
	}
	if _, err := pw.Write(pl.Data); err != nil {
		return fmt.Errorf("write part %q: %w", name, err)
	}
	return nil
}

// DecodeParams parses a multipart body back into payload params. Used by
// the receiving side of the protocol.
func DecodeParams(contentType string, body []byte) (params.Params[*payload.Payload], error) {
	var empty params.Params[*payload.Payload]

	mediaType, mediaParams, err := mime.ParseMediaType(contentType)
	if err != nil {
		return empty, fmt.Errorf("malformed content type %q: %w", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return empty, fmt.Errorf("expected multipart content type, got %q", mediaType)
	}
	boundary, ok := mediaParams["boundary"]
	if !ok {
		return empty, fmt.Errorf("content type %q has no boundary", contentType)
	}

	positional := map[int]*payload.Payload{}
	kwargs := map[string]*payload.Payload{}

	r := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return empty, fmt.Errorf("read multipart body: %w", err)
		}

		pl, err := readPart(part)
		if err != nil {
			return empty, err
		}

		name := part.FormName()
		switch {
		case strings.HasPrefix(name, argPartPrefix):
			index, err := strconv.Atoi(strings.TrimPrefix(name, argPartPrefix))
			if err != nil || index < 0 {
				return empty, fmt.Errorf("invalid positional part name %q", name)
			}
			positional[index] = pl
		case strings.HasPrefix(name, kwargPartPrefix):
			kwargs[name[len(kwargPartPrefix):]] = pl
		default:
			return empty, fmt.Errorf("unexpected part name %q", name)
		}
	}

	args := make([]*payload.Payload, len(positional))
	for index, pl := range positional {
		if index >= len(args) {
			return empty, fmt.Errorf("positional argument index %d out of range, have %d parts", index, len(positional))
		}
		args[index] = pl
	}
	if len(kwargs) == 0 {
		kwargs = nil
	}
	if len(args) == 0 {
		args = nil
	}
	return params.New(args, kwargs), nil
}

func readPart(part *multipart.Part) (*payload.Payload, error) {
	name := part.FormName()

	data, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("read part %q: %w", name, err)
	}

	metaHeader := part.Header.Get(HeaderPayloadMeta)
	if metaHeader == "" {
		return nil, fmt.Errorf("part %q missing %s header", name, HeaderPayloadMeta)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(metaHeader), &meta); err != nil {
		return nil, fmt.Errorf("part %q has malformed %s header: %w", name, HeaderPayloadMeta, err)
	}

	container := part.Header.Get(HeaderPayloadContainer)
	if container == "" {
		return nil, fmt.Errorf("part %q missing %s header", name, HeaderPayloadContainer)
	}

	return payload.New(data, meta, container), nil
}
