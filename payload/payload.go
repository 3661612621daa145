// Package payload defines the typed data envelope carried over the runner
// wire protocol, and the container codecs that encode values into it.
//
// A Payload is the unit handed to the transport layer: raw bytes plus the
// metadata needed to decode them on the other side. The Container tag selects
// the codec; Meta carries codec-specific descriptors (shape, dtype, columns)
// and the declared batch size, if any.
package payload

// Keys used inside Payload.Meta. The meta map crosses the wire JSON-encoded
// in the Payload-Meta header (or part header), so values must stay
// JSON-representable.
const (
	MetaBatchSize = "batch_size"
	MetaDtype     = "dtype"
	MetaShape     = "shape"
	MetaColumns   = "columns"
)

// Payload is the immutable envelope for one argument or return value.
// Construct it at the call boundary (encoding a value) or at the protocol
// boundary (decoding a wire response); never mutate it afterwards.
type Payload struct {
	Data      []byte
	Meta      map[string]interface{}
	Container string
}

// New builds a Payload from its wire components.
func New(data []byte, meta map[string]interface{}, container string) *Payload {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return &Payload{Data: data, Meta: meta, Container: container}
}

// BatchSize reports the batch size this payload declares, if any.
// Payloads of non-batchable containers declare none.
func (p *Payload) BatchSize() (int, bool) {
	v, ok := p.Meta[MetaBatchSize]
	if !ok {
		return 0, false
	}
	n, ok := metaInt(v)
	return n, ok
}

// metaInt coerces a meta value to int. Meta maps pass through JSON on the
// wire, so a number written as int comes back as float64.
func metaInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// metaInt64Slice coerces a meta value to []int64, accepting both the
// in-process representation ([]int64) and the post-JSON one ([]interface{}).
func metaInt64Slice(v interface{}) ([]int64, bool) {
	switch s := v.(type) {
	case []int64:
		out := make([]int64, len(s))
		copy(out, s)
		return out, true
	case []interface{}:
		out := make([]int64, 0, len(s))
		for _, e := range s {
			n, ok := metaInt(e)
			if !ok {
				return nil, false
			}
			out = append(out, int64(n))
		}
		return out, true
	default:
		return nil, false
	}
}

// metaStringSlice coerces a meta value to []string.
func metaStringSlice(v interface{}) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out, true
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}
