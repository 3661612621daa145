package payload

import (
	"fmt"
	"sort"
	"sync"
)

// Well-known container tags. The tag travels in the Payload-Container header
// on requests and in the Content-Type suffix on responses.
const (
	ContainerNDArray   = "ndarray"
	ContainerDataFrame = "dataframe"
	ContainerDefault   = "default"
)

// Container encodes values of one family into Payloads and back.
// Implementations must be stateless and goroutine-safe; ToPayload and
// FromPayload are pure CPU work with no suspension points.
type Container interface {
	// Tag returns the container tag this codec is registered under.
	Tag() string

	// ToPayload encodes v. For batchable containers, batchDim selects the
	// dimension whose extent is declared as the payload's batch size.
	ToPayload(v interface{}, batchDim int) (*Payload, error)

	// FromPayload decodes a payload produced by ToPayload (possibly on the
	// other side of the wire, with Meta having passed through JSON).
	FromPayload(p *Payload) (interface{}, error)
}

var (
	containersMu sync.RWMutex
	containers   = map[string]Container{}
)

// Register adds a container codec to the registry. Registering a tag twice
// replaces the earlier codec; the built-in codecs register at init.
func Register(c Container) {
	containersMu.Lock()
	defer containersMu.Unlock()
	containers[c.Tag()] = c
}

// Get looks up the codec for a container tag. Unknown tags are an explicit
// error, never a silent fallthrough to the default codec.
func Get(tag string) (Container, error) {
	containersMu.RLock()
	defer containersMu.RUnlock()
	c, ok := containers[tag]
	if !ok {
		return nil, fmt.Errorf("unknown payload container %q", tag)
	}
	return c, nil
}

// Tags returns the registered container tags, sorted.
func Tags() []string {
	containersMu.RLock()
	defer containersMu.RUnlock()
	tags := make([]string, 0, len(containers))
	for tag := range containers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ToPayload encodes a value with the codec matching its Go type:
// *NDArray → ndarray, *DataFrame → dataframe, everything else → default.
func ToPayload(v interface{}, batchDim int) (*Payload, error) {
	var tag string
	switch v.(type) {
	case *NDArray:
		tag = ContainerNDArray
	case *DataFrame:
		tag = ContainerDataFrame
	default:
		tag = ContainerDefault
	}
	c, err := Get(tag)
	if err != nil {
		return nil, err
	}
	return c.ToPayload(v, batchDim)
}

// FromPayload decodes a payload with the codec named by its Container tag.
func FromPayload(p *Payload) (interface{}, error) {
	c, err := Get(p.Container)
	if err != nil {
		return nil, err
	}
	return c.FromPayload(p)
}

func init() {
	Register(ndarrayContainer{})
	Register(dataframeContainer{})
	Register(defaultContainer{})
}
