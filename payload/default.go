package payload

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v4"
)

// defaultContainer carries arbitrary opaque values, msgpack-encoded.
// msgpack keeps the encoding portable across languages, unlike a
// runtime-specific object serializer. Default payloads declare no batch
// size: they are opaque to the batching machinery.
type defaultContainer struct{}

func (defaultContainer) Tag() string { return ContainerDefault }

func (defaultContainer) ToPayload(v interface{}, _ int) (*Payload, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("default container: encode value: %w", err)
	}
	return New(data, map[string]interface{}{}, ContainerDefault), nil
}

func (defaultContainer) FromPayload(p *Payload) (interface{}, error) {
	var v interface{}
	if err := msgpack.Unmarshal(p.Data, &v); err != nil {
		return nil, fmt.Errorf("default container: decode value: %w", err)
	}
	return v, nil
}
