package payload

import (
	"fmt"
)

// NDArray is a dense tensor: a flat buffer plus dtype and shape descriptors.
// The buffer is carried as the payload body unmodified; dtype and shape ride
// in the meta map, so a one-tensor call needs no second serialization pass.
type NDArray struct {
	Dtype string
	Shape []int64
	Data  []byte
}

// Len returns the number of elements described by the shape.
func (a *NDArray) Len() int64 {
	n := int64(1)
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

type ndarrayContainer struct{}

func (ndarrayContainer) Tag() string { return ContainerNDArray }

func (ndarrayContainer) ToPayload(v interface{}, batchDim int) (*Payload, error) {
	arr, ok := v.(*NDArray)
	if !ok {
		return nil, fmt.Errorf("ndarray container: expected *payload.NDArray, got %T", v)
	}
	if batchDim < 0 || batchDim >= len(arr.Shape) {
		return nil, fmt.Errorf("ndarray container: batch dim %d out of range for shape %v", batchDim, arr.Shape)
	}
	meta := map[string]interface{}{
		MetaDtype:     arr.Dtype,
		MetaShape:     arr.Shape,
		MetaBatchSize: int(arr.Shape[batchDim]),
	}
	return New(arr.Data, meta, ContainerNDArray), nil
}

func (ndarrayContainer) FromPayload(p *Payload) (interface{}, error) {
	dtype, ok := p.Meta[MetaDtype].(string)
	if !ok {
		return nil, fmt.Errorf("ndarray container: missing or malformed %q meta", MetaDtype)
	}
	shape, ok := metaInt64Slice(p.Meta[MetaShape])
	if !ok {
		return nil, fmt.Errorf("ndarray container: missing or malformed %q meta", MetaShape)
	}
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	return &NDArray{Dtype: dtype, Shape: shape, Data: data}, nil
}
