package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// throughWire simulates what the protocol does to a payload: the meta map is
// JSON-encoded into a header and parsed back, the body travels as-is.
func throughWire(t *testing.T, p *Payload) *Payload {
	t.Helper()
	raw, err := json.Marshal(p.Meta)
	require.NoError(t, err)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &meta))
	return New(p.Data, meta, p.Container)
}

func TestNDArrayRoundTrip(t *testing.T) {
	arr := &NDArray{
		Dtype: "float32",
		Shape: []int64{4, 2},
		Data:  []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31},
	}

	p, err := ToPayload(arr, 0)
	require.NoError(t, err)
	require.Equal(t, ContainerNDArray, p.Container)

	size, ok := p.BatchSize()
	require.True(t, ok)
	require.Equal(t, 4, size)

	got, err := FromPayload(throughWire(t, p))
	require.NoError(t, err)
	require.Equal(t, arr, got)
}

func TestNDArrayBatchDim(t *testing.T) {
	arr := &NDArray{Dtype: "int8", Shape: []int64{2, 8}, Data: make([]byte, 16)}

	p, err := ToPayload(arr, 1)
	require.NoError(t, err)
	size, ok := p.BatchSize()
	require.True(t, ok)
	require.Equal(t, 8, size)

	_, err = ToPayload(arr, 2)
	require.Error(t, err)
}

func TestDataFrameRoundTrip(t *testing.T) {
	df := &DataFrame{
		Columns: []string{"name", "score"},
		Rows: [][]interface{}{
			{"alpha", 0.25},
			{"beta", 0.75},
			{"gamma", 1.0},
		},
	}

	p, err := ToPayload(df, 0)
	require.NoError(t, err)
	require.Equal(t, ContainerDataFrame, p.Container)

	size, ok := p.BatchSize()
	require.True(t, ok)
	require.Equal(t, 3, size)

	got, err := FromPayload(throughWire(t, p))
	require.NoError(t, err)
	require.Equal(t, df, got)
}

func TestDataFrameRaggedRows(t *testing.T) {
	df := &DataFrame{
		Columns: []string{"a", "b"},
		Rows:    [][]interface{}{{"only one"}},
	}
	_, err := ToPayload(df, 0)
	require.Error(t, err)
}

func TestDefaultRoundTrip(t *testing.T) {
	p, err := ToPayload("hello runner", 0)
	require.NoError(t, err)
	require.Equal(t, ContainerDefault, p.Container)

	_, ok := p.BatchSize()
	require.False(t, ok, "default payloads must not declare a batch size")

	got, err := FromPayload(throughWire(t, p))
	require.NoError(t, err)
	require.Equal(t, "hello runner", got)
}

func TestDefaultRoundTripInteger(t *testing.T) {
	p, err := ToPayload(42, 0)
	require.NoError(t, err)

	got, err := FromPayload(throughWire(t, p))
	require.NoError(t, err)
	require.EqualValues(t, 42, got)
}

func TestUnknownContainer(t *testing.T) {
	_, err := Get("bogus")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown payload container")

	_, err = FromPayload(New(nil, nil, "bogus"))
	require.Error(t, err)
}

func TestRegisteredTags(t *testing.T) {
	require.Subset(t, Tags(), []string{ContainerDefault, ContainerDataFrame, ContainerNDArray})
}
