package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"runner-rpc/params"
	"runner-rpc/payload"
)

func TestContainerFromContentType(t *testing.T) {
	container, err := ContainerFromContentType("application/vnd.bentoml.ndarray")
	require.NoError(t, err)
	require.Equal(t, "ndarray", container)

	// Parameters and case must not confuse the suffix extraction.
	container, err = ContainerFromContentType("Application/vnd.BentoML.default; charset=utf-8")
	require.NoError(t, err)
	require.Equal(t, "default", container)
}

func TestContainerFromContentTypeRejectsForeign(t *testing.T) {
	_, err := ContainerFromContentType("text/html")
	require.Error(t, err)

	_, err = ContainerFromContentType("application/vnd.bentoml.")
	require.Error(t, err)

	_, err = ContainerFromContentType("")
	require.Error(t, err)
}

func TestMethodPath(t *testing.T) {
	require.Equal(t, "/", MethodPath(DefaultMethod))
	require.Equal(t, "/", MethodPath(""))
	require.Equal(t, "/predict", MethodPath("predict"))
}

func TestMultipartRoundTrip(t *testing.T) {
	arr, err := payload.ToPayload(&payload.NDArray{
		Dtype: "float32",
		Shape: []int64{2, 4},
		Data:  make([]byte, 32),
	}, 0)
	require.NoError(t, err)
	opaque, err := payload.ToPayload("threshold=0.5", 0)
	require.NoError(t, err)

	in := params.New([]*payload.Payload{arr}, map[string]*payload.Payload{"options": opaque})

	contentType, body, err := EncodeParams(in)
	require.NoError(t, err)
	require.Contains(t, contentType, "multipart/form-data")

	out, err := DecodeParams(contentType, body)
	require.NoError(t, err)
	require.Equal(t, in.Count(), out.Count())

	require.Len(t, out.Args, 1)
	require.Equal(t, arr.Data, out.Args[0].Data)
	require.Equal(t, payload.ContainerNDArray, out.Args[0].Container)
	size, ok := out.Args[0].BatchSize()
	require.True(t, ok)
	require.Equal(t, 2, size)

	require.Equal(t, opaque.Data, out.Kwargs["options"].Data)
	require.Equal(t, payload.ContainerDefault, out.Kwargs["options"].Container)
}

func TestMultipartPositionalOrder(t *testing.T) {
	first, err := payload.ToPayload("first", 0)
	require.NoError(t, err)
	second, err := payload.ToPayload("second", 0)
	require.NoError(t, err)

	contentType, body, err := EncodeParams(params.New([]*payload.Payload{first, second}, nil))
	require.NoError(t, err)

	out, err := DecodeParams(contentType, body)
	require.NoError(t, err)
	require.Len(t, out.Args, 2)
	require.Equal(t, first.Data, out.Args[0].Data)
	require.Equal(t, second.Data, out.Args[1].Data)
}

func TestDecodeParamsRejectsNonMultipart(t *testing.T) {
	_, err := DecodeParams("application/octet-stream", []byte("raw"))
	require.Error(t, err)
}
