package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vision/internal/tensor"
)

func TestSafeTensorsRoundTrip(t *testing.T) {
	images, err := tensor.Full[float32](nil, tensor.Shape{2, 4, 4, 3}, 0.5)
	require.NoError(t, err)
	defer images.Release()
	labels, err := tensor.FromSlice(nil, []float64{0.25, -0.75}, tensor.Shape{2})
	require.NoError(t, err)
	defer labels.Release()
	mask, err := tensor.FromSlice(nil, []bool{true, false}, tensor.Shape{2})
	require.NoError(t, err)
	defer mask.Release()

	path := filepath.Join(t.TempDir(), "batch.safetensors")
	err = WriteSafeTensors(path, map[string]RawTensor{
		"images": images,
		"labels": labels,
		"mask":   mask,
	}, map[string]string{"batch": "0"})
	require.NoError(t, err)

	f, err := ReadSafeTensors(path, ReaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"images", "labels", "mask"}, f.Names())
	assert.Equal(t, "0", f.Metadata["batch"])

	st, err := f.Lookup("images")
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, st.DType)
	img, err := TensorAs[float32](st, nil)
	require.NoError(t, err)
	defer img.Release()
	assertSameTensor(t, images, img)

	st, err = f.Lookup("labels")
	require.NoError(t, err)
	lbl, err := TensorAs[float64](st, nil)
	require.NoError(t, err)
	defer lbl.Release()
	assert.Equal(t, []float64{0.25, -0.75}, lbl.Data())

	_, err = TensorAs[float32](st, nil)
	assert.ErrorIs(t, err, ErrDTypeMismatch)

	_, err = f.Lookup("missing")
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

func TestSafeTensorsHeaderLayout(t *testing.T) {
	x, err := tensor.FromSlice(nil, []int32{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)
	defer x.Release()

	var buf bytes.Buffer
	require.NoError(t, EncodeSafeTensors(&buf, map[string]RawTensor{"x": x}, nil))

	raw := buf.Bytes()
	n := binary.LittleEndian.Uint64(raw[:8])
	var header map[string]SafeTensorHeader
	require.NoError(t, json.Unmarshal(raw[8:8+n], &header))
	assert.Equal(t, SafeTensorHeader{DType: "I32", Shape: []int64{3}, DataOffsets: [2]int64{0, 12}}, header["x"])
	assert.Len(t, raw, 8+int(n)+12)
}

func TestSafeTensorsRejectsViews(t *testing.T) {
	x, err := tensor.Zeros[uint8](nil, tensor.Shape{2, 3})
	require.NoError(t, err)
	defer x.Release()
	p, err := x.Permute(1, 0)
	require.NoError(t, err)
	defer p.Release()

	var buf bytes.Buffer
	err = EncodeSafeTensors(&buf, map[string]RawTensor{"p": p}, nil)
	assert.ErrorIs(t, err, tensor.ErrNotContiguous)

	err = EncodeSafeTensors(&buf, map[string]RawTensor{"../p": x}, nil)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestSafeTensorsOverlap(t *testing.T) {
	header := `{"a":{"dtype":"U8","shape":[4],"data_offsets":[0,4]},"b":{"dtype":"U8","shape":[4],"data_offsets":[2,6]}}`
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.WriteString(header)
	buf.Write(make([]byte, 6))
	size := int64(buf.Len())

	_, err := DecodeSafeTensors(bytes.NewReader(buf.Bytes()), size, ReaderOptions{})
	assert.ErrorIs(t, err, ErrOffsetOverlap)

	f, err := DecodeSafeTensors(bytes.NewReader(buf.Bytes()), size, ReaderOptions{ValidationLevel: ValidationNone})
	require.NoError(t, err)
	assert.Len(t, f.Tensors, 2)
}
