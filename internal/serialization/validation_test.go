package serialization

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantType string
	}{
		{
			name: "no overlap",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 0, Size: 100},
				{Name: "tensor2", Offset: 100, Size: 200},
				{Name: "tensor3", Offset: 300, Size: 150},
			},
			dataSize: 500,
		},
		{
			name: "partial overlap at boundary",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 0, Size: 100},
				{Name: "tensor2", Offset: 99, Size: 100},
			},
			dataSize: 200,
			wantType: "offset_overlap",
		},
		{
			name: "tensor extends beyond data",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 100, Size: 200},
			},
			dataSize: 250,
			wantType: "out_of_bounds",
		},
		{
			name: "size overflow",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 10, Size: 1<<63 - 1},
			},
			dataSize: 250,
			wantType: "out_of_bounds",
		},
		{
			name: "negative size",
			tensors: []TensorMeta{
				{Name: "tensor1", Offset: 10, Size: -4},
			},
			dataSize: 250,
			wantType: "negative_offset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantType, vErr.Type)
		})
	}
}

func TestValidateTensorName(t *testing.T) {
	valid := []string{"images", "labels", "batch.0.images"}
	for _, name := range valid {
		assert.NoError(t, ValidateTensorName(name), name)
	}

	invalid := []string{"", "../etc", "a/b", `a\b`, "a\x00b", strings.Repeat("x", MaxTensorNameLen+1)}
	for _, name := range invalid {
		assert.Error(t, ValidateTensorName(name), "%q", name)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Type: "offset_overlap", Tensor: "a", Tensor2: "b", Details: "x", Err: ErrOffsetOverlap}
	assert.Equal(t, `offset_overlap: tensors "a" and "b": x`, err.Error())
	assert.ErrorIs(t, err, ErrOffsetOverlap)
}
