package whisper

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Tensor is a raw parameter tensor as stored in a safetensors file.
type Tensor struct {
	// DType is the safetensors element type (e.g. "F32", "F16").
	DType string
	// Shape lists the tensor dimensions, outermost first.
	Shape []int
	// Data is the raw little-endian element buffer.
	Data []byte
}

// NamedTensor pairs a parameter name with its tensor.
type NamedTensor struct {
	Name string
	Tensor
}

// Elems returns the number of elements implied by the shape.
func (t Tensor) Elems() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// safetensors layout: an 8-byte little-endian header length N, followed by
// N bytes of JSON mapping tensor names to {dtype, shape, data_offsets},
// followed by the concatenated raw tensor data. Offsets are relative to
// the start of the data section.
type tensorHeader struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

var dtypeSizes = map[string]int{
	"F64":  8,
	"F32":  4,
	"F16":  2,
	"BF16": 2,
	"I64":  8,
	"I32":  4,
	"I16":  2,
	"I8":   1,
	"U8":   1,
	"BOOL": 1,
}

// ParseSafetensors decodes a safetensors buffer into its named tensors.
// Tensor data is sliced from b, not copied.
func ParseSafetensors(b []byte) (map[string]Tensor, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("safetensors: buffer too short (%d bytes)", len(b))
	}

	headerLen := binary.LittleEndian.Uint64(b[:8])
	if headerLen > uint64(len(b)-8) {
		return nil, fmt.Errorf("safetensors: header length %d exceeds buffer", headerLen)
	}

	var headers map[string]json.RawMessage
	if err := json.Unmarshal(b[8:8+headerLen], &headers); err != nil {
		return nil, fmt.Errorf("safetensors: decode header: %w", err)
	}

	data := b[8+headerLen:]
	tensors := make(map[string]Tensor, len(headers))

	for name, raw := range headers {
		if name == "__metadata__" {
			continue
		}

		var h tensorHeader
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("safetensors: decode entry %q: %w", name, err)
		}

		elemSize, ok := dtypeSizes[h.DType]
		if !ok {
			return nil, fmt.Errorf("safetensors: tensor %q has unsupported dtype %q", name, h.DType)
		}

		start, end := h.DataOffsets[0], h.DataOffsets[1]
		if start < 0 || end < start || end > len(data) {
			return nil, fmt.Errorf("safetensors: tensor %q has invalid offsets [%d, %d]", name, start, end)
		}

		t := Tensor{DType: h.DType, Shape: h.Shape, Data: data[start:end]}
		if want := t.Elems() * elemSize; want != end-start {
			return nil, fmt.Errorf("safetensors: tensor %q shape %v implies %d bytes, got %d",
				name, h.Shape, want, end-start)
		}

		tensors[name] = t
	}

	return tensors, nil
}
