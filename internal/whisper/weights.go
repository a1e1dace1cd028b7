package whisper

import (
	"fmt"
	"sort"
	"strings"
)

// NormalizeWeights applies the parameter-layout fixups the engine expects:
// the positional embedding key is renamed, and 3-dimensional convolution
// kernels are transposed from (out, in, width) to (out, width, in).
// The result is sorted by name for deterministic construction.
func NormalizeWeights(tensors map[string]Tensor) ([]NamedTensor, error) {
	out := make([]NamedTensor, 0, len(tensors))

	for name, t := range tensors {
		name = strings.Replace(name, "embed_positions.weight", "positional_embedding", 1)

		if strings.Contains(name, "conv") && len(t.Shape) == 3 {
			swapped, err := swapAxes12(t)
			if err != nil {
				return nil, fmt.Errorf("normalize %q: %w", name, err)
			}
			t = swapped
		}

		out = append(out, NamedTensor{Name: name, Tensor: t})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// swapAxes12 transposes axes 1 and 2 of a rank-3 tensor, relaying the raw
// element buffer accordingly.
func swapAxes12(t Tensor) (Tensor, error) {
	if len(t.Shape) != 3 {
		return Tensor{}, fmt.Errorf("expected rank-3 tensor, got shape %v", t.Shape)
	}
	elemSize, ok := dtypeSizes[t.DType]
	if !ok {
		return Tensor{}, fmt.Errorf("unsupported dtype %q", t.DType)
	}

	d0, d1, d2 := t.Shape[0], t.Shape[1], t.Shape[2]
	out := make([]byte, len(t.Data))

	for i0 := 0; i0 < d0; i0++ {
		for i1 := 0; i1 < d1; i1++ {
			for i2 := 0; i2 < d2; i2++ {
				src := ((i0*d1+i1)*d2 + i2) * elemSize
				dst := ((i0*d2+i2)*d1 + i1) * elemSize
				copy(out[dst:dst+elemSize], t.Data[src:src+elemSize])
			}
		}
	}

	return Tensor{DType: t.DType, Shape: []int{d0, d2, d1}, Data: out}, nil
}
