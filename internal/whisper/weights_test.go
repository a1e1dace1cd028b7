package whisper

import (
	"bytes"
	"reflect"
	"testing"
)

func TestNormalizeWeights_RenamesPositionalEmbedding(t *testing.T) {
	got, err := NormalizeWeights(map[string]Tensor{
		"model.decoder.embed_positions.weight": {DType: "F32", Shape: []int{2}, Data: f32Bytes(1, 2)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 tensor, got %d", len(got))
	}
	if got[0].Name != "model.decoder.positional_embedding" {
		t.Errorf("name = %q, want %q", got[0].Name, "model.decoder.positional_embedding")
	}
}

func TestNormalizeWeights_TransposesConvKernels(t *testing.T) {
	// Shape (1, 2, 3) with elements 0..5; after swapping axes 1 and 2 the
	// element at (0, i, j) moves to (0, j, i).
	in := map[string]Tensor{
		"encoder.conv1.weight": {DType: "F32", Shape: []int{1, 2, 3}, Data: f32Bytes(0, 1, 2, 3, 4, 5)},
	}

	got, err := NormalizeWeights(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conv := got[0]
	if !reflect.DeepEqual(conv.Shape, []int{1, 3, 2}) {
		t.Fatalf("shape = %v, want [1 3 2]", conv.Shape)
	}
	want := f32Bytes(0, 3, 1, 4, 2, 5)
	if !bytes.Equal(conv.Data, want) {
		t.Errorf("data = %v, want %v", conv.Data, want)
	}
}

func TestNormalizeWeights_LeavesNonConvAlone(t *testing.T) {
	data := f32Bytes(1, 2, 3, 4, 5, 6)
	got, err := NormalizeWeights(map[string]Tensor{
		"encoder.attn.weight": {DType: "F32", Shape: []int{1, 2, 3}, Data: data},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got[0].Shape, []int{1, 2, 3}) {
		t.Errorf("shape = %v, want unchanged [1 2 3]", got[0].Shape)
	}
	if !bytes.Equal(got[0].Data, data) {
		t.Error("data changed for non-conv tensor")
	}
}

func TestNormalizeWeights_SortedByName(t *testing.T) {
	got, err := NormalizeWeights(map[string]Tensor{
		"z.weight": {DType: "F32", Shape: []int{1}, Data: f32Bytes(1)},
		"a.weight": {DType: "F32", Shape: []int{1}, Data: f32Bytes(2)},
		"m.bias":   {DType: "F32", Shape: []int{1}, Data: f32Bytes(3)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Name >= got[i].Name {
			t.Fatalf("tensors not sorted: %q before %q", got[i-1].Name, got[i].Name)
		}
	}
}

func TestSwapAxes12_RejectsWrongRank(t *testing.T) {
	if _, err := swapAxes12(Tensor{DType: "F32", Shape: []int{2, 2}, Data: f32Bytes(1, 2, 3, 4)}); err == nil {
		t.Fatal("expected error for rank-2 tensor")
	}
}
