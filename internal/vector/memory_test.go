package vector

import (
	"context"
	"math"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids := []string{"a", "b", "c"}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{2, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("order: %s, %s", results[0].ID, results[1].ID)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("unnormalized query should still score ~1, got %f", results[0].Score)
	}
}

func TestMemoryIndex_SearchNonIncreasingAndBounded(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx,
		[]string{"p", "q", "r", "s", "t"},
		[][]float32{{1, 0}, {0, 1}, {1, 1}, {-1, 0}, {0.5, 0.2}})
	for k := 0; k <= 7; k++ {
		res, err := idx.Search(ctx, []float32{0.3, 0.7}, k)
		if err != nil {
			t.Fatal(err)
		}
		want := k
		if want > 5 {
			want = 5
		}
		if len(res) != want {
			t.Errorf("k=%d: got %d results", k, len(res))
		}
		for i := 1; i < len(res); i++ {
			if res[i].Score > res[i-1].Score {
				t.Errorf("k=%d: scores increase at %d", k, i)
			}
		}
	}
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"first", "second", "third"}, [][]float32{{1, 0}, {1, 0}, {1, 0}})
	res, _ := idx.Search(ctx, []float32{1, 0}, 3)
	for i, want := range []string{"first", "second", "third"} {
		if res[i].ID != want || res[i].Position != i {
			t.Errorf("result %d: got %s@%d", i, res[i].ID, res[i].Position)
		}
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"x"}, [][]float32{{1, 2, 3}}); err == nil {
		t.Error("expected add error")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected search error")
	}
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}
