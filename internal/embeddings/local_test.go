package embeddings_test

import (
	"testing"

	"github.com/docrag/docrag/internal/embeddings"
)

func Test_LocalEmbedder_Deterministic(t *testing.T) {
	e := embeddings.NewLocal(8)
	v1, _ := e.EmbedQuery("hello")
	v2, _ := e.EmbedQuery("hello")
	if len(v1) != 8 || len(v2) != 8 {
		t.Fatalf("unexpected dim")
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func Test_LocalEmbedder_BatchMatchesSingle(t *testing.T) {
	e := embeddings.NewLocal(16)
	batch, err := e.EmbedTexts([]string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	single, _ := e.EmbedQuery("beta")
	if len(batch) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(batch))
	}
	for i := range single {
		if batch[1][i] != single[i] {
			t.Fatalf("batch vector differs at %d", i)
		}
	}
}
