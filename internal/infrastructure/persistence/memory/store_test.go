package memory

import (
	"context"
	"testing"

	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/domain/entity"
)

func row(id string, genre entity.Genre, position int64, vec []float32) *retrieval.VectorPassage {
	return &retrieval.VectorPassage{
		ID:       id,
		Genre:    genre,
		Position: position,
		Vector:   vec,
	}
}

func TestSearchRanksByCosine(t *testing.T) {
	s := NewStore()
	err := s.InsertPassages(context.Background(), []*retrieval.VectorPassage{
		row("far", entity.GenreWealth, 0, []float32{0, 1}),
		row("near", entity.GenreWealth, 1, []float32{1, 0.1}),
		row("exact", entity.GenreWealth, 2, []float32{1, 0}),
	})
	if err != nil {
		t.Fatalf("InsertPassages() error = %v", err)
	}

	out, err := s.SearchPassages(context.Background(), &retrieval.VectorSearchParams{
		Genre:       entity.GenreWealth,
		QueryVector: []float32{1, 0},
		TopK:        2,
	})
	if err != nil {
		t.Fatalf("SearchPassages() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("结果数 = %d, want 2", len(out))
	}
	if out[0].ID != "exact" || out[1].ID != "near" {
		t.Errorf("排序错误: %s, %s", out[0].ID, out[1].ID)
	}
}

func TestSearchFiltersByGenre(t *testing.T) {
	s := NewStore()
	_ = s.InsertPassages(context.Background(), []*retrieval.VectorPassage{
		row("w", entity.GenreWealth, 0, []float32{1, 0}),
		row("p", entity.GenrePhilosophy, 0, []float32{1, 0}),
	})

	out, err := s.SearchPassages(context.Background(), &retrieval.VectorSearchParams{
		Genre:       entity.GenrePhilosophy,
		QueryVector: []float32{1, 0},
		TopK:        10,
	})
	if err != nil {
		t.Fatalf("SearchPassages() error = %v", err)
	}
	if len(out) != 1 || out[0].ID != "p" {
		t.Errorf("书架过滤失败: %+v", out)
	}
}

func TestDeleteGenrePassages(t *testing.T) {
	s := NewStore()
	_ = s.InsertPassages(context.Background(), []*retrieval.VectorPassage{
		row("w", entity.GenreWealth, 0, []float32{1, 0}),
		row("p", entity.GenrePhilosophy, 0, []float32{0, 1}),
	})

	if err := s.DeleteGenrePassages(context.Background(), entity.GenreWealth); err != nil {
		t.Fatalf("DeleteGenrePassages() error = %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("剩余段落数 = %d, want 1", s.Len())
	}
}
