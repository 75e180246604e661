package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"citementor-api/internal/domain/entity"
	apperrors "citementor-api/pkg/errors"
)

type stubEmbedder struct {
	vec []float64
	err error
}

func (s *stubEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

type stubVectorRepo struct {
	results   []*VectorSearchResult
	searchErr error

	inserted []*VectorPassage
	deleted  []entity.Genre
}

func (s *stubVectorRepo) EnsurePassagesCollection(context.Context) error { return nil }

func (s *stubVectorRepo) SearchPassages(_ context.Context, _ *VectorSearchParams) ([]*VectorSearchResult, error) {
	return s.results, s.searchErr
}

func (s *stubVectorRepo) DeleteGenrePassages(_ context.Context, g entity.Genre) error {
	s.deleted = append(s.deleted, g)
	return nil
}

func (s *stubVectorRepo) InsertPassages(_ context.Context, rows []*VectorPassage) error {
	s.inserted = append(s.inserted, rows...)
	return nil
}

func result(id string, score float32, position int64) *VectorSearchResult {
	return &VectorSearchResult{
		ID:        id,
		Score:     score,
		BookID:    "philosophy/meditations",
		BookTitle: "Meditations",
		Author:    "Marcus Aurelius",
		Genre:     "philosophy",
		Position:  position,
		Text:      "Some passage text.",
	}
}

func TestSearchOrdersByScoreThenPosition(t *testing.T) {
	repo := &stubVectorRepo{results: []*VectorSearchResult{
		result("p#5", 0.70, 5),
		result("p#2", 0.90, 2),
		result("p#9", 0.70, 9),
		result("p#1", 0.70, 1),
	}}
	r := NewRetriever(&stubEmbedder{vec: []float64{1, 0}}, repo, 0.15)

	out, err := r.Search(context.Background(), SearchInput{
		Genre: entity.GenrePhilosophy,
		Query: "how to live",
		TopK:  4,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	wantOrder := []string{"p#2", "p#1", "p#5", "p#9"}
	if len(out.Passages) != len(wantOrder) {
		t.Fatalf("结果数 = %d, want %d", len(out.Passages), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got := out.Passages[i].Passage.ID; got != want {
			t.Errorf("第 %d 名 = %s, want %s", i, got, want)
		}
	}
}

func TestSearchFiltersBelowMinScore(t *testing.T) {
	repo := &stubVectorRepo{results: []*VectorSearchResult{
		result("keep", 0.50, 0),
		result("drop", 0.05, 1),
	}}
	r := NewRetriever(&stubEmbedder{vec: []float64{1, 0}}, repo, 0.15)

	out, err := r.Search(context.Background(), SearchInput{Genre: entity.GenrePhilosophy, Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(out.Passages) != 1 || out.Passages[0].Passage.ID != "keep" {
		t.Errorf("低分段落应被过滤, got %+v", out.Passages)
	}
}

func TestSearchEmptyResultIsNotError(t *testing.T) {
	repo := &stubVectorRepo{}
	r := NewRetriever(&stubEmbedder{vec: []float64{1, 0}}, repo, 0.15)

	out, err := r.Search(context.Background(), SearchInput{Genre: entity.GenreWealth, Query: "q"})
	if err != nil {
		t.Fatalf("空召回不应报错, got %v", err)
	}
	if len(out.Passages) != 0 {
		t.Errorf("期望空结果, got %d", len(out.Passages))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	r := NewRetriever(&stubEmbedder{vec: []float64{1}}, &stubVectorRepo{}, 0.15)
	if _, err := r.Search(context.Background(), SearchInput{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("空白查询应返回 ErrEmptyQuery, got %v", err)
	}
}

func TestSearchEmbeddingFailureCode(t *testing.T) {
	emb := &stubEmbedder{err: errors.New("embedding backend down")}
	r := NewRetriever(emb, &stubVectorRepo{}, 0)

	_, err := r.Search(context.Background(), SearchInput{Genre: entity.GenrePhilosophy, Query: "virtue"})
	if apperrors.CodeOf(err) != apperrors.CodeEmbeddingFailed {
		t.Errorf("向量化失败应返回 CodeEmbeddingFailed, got %v", err)
	}
}

func TestSearchDisabledWithoutEmbedder(t *testing.T) {
	r := NewRetriever(nil, &stubVectorRepo{}, 0.15)
	out, err := r.Search(context.Background(), SearchInput{Genre: entity.GenreWealth, Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if out.DisabledReason == "" {
		t.Error("缺少 embedder 时应报告降级原因")
	}
}

func TestIndexGenreClearsThenInserts(t *testing.T) {
	repo := &stubVectorRepo{}
	idx := NewIndexer(&stubEmbedder{vec: []float64{0.5, 0.5}}, repo, 2)

	book := &entity.Book{
		ID:     "wealth/richest-man",
		Title:  "The Richest Man in Babylon",
		Author: "George S. Clason",
		Genre:  entity.GenreWealth,
		Passages: []entity.Passage{
			{ID: "wealth/richest-man#0", Position: 0, Text: "Pay yourself first.", Genre: entity.GenreWealth},
			{ID: "wealth/richest-man#1", Position: 1, Text: "Make thy gold multiply.", Genre: entity.GenreWealth},
			{ID: "wealth/richest-man#2", Position: 2, Text: "Guard thy treasures from loss.", Genre: entity.GenreWealth},
		},
	}

	if err := idx.IndexGenre(context.Background(), entity.GenreWealth, []*entity.Book{book}); err != nil {
		t.Fatalf("IndexGenre() error = %v", err)
	}

	if len(repo.deleted) != 1 || repo.deleted[0] != entity.GenreWealth {
		t.Errorf("应先清空书架旧索引, deleted = %v", repo.deleted)
	}
	if len(repo.inserted) != 3 {
		t.Fatalf("写入段落数 = %d, want 3", len(repo.inserted))
	}
	if repo.inserted[2].ID != "wealth/richest-man#2" {
		t.Errorf("段落顺序不符: %s", repo.inserted[2].ID)
	}
}

func TestBuildPromptContext(t *testing.T) {
	passages := []entity.ScoredPassage{
		{Passage: entity.Passage{BookTitle: "Meditations", Author: "Marcus Aurelius", Text: "Line one.\nLine two."}, Score: 0.9},
	}
	got := BuildPromptContext(passages, 100)
	if got == "" {
		t.Fatal("非空召回应生成上下文")
	}
	if want := "[1] (Meditations, Marcus Aurelius) Line one. Line two."; !strings.Contains(got, want) {
		t.Errorf("上下文缺少引用行:\n%s", got)
	}
	if BuildPromptContext(nil, 100) != "" {
		t.Error("空召回应返回空上下文")
	}
}
