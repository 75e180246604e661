// Package memory 提供纯内存的向量存储，适用于开发环境与小语料
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/domain/entity"
)

// Store 基于暴力余弦相似度的内存向量库，实现 retrieval.VectorRepository
type Store struct {
	mu   sync.RWMutex
	rows []*retrieval.VectorPassage
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) EnsurePassagesCollection(context.Context) error {
	return nil
}

func (s *Store) InsertPassages(_ context.Context, passages []*retrieval.VectorPassage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range passages {
		if p == nil || len(p.Vector) == 0 {
			continue
		}
		s.rows = append(s.rows, p)
	}
	return nil
}

func (s *Store) DeleteGenrePassages(_ context.Context, genre entity.Genre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.Genre != genre {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

func (s *Store) SearchPassages(_ context.Context, params *retrieval.VectorSearchParams) ([]*retrieval.VectorSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		row   *retrieval.VectorPassage
		score float32
	}

	candidates := make([]scored, 0, len(s.rows))
	for _, r := range s.rows {
		if params.Genre != "" && r.Genre != params.Genre {
			continue
		}
		candidates = append(candidates, scored{row: r, score: cosine(params.QueryVector, r.Vector)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].row.Position < candidates[j].row.Position
	})

	topK := params.TopK
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}

	out := make([]*retrieval.VectorSearchResult, 0, topK)
	for _, c := range candidates[:topK] {
		out = append(out, &retrieval.VectorSearchResult{
			ID:        c.row.ID,
			Score:     c.score,
			BookID:    c.row.BookID,
			BookTitle: c.row.BookTitle,
			Author:    c.row.Author,
			Genre:     c.row.Genre.String(),
			Position:  c.row.Position,
			Text:      c.row.Text,
		})
	}
	return out, nil
}

// Len 返回当前段落总数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
