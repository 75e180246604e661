package milvus

import (
	"context"

	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/domain/entity"
)

// RetrievalVectorRepository 将 Milvus 仓储适配为应用层的向量 port
type RetrievalVectorRepository struct {
	repo *Repository
}

func NewRetrievalVectorRepository(repo *Repository) *RetrievalVectorRepository {
	return &RetrievalVectorRepository{repo: repo}
}

var _ retrieval.VectorRepository = (*RetrievalVectorRepository)(nil)

func (r *RetrievalVectorRepository) EnsurePassagesCollection(ctx context.Context) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.EnsureBookPassagesCollection(ctx)
}

func (r *RetrievalVectorRepository) SearchPassages(ctx context.Context, params *retrieval.VectorSearchParams) ([]*retrieval.VectorSearchResult, error) {
	if r == nil || r.repo == nil {
		return nil, retrieval.ErrVectorDisabled
	}
	if params == nil {
		return nil, nil
	}

	out, err := r.repo.SearchPassages(ctx, &SearchParams{
		Genre:       params.Genre.String(),
		QueryVector: params.QueryVector,
		TopK:        params.TopK,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*retrieval.VectorSearchResult, 0, len(out))
	for i := range out {
		v := out[i]
		if v == nil {
			continue
		}
		results = append(results, &retrieval.VectorSearchResult{
			ID:        v.ID,
			Score:     v.Score,
			BookID:    v.BookID,
			BookTitle: v.BookTitle,
			Author:    v.Author,
			Genre:     v.Genre,
			Position:  v.Position,
			Text:      v.TextContent,
		})
	}
	return results, nil
}

func (r *RetrievalVectorRepository) DeleteGenrePassages(ctx context.Context, genre entity.Genre) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.DeleteGenrePassages(ctx, genre.String())
}

func (r *RetrievalVectorRepository) InsertPassages(ctx context.Context, passages []*retrieval.VectorPassage) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	if len(passages) == 0 {
		return nil
	}

	// 按书架分组写入对应分区
	byGenre := make(map[string][]*BookPassage)
	for i := range passages {
		p := passages[i]
		if p == nil {
			continue
		}
		g := p.Genre.String()
		byGenre[g] = append(byGenre[g], &BookPassage{
			ID:          p.ID,
			Vector:      p.Vector,
			Genre:       g,
			BookID:      p.BookID,
			BookTitle:   p.BookTitle,
			Author:      p.Author,
			Position:    p.Position,
			TextContent: p.Text,
		})
	}
	for g, rows := range byGenre {
		if err := r.repo.InsertPassages(ctx, g, rows); err != nil {
			return err
		}
	}
	return nil
}
