package retrieval

import (
	"context"

	"citementor-api/internal/domain/entity"
)

// VectorRepository 定义应用层对“向量存储/检索”的最小依赖（port）。
// 由基础设施层提供具体实现（Milvus 或内存存储）。
type VectorRepository interface {
	EnsurePassagesCollection(ctx context.Context) error
	SearchPassages(ctx context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error)
	DeleteGenrePassages(ctx context.Context, genre entity.Genre) error
	InsertPassages(ctx context.Context, passages []*VectorPassage) error
}

type VectorSearchParams struct {
	Genre       entity.Genre
	QueryVector []float32
	TopK        int
}

type VectorSearchResult struct {
	ID        string
	Score     float32
	BookID    string
	BookTitle string
	Author    string
	Genre     string
	Position  int64
	Text      string
}

type VectorPassage struct {
	ID        string
	BookID    string
	BookTitle string
	Author    string
	Genre     entity.Genre
	Position  int64
	Text      string
	Vector    []float32
}
