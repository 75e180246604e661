// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"strings"

	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repository 段落向量仓储
type Repository struct {
	client    *Client
	dimension int
}

// NewRepository 创建段落向量仓储；dimension 为 embedding 向量维度
func NewRepository(client *Client, dimension int) *Repository {
	return &Repository{client: client, dimension: dimension}
}

// SearchParams 检索参数
type SearchParams struct {
	Genre       string
	QueryVector []float32
	TopK        int
}

// SearchResult 检索结果
type SearchResult struct {
	ID          string
	Score       float32
	Genre       string
	BookID      string
	BookTitle   string
	Author      string
	Position    int64
	TextContent string
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *milvusentity.Schema) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	collName := r.client.CollectionName(schema.CollectionName)
	schema.CollectionName = collName

	err := r.client.milvus.CreateCollection(ctx, schema, milvusentity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := milvusentity.NewIndexHNSW(
		milvusentity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// CreatePartition 创建书架分区
func (r *Repository) CreatePartition(ctx context.Context, collection, genre string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreatePartition",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("partition", PartitionName(genre)),
		))
	defer span.End()

	collName := r.client.CollectionName(collection)
	return r.client.milvus.CreatePartition(ctx, collName, PartitionName(genre))
}

// SearchPassages 在指定书架分区内检索段落
func (r *Repository) SearchPassages(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchPassages",
		trace.WithAttributes(
			attribute.String("genre", params.Genre),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	collName := r.client.CollectionName(CollectionBookPassages)
	partitionName := PartitionName(params.Genre)

	// 分区尚未创建（例如书架还没索引过）时直接返回空结果，避免 Milvus 报 partition not found。
	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return []*SearchResult{}, nil
	}

	filter := fmt.Sprintf(`genre == "%s"`, params.Genre)

	sp, err := milvusentity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		filter,
		[]string{"id", "genre", "book_id", "book_title", "author", "position", "text_content"},
		[]milvusentity.Vector{milvusentity.FloatVector(params.QueryVector)},
		"vector",
		milvusentity.COSINE,
		params.TopK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{
				Score: result.Scores[i],
			}

			if col, ok := result.Fields.GetColumn("id").(*milvusentity.ColumnVarChar); ok {
				sr.ID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("genre").(*milvusentity.ColumnVarChar); ok {
				sr.Genre = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("book_id").(*milvusentity.ColumnVarChar); ok {
				sr.BookID = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("book_title").(*milvusentity.ColumnVarChar); ok {
				sr.BookTitle = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("author").(*milvusentity.ColumnVarChar); ok {
				sr.Author = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("position").(*milvusentity.ColumnInt64); ok {
				sr.Position = col.Data()[i]
			}
			if col, ok := result.Fields.GetColumn("text_content").(*milvusentity.ColumnVarChar); ok {
				sr.TextContent = col.Data()[i]
			}

			searchResults = append(searchResults, sr)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(searchResults)))
	return searchResults, nil
}

// InsertPassages 插入书籍段落
func (r *Repository) InsertPassages(ctx context.Context, genre string, passages []*BookPassage) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertPassages",
		trace.WithAttributes(
			attribute.String("genre", genre),
			attribute.Int("count", len(passages)),
		))
	defer span.End()

	if len(passages) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionBookPassages)
	partitionName := PartitionName(genre)

	has, _ := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if !has {
		if err := r.CreatePartition(ctx, CollectionBookPassages, genre); err != nil {
			return err
		}
	}

	ids := make([]string, len(passages))
	vectors := make([][]float32, len(passages))
	genres := make([]string, len(passages))
	bookIDs := make([]string, len(passages))
	bookTitles := make([]string, len(passages))
	authors := make([]string, len(passages))
	positions := make([]int64, len(passages))
	textContents := make([]string, len(passages))

	for i, p := range passages {
		ids[i] = p.ID
		vectors[i] = p.Vector
		genres[i] = p.Genre
		bookIDs[i] = p.BookID
		bookTitles[i] = p.BookTitle
		authors[i] = p.Author
		positions[i] = p.Position
		textContents[i] = p.TextContent
	}

	idCol := milvusentity.NewColumnVarChar("id", ids)
	vectorCol := milvusentity.NewColumnFloatVector("vector", r.dimension, vectors)
	genreCol := milvusentity.NewColumnVarChar("genre", genres)
	bookIDCol := milvusentity.NewColumnVarChar("book_id", bookIDs)
	titleCol := milvusentity.NewColumnVarChar("book_title", bookTitles)
	authorCol := milvusentity.NewColumnVarChar("author", authors)
	positionCol := milvusentity.NewColumnInt64("position", positions)
	textCol := milvusentity.NewColumnVarChar("text_content", textContents)

	_, err := r.client.milvus.Insert(ctx, collName, partitionName,
		idCol, vectorCol, genreCol, bookIDCol, titleCol, authorCol, positionCol, textCol)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert passages: %w", err)
	}

	return nil
}

// DeleteGenrePassages 删除整个书架的段落
func (r *Repository) DeleteGenrePassages(ctx context.Context, genre string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "milvus.DeleteGenrePassages",
		trace.WithAttributes(attribute.String("genre", genre)))
	defer span.End()

	collName := r.client.CollectionName(CollectionBookPassages)
	partitionName := PartitionName(genre)

	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	filter := fmt.Sprintf(`genre == "%s"`, genre)
	if err := r.client.milvus.Delete(ctx, collName, partitionName, filter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete passages: %w", err)
	}
	return nil
}

// EnsureBookPassagesCollection 确保 book_passages 集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureBookPassagesCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionBookPassages)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, BookPassagesSchema(r.dimension)); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.CreateIndex(ctx, CollectionBookPassages)
	}

	// 尝试确保集合已加载（若已加载，Milvus 会返回成功）
	return r.client.LoadCollection(ctx, CollectionBookPassages)
}
