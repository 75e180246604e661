package retrieval

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	"citementor-api/internal/domain/entity"
	"citementor-api/pkg/logger"
)

const defaultEmbeddingBatch = 32

// Indexer 将书籍段落批量写入向量库
type Indexer struct {
	embedder embedding.Embedder
	vector   VectorRepository

	embeddingBatchSize int
}

func NewIndexer(embedder embedding.Embedder, vectorRepo VectorRepository, embeddingBatchSize int) *Indexer {
	bs := embeddingBatchSize
	if bs <= 0 {
		bs = defaultEmbeddingBatch
	}
	return &Indexer{
		embedder:           embedder,
		vector:             vectorRepo,
		embeddingBatchSize: bs,
	}
}

func (i *Indexer) Enabled() bool {
	return i != nil && i.embedder != nil && i.vector != nil
}

func (i *Indexer) ensureReady(ctx context.Context) error {
	if i == nil || i.vector == nil {
		return ErrVectorDisabled
	}
	return i.vector.EnsurePassagesCollection(ctx)
}

// IndexGenre 重建单个书架的索引：先清空旧段落，再分批写入
func (i *Indexer) IndexGenre(ctx context.Context, genre entity.Genre, books []*entity.Book) error {
	if !i.Enabled() {
		return ErrVectorDisabled
	}
	if err := i.ensureReady(ctx); err != nil {
		return err
	}
	if !genre.IsValid() {
		return fmt.Errorf("unknown genre: %s", genre)
	}

	if err := i.vector.DeleteGenrePassages(ctx, genre); err != nil {
		return fmt.Errorf("清空书架旧索引失败: %w", err)
	}

	var batch []*entity.Passage
	for _, b := range books {
		if b == nil || b.Genre != genre {
			continue
		}
		for idx := range b.Passages {
			batch = append(batch, &b.Passages[idx])
			if len(batch) >= i.embeddingBatchSize {
				if err := i.indexBatch(ctx, batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
	}
	if len(batch) > 0 {
		if err := i.indexBatch(ctx, batch); err != nil {
			return err
		}
	}

	logger.Info(ctx, "书架索引重建完成", "genre", genre.String())
	return nil
}

func (i *Indexer) indexBatch(ctx context.Context, passages []*entity.Passage) error {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}

	vecs, err := i.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return fmt.Errorf("批量 embedding 失败: %w", err)
	}
	if len(vecs) != len(passages) {
		return fmt.Errorf("embedding 结果数量不匹配: got %d, want %d", len(vecs), len(passages))
	}

	rows := make([]*VectorPassage, 0, len(passages))
	for idx, p := range passages {
		vec := make([]float32, 0, len(vecs[idx]))
		for _, x := range vecs[idx] {
			vec = append(vec, float32(x))
		}
		rows = append(rows, &VectorPassage{
			ID:        p.ID,
			BookID:    p.BookID,
			BookTitle: p.BookTitle,
			Author:    p.Author,
			Genre:     p.Genre,
			Position:  int64(p.Position),
			Text:      p.Text,
			Vector:    vec,
		})
	}
	return i.vector.InsertPassages(ctx, rows)
}
