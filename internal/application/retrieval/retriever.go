// Package retrieval 提供书架内段落的向量检索与索引
package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"citementor-api/internal/domain/entity"
	apperrors "citementor-api/pkg/errors"
	"citementor-api/pkg/metrics"
)

const (
	defaultTopK     = 3
	maxTopK         = 10
	defaultMinScore = 0.15
)

type Retriever struct {
	embedder embedding.Embedder
	vector   VectorRepository

	minScore float64
}

func NewRetriever(embedder embedding.Embedder, vectorRepo VectorRepository, minScore float64) *Retriever {
	ms := minScore
	if ms <= 0 {
		ms = defaultMinScore
	}
	return &Retriever{
		embedder: embedder,
		vector:   vectorRepo,
		minScore: ms,
	}
}

func (r *Retriever) Enabled() bool {
	return r != nil && r.embedder != nil && r.vector != nil
}

func (r *Retriever) ensureReady(ctx context.Context) error {
	if r == nil || r.vector == nil {
		return ErrVectorDisabled
	}
	return r.vector.EnsurePassagesCollection(ctx)
}

// Search 在指定书架内检索与查询最相关的段落。
// 结果按相似度降序；同分时按段落在书中的先后排序。召回为空不是错误。
func (r *Retriever) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	if in.TopK <= 0 {
		in.TopK = defaultTopK
	}
	if in.TopK > maxTopK {
		in.TopK = maxTopK
	}
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, ErrEmptyQuery
	}

	minScore := in.MinScore
	if minScore <= 0 {
		minScore = r.minScore
	}

	out := &SearchOutput{}

	if !r.Enabled() {
		out.DisabledReason = ErrVectorDisabled.Error()
		return out, nil
	}
	if err := r.ensureReady(ctx); err != nil {
		out.DisabledReason = err.Error()
		return out, nil
	}

	emb, err := r.embedQuery(ctx, in.Query)
	if err != nil {
		return nil, err
	}
	if in.IncludeEmbedding {
		out.QueryEmbedding = emb
	}

	start := time.Now()
	results, err := r.vector.SearchPassages(ctx, &VectorSearchParams{
		Genre:       in.Genre,
		QueryVector: emb,
		TopK:        in.TopK,
	})
	metrics.VectorSearchDuration.WithLabelValues("primary").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	out.Passages = make([]entity.ScoredPassage, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		score := float64(res.Score)
		if score < minScore {
			continue
		}
		out.Passages = append(out.Passages, entity.ScoredPassage{
			Passage: entity.Passage{
				ID:        strings.TrimSpace(res.ID),
				BookID:    strings.TrimSpace(res.BookID),
				BookTitle: strings.TrimSpace(res.BookTitle),
				Author:    strings.TrimSpace(res.Author),
				Genre:     entity.Genre(res.Genre),
				Position:  int(res.Position),
				Text:      strings.TrimSpace(res.Text),
			},
			Score: score,
		})
	}

	sort.SliceStable(out.Passages, func(i, j int) bool {
		if out.Passages[i].Score != out.Passages[j].Score {
			return out.Passages[i].Score > out.Passages[j].Score
		}
		return out.Passages[i].Passage.Position < out.Passages[j].Passage.Position
	})
	if len(out.Passages) > in.TopK {
		out.Passages = out.Passages[:in.TopK]
	}

	metrics.RetrievalHits.WithLabelValues(in.Genre.String()).Observe(float64(len(out.Passages)))
	return out, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r == nil || r.embedder == nil {
		return nil, ErrVectorDisabled
	}
	v64, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "查询向量化失败")
	}
	if len(v64) == 0 {
		return nil, apperrors.New(apperrors.CodeEmbeddingFailed, "查询向量化结果为空")
	}
	vec := v64[0]
	out := make([]float32, 0, len(vec))
	for _, x := range vec {
		out = append(out, float32(x))
	}
	return out, nil
}
