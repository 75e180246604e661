package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"citementor-api/internal/domain/entity"
)

// fakeEmbedder 返回预置向量的测试替身
type fakeEmbedder struct {
	vectors        map[string][]float64
	fallbackVector []float64
	err            error
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, f.fallbackVector)
	}
	return out, nil
}

func TestRouteByLexicon(t *testing.T) {
	r := NewRouter(nil, entity.GenrePhilosophy)

	tests := []struct {
		name   string
		prompt string
		want   entity.Genre
		method string
	}{
		{"财富关键词", "How should I invest my savings to build wealth?", entity.GenreWealth, "lexicon"},
		{"关系关键词", "My friend and I had an argument about trust", entity.GenreRelationships, "lexicon"},
		{"哲学关键词", "What is the meaning of suffering and virtue?", entity.GenrePhilosophy, "lexicon"},
		{"无命中走兜底", "xyzzy plugh", entity.GenrePhilosophy, "fallback"},
		{"空查询走兜底", "   ", entity.GenrePhilosophy, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Route(context.Background(), tt.prompt)
			if d.Genre != tt.want {
				t.Errorf("Route(%q).Genre = %v, want %v", tt.prompt, d.Genre, tt.want)
			}
			if d.Method != tt.method {
				t.Errorf("Route(%q).Method = %q, want %q", tt.prompt, d.Method, tt.method)
			}
		})
	}
}

func TestRouteLexiconTieFallsThrough(t *testing.T) {
	// wealth 与 relationships 各命中一个词，得分相同，不应由词表判定
	r := NewRouter(nil, entity.GenreWealth)
	d := r.Route(context.Background(), "money and love")
	if !d.Fallback {
		t.Errorf("词表同分且无画像时应兜底, got %+v", d)
	}
}

func TestRouteByProfile(t *testing.T) {
	emb := &fakeEmbedder{
		vectors: map[string][]float64{
			seedTexts[entity.GenreWealth]:        {1, 0, 0},
			seedTexts[entity.GenreRelationships]: {0, 1, 0},
			seedTexts[entity.GenrePhilosophy]:    {0, 0, 1},
		},
		// 查询向量偏向 relationships 画像
		fallbackVector: []float64{0.1, 0.9, 0.1},
	}

	r := NewRouter(emb, entity.GenrePhilosophy)
	if err := r.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup() error = %v", err)
	}

	// 无词表命中的查询，应由画像相似度判定
	d := r.Route(context.Background(), "xyzzy plugh")
	if d.Genre != entity.GenreRelationships || d.Method != "embedding" {
		t.Errorf("画像路由结果 = %+v, want relationships/embedding", d)
	}
}

func TestRouteProfileLowSimilarityFallsBack(t *testing.T) {
	emb := &fakeEmbedder{
		vectors: map[string][]float64{
			seedTexts[entity.GenreWealth]:        {1, 0, 0},
			seedTexts[entity.GenreRelationships]: {0, 1, 0},
			seedTexts[entity.GenrePhilosophy]:    {0, 0, 1},
		},
		// 与所有画像近似正交
		fallbackVector: []float64{-1, -1, -1},
	}

	r := NewRouter(emb, entity.GenreWealth)
	if err := r.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup() error = %v", err)
	}

	d := r.Route(context.Background(), "xyzzy plugh")
	if !d.Fallback || d.Genre != entity.GenreWealth {
		t.Errorf("相似度过低应兜底, got %+v", d)
	}
}

func TestRouteEmbedErrorFallsBack(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("provider down")}
	r := NewRouter(emb, entity.GenrePhilosophy)

	// Warmup 失败后画像为空，纯词表仍可用
	if err := r.Warmup(context.Background()); err == nil {
		t.Fatal("Warmup() 应返回错误")
	}
	d := r.Route(context.Background(), "how do I budget my salary")
	if d.Genre != entity.GenreWealth {
		t.Errorf("无画像时词表路由应生效, got %v", d.Genre)
	}
}

func TestRouteDeterministic(t *testing.T) {
	r := NewRouter(nil, entity.GenrePhilosophy)
	prompt := "compound interest and retirement savings"
	first := r.Route(context.Background(), prompt)
	for i := 0; i < 10; i++ {
		if got := r.Route(context.Background(), prompt); got != first {
			t.Fatalf("同一查询第 %d 次判定不一致: %+v vs %+v", i, got, first)
		}
	}
}
