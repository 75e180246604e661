// Package routing 将用户问题路由到语义最接近的书架
package routing

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/embedding"

	"citementor-api/internal/domain/entity"
	"citementor-api/pkg/logger"
	"citementor-api/pkg/metrics"
)

// minProfileSimilarity 画像相似度低于该值时判定为无法路由
const minProfileSimilarity = 0.10

var wordPattern = regexp.MustCompile(`[a-z']+`)

// Decision 一次路由判定的结果
type Decision struct {
	Genre entity.Genre
	// Fallback 为 true 表示词表与画像均未命中，Genre 是兜底书架
	Fallback bool
	// Method 命中方式：lexicon、embedding 或 fallback
	Method string
}

// Router 两级路由器：词表精确命中优先，画像向量相似度兜底
// 同一查询的判定结果是确定的，不依赖任何随机源
type Router struct {
	embedder     embedding.Embedder
	defaultGenre entity.Genre

	mu       sync.RWMutex
	profiles map[entity.Genre][]float64
}

func NewRouter(embedder embedding.Embedder, defaultGenre entity.Genre) *Router {
	if !defaultGenre.IsValid() {
		defaultGenre = entity.GenrePhilosophy
	}
	return &Router{
		embedder:     embedder,
		defaultGenre: defaultGenre,
	}
}

// Warmup 预先计算各书架的画像向量，失败时路由退化为纯词表模式
func (r *Router) Warmup(ctx context.Context) error {
	if r.embedder == nil {
		return nil
	}

	genres := entity.AllGenres()
	texts := make([]string, 0, len(genres))
	for _, g := range genres {
		texts = append(texts, seedTexts[g])
	}

	vecs, err := r.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(genres) {
		return ErrProfileMismatch
	}

	profiles := make(map[entity.Genre][]float64, len(genres))
	for i, g := range genres {
		profiles[g] = vecs[i]
	}

	r.mu.Lock()
	r.profiles = profiles
	r.mu.Unlock()
	return nil
}

// Route 判定问题归属的书架，永不返回未知书架
func (r *Router) Route(ctx context.Context, prompt string) Decision {
	if g, ok := r.routeByLexicon(prompt); ok {
		return Decision{Genre: g, Method: "lexicon"}
	}

	if g, ok := r.routeByProfile(ctx, prompt); ok {
		return Decision{Genre: g, Method: "embedding"}
	}

	logger.Warn(ctx, "路由未命中，使用兜底书架",
		"default_genre", r.defaultGenre.String(),
	)
	metrics.RoutingFallbackTotal.WithLabelValues("no_match").Inc()
	return Decision{Genre: r.defaultGenre, Fallback: true, Method: "fallback"}
}

// routeByLexicon 词表计分；仅当某书架得分严格领先时命中
func (r *Router) routeByLexicon(prompt string) (entity.Genre, bool) {
	words := wordPattern.FindAllString(strings.ToLower(prompt), -1)
	if len(words) == 0 {
		return "", false
	}

	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}

	var best entity.Genre
	bestScore, secondScore := 0, 0
	for _, g := range entity.AllGenres() {
		score := 0
		for _, term := range lexicons[g] {
			if _, ok := seen[term]; ok {
				score++
			}
		}
		if score > bestScore {
			secondScore = bestScore
			bestScore = score
			best = g
		} else if score > secondScore {
			secondScore = score
		}
	}

	if bestScore == 0 || bestScore == secondScore {
		return "", false
	}
	return best, true
}

// routeByProfile 画像向量相似度；书架遍历顺序固定，保证同分时判定稳定
func (r *Router) routeByProfile(ctx context.Context, prompt string) (entity.Genre, bool) {
	if r.embedder == nil {
		return "", false
	}

	r.mu.RLock()
	profiles := r.profiles
	r.mu.RUnlock()
	if len(profiles) == 0 {
		return "", false
	}

	vecs, err := r.embedder.EmbedStrings(ctx, []string{prompt})
	if err != nil || len(vecs) == 0 {
		if err != nil {
			logger.Warn(ctx, "路由 embedding 失败", "error", err.Error())
			metrics.RoutingFallbackTotal.WithLabelValues("embed_error").Inc()
		}
		return "", false
	}
	query := vecs[0]

	var best entity.Genre
	bestSim := math.Inf(-1)
	for _, g := range entity.AllGenres() {
		profile, ok := profiles[g]
		if !ok {
			continue
		}
		sim := cosineSimilarity(query, profile)
		if sim > bestSim {
			bestSim = sim
			best = g
		}
	}

	if bestSim < minProfileSimilarity {
		return "", false
	}
	return best, true
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
