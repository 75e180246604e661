package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	einoembedding "github.com/cloudwego/eino/components/embedding"

	"citementor-api/internal/infrastructure/persistence/redis"
	"citementor-api/pkg/logger"
)

const embedCacheTTL = 24 * time.Hour

// CachedEmbedder 为单条文本的 embedding 加一层 Redis 读穿缓存。
// 批量调用（索引场景）直接透传，只有查询场景的单条调用走缓存。
type CachedEmbedder struct {
	inner einoembedding.Embedder
	cache *redis.Cache
}

func NewCachedEmbedder(inner einoembedding.Embedder, cache *redis.Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

var _ einoembedding.Embedder = (*CachedEmbedder)(nil)

func (c *CachedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoembedding.Option) ([][]float64, error) {
	if c.cache == nil || len(texts) != 1 {
		return c.inner.EmbedStrings(ctx, texts, opts...)
	}

	key := "emb:" + hashText(texts[0])
	data, err := c.cache.GetOrLoadSafe(ctx, key, embedCacheTTL, func() (interface{}, error) {
		vecs, err := c.inner.EmbedStrings(ctx, texts, opts...)
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 {
			return nil, nil
		}
		return vecs[0], nil
	})
	if err != nil {
		return nil, err
	}

	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil || len(vec) == 0 {
		// 缓存内容异常时绕过缓存直连
		logger.Warn(ctx, "embedding 缓存内容异常，直连 provider", "key", key)
		return c.inner.EmbedStrings(ctx, texts, opts...)
	}
	return [][]float64{vec}, nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}
