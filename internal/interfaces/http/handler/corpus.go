// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/infrastructure/corpus"
	"citementor-api/internal/interfaces/http/dto"
	"citementor-api/pkg/errors"
	"citementor-api/pkg/logger"
)

// CacheInvalidator 语料重载后需要清理的查询缓存
type CacheInvalidator interface {
	InvalidateQueryCaches(ctx context.Context) error
}

// CorpusHandler 语料管理处理器
type CorpusHandler struct {
	store   *corpus.Store
	indexer *retrieval.Indexer
	cache   CacheInvalidator
}

// NewCorpusHandler 创建语料管理处理器；indexer 与 cache 可为 nil
func NewCorpusHandler(store *corpus.Store, indexer *retrieval.Indexer, cache CacheInvalidator) *CorpusHandler {
	return &CorpusHandler{
		store:   store,
		indexer: indexer,
		cache:   cache,
	}
}

// Shelves 书架列表
// @Summary 书架列表
// @Description 返回所有书架及其书籍、段落数量
// @Tags Corpus
// @Produce json
// @Success 200 {object} dto.Response[dto.ShelvesResponse]
// @Router /v1/shelves [get]
func (h *CorpusHandler) Shelves(c *gin.Context) {
	shelves := h.store.Shelves()
	dto.Success(c, dto.ShelvesResponse{
		Shelves: dto.ToShelfResponses(shelves),
	})
}

// Reload 重载语料
// @Summary 重载语料
// @Description 重新加载语料文件并重建向量索引，失败时保留旧快照
// @Tags Corpus
// @Produce json
// @Success 200 {object} dto.Response[dto.ReloadResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/corpus/reload [post]
func (h *CorpusHandler) Reload(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.store.Reload(ctx); err != nil {
		if errors.IsAppError(err) {
			appErr := errors.AsAppError(err)
			dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
				ErrorCode: string(appErr.Code),
				Details:   appErr.Detail,
			})
			return
		}
		logger.Error(ctx, "corpus reload failed", err)
		dto.InternalError(c, "corpus reload failed")
		return
	}

	indexed := false
	if h.indexer != nil && h.indexer.Enabled() {
		if err := h.reindex(ctx); err != nil {
			logger.Error(ctx, "corpus reindex failed", err)
			dto.InternalError(c, "corpus reindex failed")
			return
		}
		indexed = true
	}

	// 旧快照对应的路由与向量缓存已失效
	if h.cache != nil {
		if err := h.cache.InvalidateQueryCaches(ctx); err != nil {
			logger.Warn(ctx, "query cache invalidation failed", "error", err.Error())
		}
	}

	dto.Success(c, dto.ReloadResponse{
		Shelves: dto.ToShelfResponses(h.store.Shelves()),
		Indexed: indexed,
	})
}

func (h *CorpusHandler) reindex(ctx context.Context) error {
	for _, shelf := range h.store.Shelves() {
		books, err := h.store.Books(shelf.Genre)
		if err != nil {
			return err
		}
		if err := h.indexer.IndexGenre(ctx, shelf.Genre, books); err != nil {
			return err
		}
	}
	return nil
}
