// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"citementor-api/internal/application/answer"
	"citementor-api/internal/domain/entity"
	"citementor-api/internal/interfaces/http/dto"
	"citementor-api/pkg/errors"
	"citementor-api/pkg/logger"
)

// QueryHandler 问答处理器
type QueryHandler struct {
	engine *answer.Engine
}

// NewQueryHandler 创建问答处理器
func NewQueryHandler(engine *answer.Engine) *QueryHandler {
	return &QueryHandler{
		engine: engine,
	}
}

// Route 路由预览
// @Summary 路由预览
// @Description 判定问题所属书架，不触发检索与生成
// @Tags Query
// @Accept json
// @Produce json
// @Param body body dto.RouteRequest true "路由请求"
// @Success 200 {object} dto.Response[dto.RouteResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/query/route [post]
func (h *QueryHandler) Route(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	decision, err := h.engine.Route(ctx, req.Query)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	dto.Success(c, dto.ToRouteResponse(decision))
}

// Answer 完整问答
// @Summary 完整问答
// @Description 路由、检索、计费并生成带引用的答案
// @Tags Query
// @Accept json
// @Produce json
// @Param body body dto.AnswerRequest true "问答请求"
// @Success 200 {object} dto.Response[dto.AnswerResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Router /v1/query/answer [post]
func (h *QueryHandler) Answer(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	in := answer.AnswerInput{
		Prompt: req.Query,
		TopK:   req.TopK,
	}
	if req.Genre != "" {
		genre, ok := entity.ParseGenre(req.Genre)
		if !ok {
			dto.BadRequest(c, "unknown genre: "+req.Genre)
			return
		}
		in.Genre = genre
	}

	result, err := h.engine.AnswerQuery(ctx, in)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	dto.Success(c, dto.ToAnswerResponse(result))
}

// writeEngineError 将引擎错误映射为 HTTP 响应
func writeEngineError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		if appErr.HTTPStatus >= 500 {
			logger.Error(ctx, "query failed", err)
		}
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		})
		return
	}

	logger.Error(ctx, "query failed", err)
	dto.InternalError(c, "query failed")
}
