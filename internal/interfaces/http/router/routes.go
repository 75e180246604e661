// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"citementor-api/internal/interfaces/http/handler"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	queryHandler *handler.QueryHandler,
	corpusHandler *handler.CorpusHandler,
) {
	// 问答
	query := v1.Group("/query")
	{
		query.POST("/route", queryHandler.Route)
		query.POST("/answer", queryHandler.Answer)
	}

	// 书架概览
	v1.GET("/shelves", corpusHandler.Shelves)

	// 语料管理
	corpus := v1.Group("/corpus")
	{
		corpus.POST("/reload", corpusHandler.Reload)
	}
}
