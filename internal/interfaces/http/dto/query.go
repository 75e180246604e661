// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"citementor-api/internal/application/routing"
	"citementor-api/internal/domain/entity"
	"citementor-api/internal/infrastructure/corpus"
)

// RouteRequest 路由预览请求
type RouteRequest struct {
	Query string `json:"query" binding:"required"`
}

// RouteResponse 路由预览响应
type RouteResponse struct {
	Genre string `json:"genre"`
	// Fallback 为 true 表示路由未命中，返回的是兜底书架
	Fallback bool   `json:"fallback"`
	Method   string `json:"method"`
}

// AnswerRequest 问答请求
type AnswerRequest struct {
	Query string `json:"query" binding:"required"`
	// Genre 可选，指定后跳过路由直接检索该书架
	Genre string `json:"genre,omitempty"`
	// TopK 可选，召回段落数上限
	TopK int `json:"top_k,omitempty"`
}

// CitationResponse 单条引用及其计费
type CitationResponse struct {
	PassageID  string  `json:"passage_id"`
	BookTitle  string  `json:"book_title"`
	Author     string  `json:"author"`
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	Preview    string  `json:"preview"`
	Tokens     int     `json:"tokens"`
	CostMicros int64   `json:"cost_micros"`
	// CostUSD 展示用美元金额，微美元换算后最多 5 位小数
	CostUSD float64 `json:"cost_usd"`
}

// AnswerResponse 问答响应
type AnswerResponse struct {
	QueryID       string             `json:"query_id"`
	Genre         string             `json:"genre"`
	GenreFallback bool               `json:"genre_fallback"`
	Answer        string             `json:"answer"`
	Citations     []CitationResponse `json:"citations"`
	TotalMicros   int64              `json:"total_micros"`
	TotalUSD      float64            `json:"total_usd"`
	ElapsedMs     int64              `json:"elapsed_ms"`
}

// ShelfResponse 书架概览
type ShelfResponse struct {
	Genre        string `json:"genre"`
	BookCount    int    `json:"book_count"`
	PassageCount int    `json:"passage_count"`
}

// ShelvesResponse 书架列表响应
type ShelvesResponse struct {
	Shelves []ShelfResponse `json:"shelves"`
}

// ReloadResponse 语料重载响应
type ReloadResponse struct {
	Shelves []ShelfResponse `json:"shelves"`
	// Indexed 为 true 表示重载后已同步重建向量索引
	Indexed bool `json:"indexed"`
}

// ToRouteResponse 转换路由决策
func ToRouteResponse(d routing.Decision) RouteResponse {
	return RouteResponse{
		Genre:    d.Genre.String(),
		Fallback: d.Fallback,
		Method:   d.Method,
	}
}

// ToAnswerResponse 转换问答结果
func ToAnswerResponse(r *entity.QueryResult) AnswerResponse {
	citations := make([]CitationResponse, 0, len(r.Citations))
	for _, ct := range r.Citations {
		citations = append(citations, CitationResponse{
			PassageID:  ct.PassageID,
			BookTitle:  ct.BookTitle,
			Author:     ct.Author,
			Rank:       ct.Rank,
			Score:      ct.Score,
			Preview:    ct.Preview,
			Tokens:     ct.Tokens,
			CostMicros: int64(ct.CostMicros),
			CostUSD:    ct.CostMicros.USD(),
		})
	}
	return AnswerResponse{
		QueryID:       r.QueryID,
		Genre:         r.Genre.String(),
		GenreFallback: r.GenreFallback,
		Answer:        r.Answer,
		Citations:     citations,
		TotalMicros:   int64(r.TotalMicros),
		TotalUSD:      r.TotalMicros.USD(),
		ElapsedMs:     r.Elapsed.Milliseconds(),
	}
}

// ToShelfResponses 转换书架概览列表
func ToShelfResponses(shelves []corpus.Shelf) []ShelfResponse {
	out := make([]ShelfResponse, 0, len(shelves))
	for _, s := range shelves {
		out = append(out, ShelfResponse{
			Genre:        s.Genre.String(),
			BookCount:    s.BookCount,
			PassageCount: s.PassageCount,
		})
	}
	return out
}
