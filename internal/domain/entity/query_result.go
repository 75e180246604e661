package entity

import "time"

// Stage 一次问答在流水线中的阶段
type Stage string

const (
	StageRouting    Stage = "routing"
	StageRetrieving Stage = "retrieving"
	StagePricing    Stage = "pricing"
	StageSynthesize Stage = "synthesizing"
	StageDone       Stage = "done"
)

// CostMicros 金额，单位微美元（1e-5 USD），整数累加保证精确
type CostMicros int64

// USD 转换为美元浮点值，仅用于展示
func (c CostMicros) USD() float64 {
	return float64(c) / 1e5
}

// Citation 答案引用的一个段落及其计费结果
type Citation struct {
	PassageID string `json:"passage_id"`
	BookTitle string `json:"book_title"`
	Author    string `json:"author"`
	Genre     Genre  `json:"genre"`
	// Rank 引用名次，从 0 开始，决定折扣系数
	Rank       int        `json:"rank"`
	Score      float64    `json:"score"`
	Preview    string     `json:"preview"`
	Tokens     int        `json:"tokens"`
	CostMicros CostMicros `json:"cost_micros"`
}

// QueryResult 一次完整问答的产出
type QueryResult struct {
	QueryID string `json:"query_id"`
	Genre   Genre  `json:"genre"`
	// GenreFallback 路由无法判定时为 true，Genre 为兜底书架
	GenreFallback bool       `json:"genre_fallback"`
	Answer        string     `json:"answer"`
	Citations     []Citation `json:"citations"`
	// TotalMicros 各引用费用的整数和
	TotalMicros CostMicros    `json:"total_micros"`
	Elapsed     time.Duration `json:"elapsed"`
}
