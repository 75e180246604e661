// Package royalty 按 token 数与引用名次计算段落的微版税
package royalty

import (
	"context"
	"math"

	"github.com/pkoukk/tiktoken-go"

	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/domain/entity"
	"citementor-api/pkg/logger"
)

const (
	// defaultRateMicros 每 token 2 微美元（2e-5 USD）
	defaultRateMicros = 2
	defaultRankDecay  = 0.85
	defaultRankFloor  = 0.25

	tokenEncoding = "cl100k_base"
)

// Calculator 版税计算器。
// 计费只依赖段落文本、token 数与名次，与答案内容无关，同一输入恒产出同一账单。
type Calculator struct {
	rateMicros int64
	rankDecay  float64
	rankFloor  float64

	encoder *tiktoken.Tiktoken
}

func NewCalculator(rateMicros int64, rankDecay, rankFloor float64) *Calculator {
	if rateMicros <= 0 {
		rateMicros = defaultRateMicros
	}
	if rankDecay <= 0 || rankDecay > 1 {
		rankDecay = defaultRankDecay
	}
	if rankFloor <= 0 || rankFloor > 1 {
		rankFloor = defaultRankFloor
	}

	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		// tokenizer 初始化失败时退化为字符数估算
		logger.Warn(context.Background(), "tokenizer 初始化失败，使用字符数估算", "error", err.Error())
		enc = nil
	}

	return &Calculator{
		rateMicros: rateMicros,
		rankDecay:  rankDecay,
		rankFloor:  rankFloor,
		encoder:    enc,
	}
}

// CountTokens 统计段落文本的 token 数
func (c *Calculator) CountTokens(text string) int {
	if c.encoder != nil {
		return len(c.encoder.Encode(text, nil, nil))
	}
	p := entity.Passage{Text: text}
	return p.TokenEstimate()
}

// rankMultiplier 第 rank 名的折扣系数：max(floor, decay^rank)
func (c *Calculator) rankMultiplier(rank int) float64 {
	m := math.Pow(c.rankDecay, float64(rank))
	if m < c.rankFloor {
		return c.rankFloor
	}
	return m
}

// PassageCost 单个段落的版税：rate × tokens × 折扣，四舍五入到微美元
func (c *Calculator) PassageCost(tokens, rank int) entity.CostMicros {
	if tokens <= 0 {
		return 0
	}
	raw := float64(c.rateMicros) * float64(tokens) * c.rankMultiplier(rank)
	return entity.CostMicros(math.Round(raw))
}

// Price 为召回结果生成引用账单；名次由传入顺序决定
func (c *Calculator) Price(passages []entity.ScoredPassage) ([]entity.Citation, entity.CostMicros) {
	citations := make([]entity.Citation, 0, len(passages))
	var total entity.CostMicros

	for rank, sp := range passages {
		tokens := c.CountTokens(sp.Passage.Text)
		cost := c.PassageCost(tokens, rank)
		citations = append(citations, entity.Citation{
			PassageID:  sp.Passage.ID,
			BookTitle:  sp.Passage.BookTitle,
			Author:     sp.Passage.Author,
			Genre:      sp.Passage.Genre,
			Rank:       rank,
			Score:      sp.Score,
			Preview:    retrieval.Preview(sp.Passage.Text),
			Tokens:     tokens,
			CostMicros: cost,
		})
		total += cost
	}
	return citations, total
}
