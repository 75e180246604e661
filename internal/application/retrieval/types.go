package retrieval

import "citementor-api/internal/domain/entity"

// SearchInput 段落检索输入。
type SearchInput struct {
	Genre entity.Genre
	Query string
	TopK  int

	// MinScore 低于该相似度的结果被丢弃；0 表示使用默认阈值
	MinScore float64

	IncludeEmbedding bool
}

type SearchOutput struct {
	Passages []entity.ScoredPassage

	// DisabledReason 非空表示向量检索不可用及原因
	DisabledReason string
	QueryEmbedding []float32
}
