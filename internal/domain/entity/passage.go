package entity

import "unicode/utf8"

// Passage 书籍中的一个可检索、可计费段落
type Passage struct {
	// ID 段落稳定标识：<book_id>#<position>
	ID        string `json:"id"`
	BookID    string `json:"book_id"`
	BookTitle string `json:"book_title"`
	Author    string `json:"author"`
	Genre     Genre  `json:"genre"`
	// Position 段落在书中的序号，从 0 开始，用于同分排序
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// TokenEstimate 基于字符数的 token 粗估，仅在 tokenizer 不可用时兜底
func (p *Passage) TokenEstimate() int {
	n := utf8.RuneCountInString(p.Text)
	if n == 0 {
		return 0
	}
	est := n / 4
	if est < 1 {
		est = 1
	}
	return est
}

// ScoredPassage 带相似度得分的检索结果
type ScoredPassage struct {
	Passage Passage `json:"passage"`
	// Score 与查询向量的余弦相似度，[-1,1]
	Score float64 `json:"score"`
}
