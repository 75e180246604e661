package entity

// Book 一本入库书籍的元信息及其段落
type Book struct {
	// ID 书籍稳定标识，由书架与标题派生
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  Genre  `json:"genre"`
	// Passages 按原文顺序排列的可引用段落
	Passages []Passage `json:"passages"`
}

// PassageCount 返回书籍的段落数
func (b *Book) PassageCount() int {
	return len(b.Passages)
}
