// Package entity 定义领域实体
package entity

import "strings"

// Genre 书架类型，每个书架承载一类主题的书籍
type Genre string

const (
	GenreWealth        Genre = "wealth"
	GenreRelationships Genre = "relationships"
	GenrePhilosophy    Genre = "philosophy"
)

// AllGenres 返回所有合法书架，顺序固定
func AllGenres() []Genre {
	return []Genre{GenreWealth, GenreRelationships, GenrePhilosophy}
}

// IsValid 判断是否为已知书架
func (g Genre) IsValid() bool {
	switch g {
	case GenreWealth, GenreRelationships, GenrePhilosophy:
		return true
	}
	return false
}

func (g Genre) String() string {
	return string(g)
}

// ParseGenre 解析书架名，未知名称返回 false
func ParseGenre(s string) (Genre, bool) {
	g := Genre(strings.ToLower(strings.TrimSpace(s)))
	if g.IsValid() {
		return g, true
	}
	return "", false
}
