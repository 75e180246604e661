package retrieval

import (
	"fmt"
	"strings"

	"citementor-api/internal/domain/entity"
)

const previewRunes = 120

// BuildPromptContext 将召回段落格式化为可直接注入 Prompt 的块。
// 约束：尽量短，避免把 score 等调试信息塞进 Prompt。
func BuildPromptContext(passages []entity.ScoredPassage, maxRunesPerPassage int) string {
	if len(passages) == 0 {
		return ""
	}
	if maxRunesPerPassage <= 0 {
		maxRunesPerPassage = 600
	}

	lines := make([]string, 0, len(passages)+1)
	lines = append(lines, "【引用书摘（按相关度排序）】")
	for i, p := range passages {
		txt := truncateRunes(compactOneLine(p.Passage.Text), maxRunesPerPassage)
		if strings.TrimSpace(txt) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] (%s, %s) %s", i+1, p.Passage.BookTitle, p.Passage.Author, txt))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Preview 生成引用展示用的单行摘要：取段落第一句，超长时按固定字符窗截断
func Preview(text string) string {
	return truncateRunes(firstSentence(compactOneLine(text)), previewRunes)
}

// firstSentence 截取到第一个句末标点（含标点）；没有句末标点时返回全文
func firstSentence(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		switch r {
		case '。', '！', '？', '!', '?':
			return strings.TrimSpace(string(runes[:i+1]))
		case '.':
			// 小数与省略号中间的点不结束句子
			if i+1 < len(runes) && runes[i+1] != ' ' {
				continue
			}
			return strings.TrimSpace(string(runes[:i+1]))
		}
	}
	return s
}

func compactOneLine(s string) string {
	out := strings.ReplaceAll(s, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = strings.ReplaceAll(out, "\n", " ")
	out = strings.TrimSpace(out)
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	return out
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}
