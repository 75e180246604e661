// Package corpus 从磁盘加载书架语料并维护内存快照
package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"citementor-api/internal/domain/entity"
	apperrors "citementor-api/pkg/errors"
	"citementor-api/pkg/logger"
)

const defaultMaxPassageRunes = 1200

// bookFile 书籍 YAML 文件的磁盘格式
type bookFile struct {
	Title    string   `yaml:"title"`
	Author   string   `yaml:"author"`
	Passages []string `yaml:"passages"`
}

// Loader 扫描 <dir>/<genre>/*.yaml，每个文件一本书
type Loader struct {
	dir             string
	maxPassageRunes int
}

func NewLoader(dir string, maxPassageRunes int) *Loader {
	if maxPassageRunes <= 0 {
		maxPassageRunes = defaultMaxPassageRunes
	}
	return &Loader{
		dir:             dir,
		maxPassageRunes: maxPassageRunes,
	}
}

// Load 加载全部书架。单个文件损坏时跳过并记日志，整体目录缺失才算失败。
func (l *Loader) Load(ctx context.Context) ([]*entity.Book, error) {
	if _, err := os.Stat(l.dir); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCorpusLoadFailed, "语料目录不可读")
	}

	var books []*entity.Book
	for _, genre := range entity.AllGenres() {
		genreBooks, err := l.loadGenre(ctx, genre)
		if err != nil {
			return nil, err
		}
		books = append(books, genreBooks...)
	}

	if len(books) == 0 {
		return nil, apperrors.New(apperrors.CodeCorpusLoadFailed, "语料目录中没有可用书籍")
	}
	return books, nil
}

func (l *Loader) loadGenre(ctx context.Context, genre entity.Genre) ([]*entity.Book, error) {
	genreDir := filepath.Join(l.dir, genre.String())
	entries, err := os.ReadDir(genreDir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn(ctx, "书架目录不存在，跳过", "genre", genre.String())
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCorpusLoadFailed, "书架目录不可读")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	// 文件名排序保证段落 ID 稳定
	sort.Strings(names)

	books := make([]*entity.Book, 0, len(names))
	for _, name := range names {
		book, err := l.loadBook(genre, filepath.Join(genreDir, name), name)
		if err != nil {
			logger.Warn(ctx, "书籍文件损坏，跳过",
				"genre", genre.String(),
				"file", name,
				"error", err.Error(),
			)
			continue
		}
		books = append(books, book)
	}
	return books, nil
}

func (l *Loader) loadBook(genre entity.Genre, path, filename string) (*entity.Book, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var bf bookFile
	if err := yaml.Unmarshal(raw, &bf); err != nil {
		return nil, err
	}
	bf.Title = strings.TrimSpace(bf.Title)
	bf.Author = strings.TrimSpace(bf.Author)
	if bf.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if len(bf.Passages) == 0 {
		return nil, fmt.Errorf("book has no passages")
	}

	slug := strings.TrimSuffix(strings.TrimSuffix(filename, filepath.Ext(filename)), ".")
	bookID := genre.String() + "/" + slug

	book := &entity.Book{
		ID:     bookID,
		Title:  bf.Title,
		Author: bf.Author,
		Genre:  genre,
	}

	position := 0
	for _, raw := range bf.Passages {
		for _, chunk := range splitByRunes(raw, l.maxPassageRunes) {
			book.Passages = append(book.Passages, entity.Passage{
				ID:        fmt.Sprintf("%s#%d", bookID, position),
				BookID:    bookID,
				BookTitle: bf.Title,
				Author:    bf.Author,
				Genre:     genre,
				Position:  position,
				Text:      chunk,
			})
			position++
		}
	}
	if len(book.Passages) == 0 {
		return nil, fmt.Errorf("book has no non-empty passages")
	}
	return book, nil
}

// splitByRunes 将超长段落按 rune 数切分，尽量在空白处断开
func splitByRunes(s string, maxRunes int) []string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil
	}
	runes := []rune(raw)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return []string{raw}
	}

	out := make([]string, 0, (len(runes)/maxRunes)+1)
	for start := 0; start < len(runes); {
		end := start + maxRunes
		if end >= len(runes) {
			end = len(runes)
		} else {
			// 回退到最近的空白，避免从词中间切断
			cut := end
			for cut > start && !isSpace(runes[cut-1]) {
				cut--
			}
			if cut > start {
				end = cut
			}
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		start = end
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
