package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"citementor-api/internal/domain/entity"
	apperrors "citementor-api/pkg/errors"
)

func writeBook(t *testing.T, dir, genre, file, content string) {
	t.Helper()
	genreDir := filepath.Join(dir, genre)
	if err := os.MkdirAll(genreDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(genreDir, file), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const meditationsYAML = `title: Meditations
author: Marcus Aurelius
passages:
  - "You have power over your mind, not outside events."
  - "The obstacle is the way."
`

func TestLoadBuildsStablePassageIDs(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "philosophy", "meditations.yaml", meditationsYAML)

	books, err := NewLoader(dir, 0).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("书籍数 = %d, want 1", len(books))
	}

	b := books[0]
	if b.ID != "philosophy/meditations" {
		t.Errorf("book ID = %q", b.ID)
	}
	if b.Genre != entity.GenrePhilosophy {
		t.Errorf("genre = %v", b.Genre)
	}
	if len(b.Passages) != 2 {
		t.Fatalf("段落数 = %d, want 2", len(b.Passages))
	}
	if b.Passages[1].ID != "philosophy/meditations#1" {
		t.Errorf("passage ID = %q", b.Passages[1].ID)
	}
	if b.Passages[1].Position != 1 {
		t.Errorf("position = %d", b.Passages[1].Position)
	}
}

func TestLoadSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "philosophy", "meditations.yaml", meditationsYAML)
	writeBook(t, dir, "philosophy", "broken.yaml", "title: [unclosed")
	writeBook(t, dir, "philosophy", "no-title.yaml", "author: Nobody\npassages:\n  - text\n")
	writeBook(t, dir, "philosophy", "notes.txt", "ignored")

	books, err := NewLoader(dir, 0).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(books) != 1 {
		t.Errorf("损坏文件应被跳过, 书籍数 = %d", len(books))
	}
}

func TestLoadMissingDir(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent"), 0).Load(context.Background())
	if apperrors.CodeOf(err) != apperrors.CodeCorpusLoadFailed {
		t.Errorf("目录缺失应返回 CodeCorpusLoadFailed, got %v", err)
	}
}

func TestSplitByRunesLongPassage(t *testing.T) {
	long := strings.Repeat("word ", 100)
	chunks := splitByRunes(long, 60)
	if len(chunks) < 2 {
		t.Fatalf("超长段落应被切分, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 60 {
			t.Errorf("第 %d 块超出上限: %d runes", i, len([]rune(c)))
		}
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Errorf("第 %d 块未去除首尾空白", i)
		}
	}
}

func TestStoreReloadAndShelves(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "philosophy", "meditations.yaml", meditationsYAML)
	writeBook(t, dir, "wealth", "richest-man.yaml", `title: The Richest Man in Babylon
author: George S. Clason
passages:
  - "Start thy purse to fattening."
`)

	store := NewStore(NewLoader(dir, 0))
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if _, err := store.Books(entity.GenrePhilosophy); err != nil {
		t.Errorf("Books(philosophy) error = %v", err)
	}
	if books, err := store.Books(entity.GenreRelationships); err != nil || len(books) != 0 {
		t.Errorf("空书架应返回空集合且无错误, books = %d, err = %v", len(books), err)
	}
	if _, err := store.Books(entity.Genre("cooking")); apperrors.CodeOf(err) != apperrors.CodeUnknownGenre {
		t.Errorf("未知书架应返回 CodeUnknownGenre, got %v", err)
	}

	shelves := store.Shelves()
	if len(shelves) != 3 {
		t.Fatalf("书架数 = %d, want 3", len(shelves))
	}
	for _, s := range shelves {
		if s.Genre == entity.GenrePhilosophy && s.PassageCount != 2 {
			t.Errorf("philosophy 段落数 = %d, want 2", s.PassageCount)
		}
	}
	if store.LoadedAt().IsZero() {
		t.Error("LoadedAt 应为最近加载时间")
	}
}

func TestStoreSinglePopulatedShelf(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "wealth", "richest-man.yaml", `title: The Richest Man in Babylon
author: George S. Clason
passages:
  - "Start thy purse to fattening."
`)

	store := NewStore(NewLoader(dir, 0))
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("仅一个书架有书时 Reload 不应失败: %v", err)
	}

	// 全量遍历（启动索引、重载重建索引都依赖这条路径）必须能走通
	for _, shelf := range store.Shelves() {
		books, err := store.Books(shelf.Genre)
		if err != nil {
			t.Fatalf("Books(%s) error = %v", shelf.Genre, err)
		}
		if shelf.Genre == entity.GenreWealth && len(books) != 1 {
			t.Errorf("wealth 书籍数 = %d, want 1", len(books))
		}
		if shelf.Genre != entity.GenreWealth && len(books) != 0 {
			t.Errorf("%s 书籍数 = %d, want 0", shelf.Genre, len(books))
		}
	}
}

func TestStoreReloadKeepsOldSnapshotOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "philosophy", "meditations.yaml", meditationsYAML)

	store := NewStore(NewLoader(dir, 0))
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	// 清空目录后重载失败，旧快照仍可读
	if err := os.RemoveAll(filepath.Join(dir, "philosophy")); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(context.Background()); err == nil {
		t.Fatal("空目录重载应失败")
	}
	if _, err := store.Books(entity.GenrePhilosophy); err != nil {
		t.Errorf("重载失败后旧快照应保留, got %v", err)
	}
}
