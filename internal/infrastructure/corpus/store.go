package corpus

import (
	"context"
	"sync"
	"time"

	"citementor-api/internal/domain/entity"
	apperrors "citementor-api/pkg/errors"
	"citementor-api/pkg/logger"
	"citementor-api/pkg/metrics"
)

// Shelf 书架概览
type Shelf struct {
	Genre        entity.Genre `json:"genre"`
	BookCount    int          `json:"book_count"`
	PassageCount int          `json:"passage_count"`
}

// Store 语料的内存快照。Reload 整体替换，读写互不阻塞长时间操作。
type Store struct {
	loader *Loader

	mu       sync.RWMutex
	byGenre  map[entity.Genre][]*entity.Book
	loadedAt time.Time
}

func NewStore(loader *Loader) *Store {
	return &Store{
		loader:  loader,
		byGenre: make(map[entity.Genre][]*entity.Book),
	}
}

// Reload 重新加载语料并原子替换快照；加载失败时保留旧快照
func (s *Store) Reload(ctx context.Context) error {
	books, err := s.loader.Load(ctx)
	if err != nil {
		metrics.CorpusReloadTotal.WithLabelValues("error").Inc()
		return err
	}

	byGenre := make(map[entity.Genre][]*entity.Book, len(entity.AllGenres()))
	for _, b := range books {
		byGenre[b.Genre] = append(byGenre[b.Genre], b)
	}

	s.mu.Lock()
	s.byGenre = byGenre
	s.loadedAt = time.Now()
	s.mu.Unlock()

	for _, g := range entity.AllGenres() {
		count := 0
		for _, b := range byGenre[g] {
			count += b.PassageCount()
		}
		metrics.CorpusPassages.WithLabelValues(g.String()).Set(float64(count))
	}
	metrics.CorpusReloadTotal.WithLabelValues("ok").Inc()
	logger.Info(ctx, "语料加载完成", "books", len(books))
	return nil
}

// Books 返回指定书架的书籍。书架合法但没有书时返回空切片，空书架不是错误。
func (s *Store) Books(genre entity.Genre) ([]*entity.Book, error) {
	if !genre.IsValid() {
		return nil, apperrors.New(apperrors.CodeUnknownGenre, "unknown genre").WithDetail(genre.String())
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.byGenre[genre], nil
}

// AllBooks 返回全部书籍，按书架固定顺序
func (s *Store) AllBooks() []*entity.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Book
	for _, g := range entity.AllGenres() {
		out = append(out, s.byGenre[g]...)
	}
	return out
}

// Shelves 返回各书架概览
func (s *Store) Shelves() []Shelf {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shelves := make([]Shelf, 0, len(entity.AllGenres()))
	for _, g := range entity.AllGenres() {
		shelf := Shelf{Genre: g}
		for _, b := range s.byGenre[g] {
			shelf.BookCount++
			shelf.PassageCount += b.PassageCount()
		}
		shelves = append(shelves, shelf)
	}
	return shelves
}

// LoadedAt 返回最近一次成功加载的时间，零值表示尚未加载
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
