package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/infrastructure/corpus"
	"citementor-api/internal/infrastructure/persistence/memory"
)

func newCorpusRouter(t *testing.T, store *corpus.Store, indexer *retrieval.Indexer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewCorpusHandler(store, indexer, nil)
	r := gin.New()
	r.GET("/v1/shelves", h.Shelves)
	r.POST("/v1/corpus/reload", h.Reload)
	return r
}

func writeCorpusBook(t *testing.T, dir, genre, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, genre), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, genre, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// 只有一个书架有书时，重载与重建索引都应成功。
func TestReloadEndpointWithUnpopulatedShelves(t *testing.T) {
	dir := t.TempDir()
	writeCorpusBook(t, dir, "wealth", "richest-man.yaml", `title: The Richest Man in Babylon
author: George S. Clason
passages:
  - "Start thy purse to fattening."
`)

	store := corpus.NewStore(corpus.NewLoader(dir, 0))
	indexer := retrieval.NewIndexer(fixedEmbedder{}, memory.NewStore(), 0)
	r := newCorpusRouter(t, store, indexer)

	req := httptest.NewRequest(http.MethodPost, "/v1/corpus/reload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Indexed bool `json:"indexed"`
			Shelves []struct {
				Genre     string `json:"genre"`
				BookCount int    `json:"book_count"`
			} `json:"shelves"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Data.Indexed {
		t.Error("indexed = false, want true")
	}
	if len(resp.Data.Shelves) != 3 {
		t.Fatalf("书架数 = %d, want 3", len(resp.Data.Shelves))
	}
	for _, s := range resp.Data.Shelves {
		switch s.Genre {
		case "wealth":
			if s.BookCount != 1 {
				t.Errorf("wealth book_count = %d, want 1", s.BookCount)
			}
		default:
			if s.BookCount != 0 {
				t.Errorf("%s book_count = %d, want 0", s.Genre, s.BookCount)
			}
		}
	}
}
