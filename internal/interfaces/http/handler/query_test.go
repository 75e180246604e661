package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/gin-gonic/gin"

	"citementor-api/internal/application/answer"
	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/application/routing"
	"citementor-api/internal/application/royalty"
	"citementor-api/internal/domain/entity"
)

type fixedEmbedder struct{}

func (fixedEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

type fixedVectorRepo struct {
	results []*retrieval.VectorSearchResult
}

func (f *fixedVectorRepo) EnsurePassagesCollection(context.Context) error { return nil }
func (f *fixedVectorRepo) SearchPassages(context.Context, *retrieval.VectorSearchParams) ([]*retrieval.VectorSearchResult, error) {
	return f.results, nil
}
func (f *fixedVectorRepo) DeleteGenrePassages(context.Context, entity.Genre) error { return nil }
func (f *fixedVectorRepo) InsertPassages(context.Context, []*retrieval.VectorPassage) error {
	return nil
}

type fixedSynthesizer struct {
	answer string
}

func (f *fixedSynthesizer) Synthesize(context.Context, entity.Genre, string, string) (string, error) {
	return f.answer, nil
}

func newTestRouter(t *testing.T, results []*retrieval.VectorSearchResult) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &fixedVectorRepo{results: results}
	genreRouter := routing.NewRouter(nil, entity.GenrePhilosophy)
	retriever := retrieval.NewRetriever(fixedEmbedder{}, repo, 0.15)
	calc := royalty.NewCalculator(2, 0.85, 0.25)
	eng := answer.NewEngine(genreRouter, retriever, calc, &fixedSynthesizer{answer: "Save a tenth of what you earn [1]."}, 3)

	h := NewQueryHandler(eng)
	r := gin.New()
	r.POST("/v1/query/route", h.Route)
	r.POST("/v1/query/answer", h.Answer)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouteEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postJSON(t, r, "/v1/query/route", map[string]string{"query": "how do I save money and invest"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Genre    string `json:"genre"`
			Fallback bool   `json:"fallback"`
			Method   string `json:"method"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Genre != "wealth" {
		t.Errorf("genre = %q, want wealth", resp.Data.Genre)
	}
	if resp.Data.Method != "lexicon" {
		t.Errorf("method = %q, want lexicon", resp.Data.Method)
	}
}

func TestRouteEndpointRejectsMissingQuery(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postJSON(t, r, "/v1/query/route", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAnswerEndpoint(t *testing.T) {
	results := []*retrieval.VectorSearchResult{
		{
			ID:        "wealth/richest-man#0",
			Score:     0.9,
			BookID:    "wealth/richest-man",
			BookTitle: "The Richest Man in Babylon",
			Author:    "George S. Clason",
			Genre:     "wealth",
			Position:  0,
			Text:      "Start thy purse to fattening: save a tenth of all you earn.",
		},
	}
	r := newTestRouter(t, results)

	w := postJSON(t, r, "/v1/query/answer", map[string]any{"query": "how do I save money and invest"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Genre     string `json:"genre"`
			Answer    string `json:"answer"`
			Citations []struct {
				BookTitle  string  `json:"book_title"`
				CostMicros int64   `json:"cost_micros"`
				CostUSD    float64 `json:"cost_usd"`
			} `json:"citations"`
			TotalMicros int64 `json:"total_micros"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if resp.Data.Genre != "wealth" {
		t.Errorf("genre = %q, want wealth", resp.Data.Genre)
	}
	if resp.Data.Answer == "" {
		t.Error("answer is empty")
	}
	if len(resp.Data.Citations) != 1 {
		t.Fatalf("citations = %d, want 1", len(resp.Data.Citations))
	}

	ct := resp.Data.Citations[0]
	if ct.BookTitle != "The Richest Man in Babylon" {
		t.Errorf("book_title = %q", ct.BookTitle)
	}
	if ct.CostMicros <= 0 {
		t.Errorf("cost_micros = %d, want > 0", ct.CostMicros)
	}
	if ct.CostMicros != resp.Data.TotalMicros {
		t.Errorf("total_micros = %d, want %d", resp.Data.TotalMicros, ct.CostMicros)
	}
	wantUSD := float64(ct.CostMicros) / 1e5
	if ct.CostUSD != wantUSD {
		t.Errorf("cost_usd = %v, want %v", ct.CostUSD, wantUSD)
	}
}

func TestAnswerEndpointUnknownGenre(t *testing.T) {
	r := newTestRouter(t, nil)

	w := postJSON(t, r, "/v1/query/answer", map[string]any{"query": "anything", "genre": "horror"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
}

func TestAnswerEndpointExplicitGenre(t *testing.T) {
	r := newTestRouter(t, nil)

	// 显式指定书架时跳过路由；空召回返回固定无上下文答案
	w := postJSON(t, r, "/v1/query/answer", map[string]any{"query": "anything", "genre": "philosophy"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Genre       string `json:"genre"`
			Answer      string `json:"answer"`
			TotalMicros int64  `json:"total_micros"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.Genre != "philosophy" {
		t.Errorf("genre = %q, want philosophy", resp.Data.Genre)
	}
	if resp.Data.Answer != answer.InsufficientContextAnswer {
		t.Errorf("answer = %q, want insufficient context answer", resp.Data.Answer)
	}
	if resp.Data.TotalMicros != 0 {
		t.Errorf("total_micros = %d, want 0", resp.Data.TotalMicros)
	}
}
