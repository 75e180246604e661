package answer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/application/routing"
	"citementor-api/internal/application/royalty"
	"citementor-api/internal/domain/entity"
	apperrors "citementor-api/pkg/errors"
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

type fakeSynthesizer struct {
	answer string
	err    error

	gotContext string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ entity.Genre, _ string, contextBlock string) (string, error) {
	f.gotContext = contextBlock
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type recordingPublisher struct {
	published chan *entity.QueryResult
}

func (p *recordingPublisher) PublishRoyalty(_ context.Context, r *entity.QueryResult) error {
	p.published <- r
	return nil
}

func passageResult(id string, score float32, position int64, text string) *retrieval.VectorSearchResult {
	return &retrieval.VectorSearchResult{
		ID:        id,
		Score:     score,
		BookID:    "wealth/richest-man",
		BookTitle: "The Richest Man in Babylon",
		Author:    "George S. Clason",
		Genre:     "wealth",
		Position:  position,
		Text:      text,
	}
}

func newTestEngine(repo *fixedVectorRepo, synth Synthesizer, opts ...EngineOption) *Engine {
	router := routing.NewRouter(nil, entity.GenrePhilosophy)
	retriever := retrieval.NewRetriever(fixedEmbedder{}, repo, 0.15)
	calc := royalty.NewCalculator(2, 0.85, 0.25)
	return NewEngine(router, retriever, calc, synth, 3, opts...)
}

func TestAnswerFullPipeline(t *testing.T) {
	repo := &fixedVectorRepo{results: []*retrieval.VectorSearchResult{
		passageResult("p#0", 0.9, 0, "Start thy purse to fattening: save a tenth of all you earn."),
		passageResult("p#4", 0.7, 4, "Make thy gold multiply through wise investment."),
	}}
	synth := &fakeSynthesizer{answer: "Save a tenth of what you earn [1]."}
	pub := &recordingPublisher{published: make(chan *entity.QueryResult, 1)}

	eng := newTestEngine(repo, synth, WithRoyaltyPublisher(pub))

	res, err := eng.Answer(context.Background(), "How should I invest my savings?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if res.Genre != entity.GenreWealth {
		t.Errorf("Genre = %v, want wealth", res.Genre)
	}
	if res.Answer != synth.answer {
		t.Errorf("Answer = %q", res.Answer)
	}
	if len(res.Citations) != 2 {
		t.Fatalf("引用数 = %d, want 2", len(res.Citations))
	}

	var sum entity.CostMicros
	for _, c := range res.Citations {
		sum += c.CostMicros
	}
	if res.TotalMicros != sum || res.TotalMicros <= 0 {
		t.Errorf("总额 %d 与各项和 %d 不符", res.TotalMicros, sum)
	}
	if !strings.Contains(synth.gotContext, "Richest Man") {
		t.Errorf("生成上下文缺少书摘: %q", synth.gotContext)
	}

	select {
	case got := <-pub.published:
		if got.QueryID != res.QueryID {
			t.Errorf("发布的事件 query_id = %s", got.QueryID)
		}
	case <-time.After(2 * time.Second):
		t.Error("版税事件未发布")
	}
}

func TestAnswerInsufficientContext(t *testing.T) {
	repo := &fixedVectorRepo{}
	synth := &fakeSynthesizer{answer: "should not be called"}
	eng := newTestEngine(repo, synth)

	res, err := eng.Answer(context.Background(), "How should I invest my savings?")
	if err != nil {
		t.Fatalf("空召回不应报错: %v", err)
	}
	if res.Answer != InsufficientContextAnswer {
		t.Errorf("Answer = %q", res.Answer)
	}
	if len(res.Citations) != 0 || res.TotalMicros != 0 {
		t.Errorf("空召回不应产生引用与费用: %+v", res)
	}
	if synth.gotContext != "" {
		t.Error("空召回不应调用生成")
	}
}

type failingEmbedder struct{ err error }

func (f failingEmbedder) EmbedStrings(context.Context, []string, ...embedding.Option) ([][]float64, error) {
	return nil, f.err
}

func TestAnswerEmbeddingFailurePreservesCode(t *testing.T) {
	router := routing.NewRouter(nil, entity.GenrePhilosophy)
	retriever := retrieval.NewRetriever(failingEmbedder{err: context.DeadlineExceeded}, &fixedVectorRepo{}, 0.15)
	calc := royalty.NewCalculator(2, 0.85, 0.25)
	eng := NewEngine(router, retriever, calc, &fakeSynthesizer{}, 3)

	_, err := eng.Answer(context.Background(), "How should I invest my savings?")
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeEmbeddingFailed {
		t.Fatalf("向量化失败应透出 CodeEmbeddingFailed, got %v", err)
	}
	if !strings.Contains(appErr.Detail, "stage=retrieving") {
		t.Errorf("缺少阶段标记: %q", appErr.Detail)
	}
}

func TestAnswerSynthesisFailureTagged(t *testing.T) {
	repo := &fixedVectorRepo{results: []*retrieval.VectorSearchResult{
		passageResult("p#0", 0.9, 0, "Some passage."),
	}}
	synth := &fakeSynthesizer{err: apperrors.New(apperrors.CodeGenerationTimeout, "答案生成超时")}
	eng := newTestEngine(repo, synth)

	_, err := eng.Answer(context.Background(), "How should I invest my savings?")
	if err == nil {
		t.Fatal("生成失败应返回错误")
	}
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeGenerationTimeout {
		t.Fatalf("错误码 = %v", err)
	}
	if !strings.Contains(appErr.Detail, "stage=synthesizing") {
		t.Errorf("缺少阶段标记: %q", appErr.Detail)
	}
}

func TestAnswerEmptyPrompt(t *testing.T) {
	eng := newTestEngine(&fixedVectorRepo{}, &fakeSynthesizer{})
	if _, err := eng.Answer(context.Background(), "   "); apperrors.CodeOf(err) != apperrors.CodeInvalidParam {
		t.Errorf("空 prompt 应返回参数错误, got %v", err)
	}
}

func TestRoutePreview(t *testing.T) {
	eng := newTestEngine(&fixedVectorRepo{}, &fakeSynthesizer{})
	d, err := eng.Route(context.Background(), "what is the meaning of virtue")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if d.Genre != entity.GenrePhilosophy {
		t.Errorf("Genre = %v, want philosophy", d.Genre)
	}
}
