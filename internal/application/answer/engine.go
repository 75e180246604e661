package answer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"citementor-api/internal/application/retrieval"
	"citementor-api/internal/application/routing"
	"citementor-api/internal/application/royalty"
	"citementor-api/internal/domain/entity"
	apperrors "citementor-api/pkg/errors"
	"citementor-api/pkg/logger"
	"citementor-api/pkg/metrics"
)

// InsufficientContextAnswer 召回为空时返回的固定答案，零引用零费用
const InsufficientContextAnswer = "书架中没有足够相关的内容来回答这个问题，请换个问法或换个话题。"

const routeCacheTTL = 10 * time.Minute

// RoyaltyPublisher 定义问答完成后发布版税事件的最小依赖（port）。
type RoyaltyPublisher interface {
	PublishRoyalty(ctx context.Context, result *entity.QueryResult) error
}

// RouteCache 路由结果的读穿缓存（port），由 Redis 缓存实现
type RouteCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// Engine 问答流水线：路由 → 检索 → 计费 → 生成。
// 计费先于生成完成，账单只取决于召回结果；无部分成功，任一阶段失败则整体失败。
type Engine struct {
	router      *routing.Router
	retriever   *retrieval.Retriever
	calculator  *royalty.Calculator
	synthesizer Synthesizer

	publisher  RoyaltyPublisher
	routeCache RouteCache

	topK             int
	promptRunesLimit int
}

type EngineOption func(*Engine)

// WithRoyaltyPublisher 启用问答完成后的版税事件发布
func WithRoyaltyPublisher(p RoyaltyPublisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

// WithRouteCache 启用路由结果缓存
func WithRouteCache(c RouteCache) EngineOption {
	return func(e *Engine) { e.routeCache = c }
}

func NewEngine(router *routing.Router, retriever *retrieval.Retriever, calculator *royalty.Calculator, synthesizer Synthesizer, topK int, opts ...EngineOption) *Engine {
	if topK <= 0 {
		topK = 3
	}
	e := &Engine{
		router:           router,
		retriever:        retriever,
		calculator:       calculator,
		synthesizer:      synthesizer,
		topK:             topK,
		promptRunesLimit: 600,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Route 仅执行路由阶段，供路由预览接口使用
func (e *Engine) Route(ctx context.Context, prompt string) (routing.Decision, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return routing.Decision{}, apperrors.New(apperrors.CodeInvalidParam, "prompt is required")
	}
	return e.routeCached(ctx, prompt), nil
}

// AnswerInput 一次问答的调用参数。
// Genre 非空时跳过路由直接使用指定书架；TopK 为 0 时使用引擎默认值。
type AnswerInput struct {
	Prompt string
	Genre  entity.Genre
	TopK   int
}

// Answer 以默认参数执行完整问答流水线
func (e *Engine) Answer(ctx context.Context, prompt string) (*entity.QueryResult, error) {
	return e.AnswerQuery(ctx, AnswerInput{Prompt: prompt})
}

// AnswerQuery 执行完整问答流水线
func (e *Engine) AnswerQuery(ctx context.Context, in AnswerInput) (*entity.QueryResult, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "prompt is required")
	}
	// 检索层自身会限制 TopK 上限
	topK := in.TopK
	if topK <= 0 {
		topK = e.topK
	}

	queryID := uuid.NewString()
	ctx = logger.WithContext(ctx, logger.QueryIDKey, queryID)
	started := time.Now()

	// 路由；请求显式指定书架时跳过
	stageStart := time.Now()
	var decision routing.Decision
	if in.Genre.IsValid() {
		decision = routing.Decision{Genre: in.Genre, Method: "explicit"}
	} else {
		decision = e.routeCached(ctx, prompt)
	}
	metrics.QueryStageDuration.WithLabelValues(string(entity.StageRouting)).Observe(time.Since(stageStart).Seconds())
	ctx = logger.WithContext(ctx, logger.GenreKey, decision.Genre.String())

	// 检索
	stageStart = time.Now()
	searchOut, err := e.retriever.Search(ctx, retrieval.SearchInput{
		Genre: decision.Genre,
		Query: prompt,
		TopK:  topK,
	})
	metrics.QueryStageDuration.WithLabelValues(string(entity.StageRetrieving)).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		metrics.QueryTotal.WithLabelValues(decision.Genre.String(), "error").Inc()
		// 向量化失败等已分类的错误保留原错误码
		if !apperrors.IsAppError(err) {
			err = apperrors.Wrap(err, apperrors.CodeRetrievalFailed, "段落检索失败")
		}
		return nil, stageError(entity.StageRetrieving, err)
	}
	if searchOut.DisabledReason != "" {
		metrics.QueryTotal.WithLabelValues(decision.Genre.String(), "error").Inc()
		return nil, stageError(entity.StageRetrieving,
			apperrors.New(apperrors.CodeVectorDBError, "向量检索不可用").WithDetail(searchOut.DisabledReason))
	}

	result := &entity.QueryResult{
		QueryID:       queryID,
		Genre:         decision.Genre,
		GenreFallback: decision.Fallback,
	}

	// 召回为空：明确告知无法作答，不产生引用与费用
	if len(searchOut.Passages) == 0 {
		result.Answer = InsufficientContextAnswer
		result.Citations = []entity.Citation{}
		result.Elapsed = time.Since(started)
		metrics.QueryTotal.WithLabelValues(decision.Genre.String(), "no_context").Inc()
		logger.Info(ctx, "召回为空，返回无上下文答案")
		return result, nil
	}

	// 计费：先于生成，账单与答案内容无关
	stageStart = time.Now()
	citations, total := e.calculator.Price(searchOut.Passages)
	metrics.QueryStageDuration.WithLabelValues(string(entity.StagePricing)).Observe(time.Since(stageStart).Seconds())
	result.Citations = citations
	result.TotalMicros = total

	// 生成
	stageStart = time.Now()
	contextBlock := retrieval.BuildPromptContext(searchOut.Passages, e.promptRunesLimit)
	answerText, err := e.synthesizer.Synthesize(ctx, decision.Genre, prompt, contextBlock)
	metrics.QueryStageDuration.WithLabelValues(string(entity.StageSynthesize)).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		metrics.QueryTotal.WithLabelValues(decision.Genre.String(), "error").Inc()
		return nil, stageError(entity.StageSynthesize, err)
	}

	result.Answer = answerText
	result.Elapsed = time.Since(started)

	metrics.QueryTotal.WithLabelValues(decision.Genre.String(), "ok").Inc()
	metrics.RoyaltyMicrosTotal.WithLabelValues(decision.Genre.String()).Add(float64(total))
	metrics.RoyaltyPerQuery.WithLabelValues(decision.Genre.String()).Observe(total.USD())

	e.publishRoyalty(ctx, result)

	logger.Info(ctx, "问答完成",
		"citations", len(result.Citations),
		"total_micros", int64(result.TotalMicros),
		"elapsed_ms", result.Elapsed.Milliseconds(),
	)
	return result, nil
}

// publishRoyalty 异步发布版税事件；发布失败只记日志，不影响问答结果
func (e *Engine) publishRoyalty(ctx context.Context, result *entity.QueryResult) {
	if e.publisher == nil || len(result.Citations) == 0 {
		return
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.publisher.PublishRoyalty(pubCtx, result); err != nil {
			logger.Error(ctx, "版税事件发布失败", err, "query_id", result.QueryID)
			metrics.RoyaltyEventsPublished.WithLabelValues("error").Inc()
			return
		}
		metrics.RoyaltyEventsPublished.WithLabelValues("ok").Inc()
	}()
}

// routeCached 带缓存的路由；缓存不可用时直接路由
func (e *Engine) routeCached(ctx context.Context, prompt string) routing.Decision {
	if e.routeCache == nil {
		return e.router.Route(ctx, prompt)
	}

	key := "route:" + hashPrompt(prompt)
	data, err := e.routeCache.GetOrLoadSafe(ctx, key, routeCacheTTL, func() (interface{}, error) {
		return e.router.Route(ctx, prompt), nil
	})
	if err != nil {
		logger.Warn(ctx, "路由缓存不可用", "error", err.Error())
		return e.router.Route(ctx, prompt)
	}

	var d routing.Decision
	if err := json.Unmarshal(data, &d); err != nil || !d.Genre.IsValid() {
		return e.router.Route(ctx, prompt)
	}
	return d
}

func hashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	return hex.EncodeToString(sum[:16])
}

// stageError 给错误打上失败阶段标记
func stageError(stage entity.Stage, err error) error {
	tag := "stage=" + string(stage)
	if appErr := apperrors.AsAppError(err); appErr != nil {
		if appErr.Detail != "" {
			return appErr.WithDetail(appErr.Detail + "; " + tag)
		}
		return appErr.WithDetail(tag)
	}
	return apperrors.Wrap(err, apperrors.CodeInternalError, tag)
}
