// Package answer 将路由、检索、计费与生成编排为一次完整问答
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"citementor-api/internal/domain/entity"
	obseino "citementor-api/internal/observability/eino"
	apperrors "citementor-api/pkg/errors"
)

// ChatModelFactory 定义应用层对 LLM ChatModel 的最小依赖（port）。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// Synthesizer 基于召回段落生成带引用的答案
type Synthesizer interface {
	Synthesize(ctx context.Context, genre entity.Genre, question, contextBlock string) (string, error)
}

const defaultSynthesisTimeout = 45 * time.Second

// genreTones 各书架的回答语气提示
var genreTones = map[entity.Genre]string{
	entity.GenreWealth:        "务实、具体，聚焦可执行的理财原则。",
	entity.GenreRelationships: "温和、共情，聚焦沟通与相处之道。",
	entity.GenrePhilosophy:    "克制、思辨，聚焦原则与视角而非结论。",
}

type LLMSynthesizer struct {
	factory  ChatModelFactory
	provider string
	timeout  time.Duration
}

func NewLLMSynthesizer(factory ChatModelFactory, provider string, timeout time.Duration) *LLMSynthesizer {
	if timeout <= 0 {
		timeout = defaultSynthesisTimeout
	}
	return &LLMSynthesizer{
		factory:  factory,
		provider: provider,
		timeout:  timeout,
	}
}

// Synthesize 调用 ChatModel 生成答案。
// 答案必须仅依据 contextBlock 中的书摘作答，并以 [n] 标注引用来源。
func (s *LLMSynthesizer) Synthesize(ctx context.Context, genre entity.Genre, question, contextBlock string) (string, error) {
	if s == nil || s.factory == nil {
		return "", apperrors.New(apperrors.CodeLLMProviderError, "llm factory not configured")
	}

	chatModel, err := s.factory.Get(ctx, s.provider)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeLLMProviderError, "获取 ChatModel 失败")
	}

	ctx = obseino.WithProvider(ctx, s.provider)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msgs := buildMessages(genre, question, contextBlock)
	outMsg, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperrors.Wrap(err, apperrors.CodeGenerationTimeout, "答案生成超时")
		}
		return "", apperrors.Wrap(err, apperrors.CodeGenerationFailed, "答案生成失败")
	}
	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		return "", apperrors.New(apperrors.CodeGenerationFailed, "LLM 返回空答案")
	}
	return strings.TrimSpace(outMsg.Content), nil
}

func buildMessages(genre entity.Genre, question, contextBlock string) []*schema.Message {
	tone := genreTones[genre]
	system := fmt.Sprintf(`你是一位导师，只依据提供的书摘回答问题。
规则：
1. 只能使用【引用书摘】中的内容作答，不得引入书摘之外的事实。
2. 引用某条书摘时在句末标注其序号，如 [1]。
3. 书摘不足以回答时，明确说明无法作答，不要编造。
4. 语气：%s`, tone)

	user := fmt.Sprintf("%s\n\n【问题】\n%s", contextBlock, question)

	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
}
