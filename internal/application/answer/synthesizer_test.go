package answer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"citementor-api/internal/domain/entity"
	apperrors "citementor-api/pkg/errors"
)

// stubChatModel 按配置返回固定答案，或阻塞到超出调用方的超时
type stubChatModel struct {
	content string
	block   bool
}

func (m *stubChatModel) Generate(ctx context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *stubChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

type stubFactory struct {
	model model.BaseChatModel
	err   error
}

func (f *stubFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.model, f.err
}

func TestSynthesizeReturnsAnswer(t *testing.T) {
	s := NewLLMSynthesizer(&stubFactory{model: &stubChatModel{content: "  Save a tenth [1].  "}}, "stub", time.Second)

	got, err := s.Synthesize(context.Background(), entity.GenreWealth, "How to save?", "【引用书摘（按相关度排序）】\n[1] ...")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if got != "Save a tenth [1]." {
		t.Errorf("答案应去除首尾空白, got %q", got)
	}
}

func TestSynthesizeTimeoutCode(t *testing.T) {
	s := NewLLMSynthesizer(&stubFactory{model: &stubChatModel{block: true}}, "stub", 20*time.Millisecond)

	start := time.Now()
	_, err := s.Synthesize(context.Background(), entity.GenrePhilosophy, "What is virtue?", "[1] ...")
	if apperrors.CodeOf(err) != apperrors.CodeGenerationTimeout {
		t.Fatalf("超时应返回 CodeGenerationTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("超时未生效, elapsed = %v", elapsed)
	}
}

func TestSynthesizeEmptyAnswer(t *testing.T) {
	s := NewLLMSynthesizer(&stubFactory{model: &stubChatModel{content: "   "}}, "stub", time.Second)

	_, err := s.Synthesize(context.Background(), entity.GenreWealth, "How to save?", "[1] ...")
	if apperrors.CodeOf(err) != apperrors.CodeGenerationFailed {
		t.Errorf("空答案应返回 CodeGenerationFailed, got %v", err)
	}
}

func TestSynthesizeFactoryError(t *testing.T) {
	s := NewLLMSynthesizer(&stubFactory{err: apperrors.New(apperrors.CodeLLMProviderError, "no such provider")}, "stub", time.Second)

	_, err := s.Synthesize(context.Background(), entity.GenreWealth, "How to save?", "[1] ...")
	if apperrors.CodeOf(err) != apperrors.CodeLLMProviderError {
		t.Errorf("工厂失败应返回 CodeLLMProviderError, got %v", err)
	}
}

func TestBuildMessagesContainsContext(t *testing.T) {
	msgs := buildMessages(entity.GenreWealth, "How to save?", "[1] Start thy purse to fattening.")
	if len(msgs) != 2 {
		t.Fatalf("消息数 = %d, want 2", len(msgs))
	}
	if !strings.Contains(msgs[1].Content, "Start thy purse") {
		t.Errorf("用户消息缺少书摘: %q", msgs[1].Content)
	}
	if !strings.Contains(msgs[0].Content, genreTones[entity.GenreWealth]) {
		t.Errorf("系统消息缺少书架语气: %q", msgs[0].Content)
	}
}
