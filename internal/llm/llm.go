package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Completer 是外部模型的最小抽象：文本进，文本出
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New 按 provider 创建 Completer；model 为空时使用各家的默认模型
func New(provider, model, apiKey string) (Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: API_KEY is not set")
	}
	switch strings.ToLower(provider) {
	case "gemini", "":
		c, err := NewGeminiClient(apiKey, model)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "anthropic", "claude":
		return NewAnthropicClient(apiKey, model), nil
	case "openai":
		return NewOpenAIClient(apiKey, model), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q (valid: gemini, anthropic, openai)", provider)
	}
}

// StripCodeFence 去掉模型输出外层的 ``` / ```json 包裹
func StripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```JSON")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// Unavailable 在无法构造客户端时占位（例如缺少 API_KEY），调用时返回构造错误
type Unavailable struct {
	Err error
}

func (u Unavailable) Complete(ctx context.Context, prompt string) (string, error) {
	return "", u.Err
}

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout 为每次调用加上超时
func WithTimeout(c Completer, d time.Duration) Completer {
	if d <= 0 {
		return c
	}
	return &timeoutCompleter{next: c, timeout: d}
}

func (t *timeoutCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, prompt)
}
