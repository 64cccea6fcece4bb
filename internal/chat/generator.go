package chat

import (
	"context"
	"errors"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FallbackAssistantMessage 生成失败时回复的兜底文案
const FallbackAssistantMessage = "Sorry, I'm currently unable to generate a response."

// Message 对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator 回复生成器抽象，屏蔽具体模型提供方
type Generator interface {
	// Generate 根据完整上下文生成一条回复
	Generate(ctx context.Context, messages []Message) (string, error)
	// GenerateStream 流式生成，片段按序写入返回的通道，
	// 结束（含出错截断）时关闭通道
	GenerateStream(ctx context.Context, messages []Message) (<-chan string, error)
}

// OpenAIGenerator 基于OpenAI兼容接口的生成器实现
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIGenerator 创建生成器。baseURL为空时使用官方地址，
// 用于对接任何OpenAI兼容的推理服务。
func NewOpenAIGenerator(apiKey, baseURL, model string, logger *zap.Logger) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: 60 * time.Second,
		logger:  logger,
	}
}

// SetTimeout 设置单次非流式生成的超时上限
func (g *OpenAIGenerator) SetTimeout(d time.Duration) {
	if d > 0 {
		g.timeout = d
	}
}

func (g *OpenAIGenerator) toChatMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}

// Generate 调用chat completion接口生成回复。超时视为普通的生成失败。
func (g *OpenAIGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: g.toChatMessages(messages),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream 调用流式接口，把增量内容转发到通道。
// 流中途出错时记录日志并关闭通道，已发送的片段不回收。
func (g *OpenAIGenerator) GenerateStream(ctx context.Context, messages []Message) (<-chan string, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: g.toChatMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				g.logger.Warn("Chat completion stream interrupted", zap.Error(err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
