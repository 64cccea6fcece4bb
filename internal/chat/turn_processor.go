package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/campushub/chatbot-go/internal/errors"
	"github.com/campushub/chatbot-go/internal/kafka"
	"github.com/campushub/chatbot-go/internal/knowledge"
	"github.com/campushub/chatbot-go/internal/metrics"
	"go.uber.org/zap"
)

// EmptyContextMarker 检索无结果时注入提示词的占位文本
const EmptyContextMarker = "No relevant context found."

const systemPromptTemplate = "You are a helpful college assistant. " +
	"Use the following context to answer the question.\n\nContext:\n%s"

// TurnProcessor 执行一轮对话：校验 -> 检索 -> 组装提示词 -> 生成 -> 落库。
// 同一线程内的轮次串行，不同线程互不阻塞。
type TurnProcessor struct {
	retriever  *knowledge.Retriever
	generator  Generator
	checkpoint CheckpointStore
	producer   *kafka.Producer
	logger     *zap.Logger

	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex
}

// NewTurnProcessor 创建处理器，producer可为nil
func NewTurnProcessor(retriever *knowledge.Retriever, generator Generator, checkpoint CheckpointStore, producer *kafka.Producer, logger *zap.Logger) *TurnProcessor {
	return &TurnProcessor{
		retriever:   retriever,
		generator:   generator,
		checkpoint:  checkpoint,
		producer:    producer,
		logger:      logger,
		threadLocks: make(map[string]*sync.Mutex),
	}
}

// lockThread 取得线程级互斥锁，保证单线程内历史读写不交错
func (p *TurnProcessor) lockThread(threadID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.threadLocks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		p.threadLocks[threadID] = lock
	}
	return lock
}

// ProcessTurn 处理一轮对话并返回助手回复。
// 输入为空白时返回InvalidInput错误且不产生任何副作用。
func (p *TurnProcessor) ProcessTurn(ctx context.Context, threadID, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.NewInvalidInputError("Message cannot be empty")
	}

	lock := p.lockThread(threadID)
	lock.Lock()
	defer lock.Unlock()

	messages := p.buildMessages(ctx, threadID, input)
	answer := p.generate(ctx, messages)

	p.commitTurn(ctx, threadID, input, answer)
	metrics.ChatTurns.Inc()
	return answer, nil
}

// ProcessTurnStream 流式处理一轮对话。片段通过返回的通道交付，
// 消费者提前退出不会中断生成，完整回复仍会落库。
func (p *TurnProcessor) ProcessTurnStream(ctx context.Context, threadID, input string) (<-chan string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.NewInvalidInputError("Message cannot be empty")
	}

	lock := p.lockThread(threadID)
	lock.Lock()

	messages := p.buildMessages(ctx, threadID, input)

	out := make(chan string)
	go func() {
		defer lock.Unlock()
		defer close(out)

		answer := p.streamGenerate(ctx, messages, out)
		// 落库和事件投递不依赖消费者是否还在
		p.commitTurn(context.WithoutCancel(ctx), threadID, input, answer)
		metrics.ChatTurns.Inc()
	}()
	return out, nil
}

// buildMessages 组装完整提示词：系统消息（含检索上下文）+ 历史 + 本轮输入
func (p *TurnProcessor) buildMessages(ctx context.Context, threadID, input string) []Message {
	contexts := p.retriever.Retrieve(ctx, input)
	contextBlock := EmptyContextMarker
	if len(contexts) > 0 {
		contextBlock = strings.Join(contexts, "\n\n")
	}

	history := p.checkpoint.Load(ctx, threadID)

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{
		Role:    RoleSystem,
		Content: strings.Replace(systemPromptTemplate, "%s", contextBlock, 1),
	})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: input})
	return messages
}

// generate 调用生成器，失败时降级为兜底文案
func (p *TurnProcessor) generate(ctx context.Context, messages []Message) string {
	start := time.Now()
	answer, err := p.generator.Generate(ctx, messages)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationFailures.Inc()
		p.logger.Error("Response generation failed", zap.Error(err))
		return FallbackAssistantMessage
	}
	return answer
}

// streamGenerate 把生成片段转发给消费者并累积完整文本。
// 消费者退出后停止转发但继续累积；什么都没生成时返回兜底文案。
func (p *TurnProcessor) streamGenerate(ctx context.Context, messages []Message, out chan<- string) string {
	start := time.Now()
	fragments, err := p.generator.GenerateStream(context.WithoutCancel(ctx), messages)
	if err != nil {
		metrics.GenerationDuration.Observe(time.Since(start).Seconds())
		metrics.GenerationFailures.Inc()
		p.logger.Error("Failed to open generation stream", zap.Error(err))
		p.deliver(ctx, out, FallbackAssistantMessage)
		return FallbackAssistantMessage
	}

	var sb strings.Builder
	consumerGone := false
	for fragment := range fragments {
		sb.WriteString(fragment)
		if !consumerGone {
			consumerGone = !p.deliver(ctx, out, fragment)
		}
	}
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())

	answer := sb.String()
	if answer == "" {
		metrics.GenerationFailures.Inc()
		p.deliver(ctx, out, FallbackAssistantMessage)
		return FallbackAssistantMessage
	}
	return answer
}

// deliver 发送一个片段，消费者已断开时返回false
func (p *TurnProcessor) deliver(ctx context.Context, out chan<- string, fragment string) bool {
	select {
	case out <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}

// commitTurn 提交本轮对话。写入失败只记录日志，回复仍返回给用户。
func (p *TurnProcessor) commitTurn(ctx context.Context, threadID, input, answer string) {
	if err := p.checkpoint.AppendTurn(ctx, threadID, input, answer); err != nil {
		p.logger.Error("Failed to persist conversation turn",
			zap.String("thread_id", threadID), zap.Error(err))
	}

	if p.producer != nil {
		event := kafka.TurnEvent{
			ThreadID:     threadID,
			UserMessage:  input,
			AssistantMsg: answer,
			Timestamp:    time.Now(),
		}
		go p.producer.SendTurn(event)
	}
}
