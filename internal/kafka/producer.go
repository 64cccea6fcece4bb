package kafka

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/campushub/chatbot-go/internal/logger"
	"go.uber.org/zap"
)

// TurnEvent 一轮完成的对话，投递到Kafka供离线分析消费
type TurnEvent struct {
	ThreadID     string    `json:"thread_id"`
	UserMessage  string    `json:"user_message"`
	AssistantMsg string    `json:"assistant_message"`
	Timestamp    time.Time `json:"timestamp"`
}

// Producer Kafka消息生产者。未配置Kafka时为nil，所有方法nil安全。
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer 创建生产者并建立连接
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	logger.Info("Kafka producer initialized",
		zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &Producer{producer: producer, topic: topic}, nil
}

// SendTurn 发送一条对话事件，失败只记录日志不影响主流程
func (p *Producer) SendTurn(event TurnEvent) {
	if p == nil || p.producer == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal turn event", zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ThreadID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		logger.Error("Failed to publish turn event",
			zap.String("thread_id", event.ThreadID), zap.Error(err))
	}
}

// Close 关闭底层连接
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
