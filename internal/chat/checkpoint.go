package chat

import (
	"context"
	"time"

	"github.com/campushub/chatbot-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CheckpointStore 会话历史持久化抽象。
// 读取失败降级为空历史，由实现负责记录日志；写入失败向上返回。
type CheckpointStore interface {
	// AppendTurn 原子地追加一轮对话（用户消息+助手回复）
	AppendTurn(ctx context.Context, threadID, userMsg, assistantMsg string) error
	// Load 按序返回线程的全部历史消息
	Load(ctx context.Context, threadID string) []Message
	// ListThreads 返回所有存在历史的线程ID
	ListThreads(ctx context.Context) []string
}

// GormCheckpointStore 基于关系库的历史存储，postgres与sqlite通用
type GormCheckpointStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormCheckpointStore 创建历史存储
func NewGormCheckpointStore(db *gorm.DB, logger *zap.Logger) *GormCheckpointStore {
	return &GormCheckpointStore{db: db, logger: logger}
}

// AppendTurn 在一个事务里写入用户与助手两条消息，
// 序号基于线程内当前最大seq递增，保证单线程串行调用下连续。
func (s *GormCheckpointStore) AppendTurn(ctx context.Context, threadID, userMsg, assistantMsg string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&models.ChatMessage{}).
			Where("thread_id = ?", threadID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		now := time.Now()
		rows := []models.ChatMessage{
			{ThreadID: threadID, Seq: maxSeq + 1, Role: models.RoleUser, Content: userMsg, CreatedAt: now},
			{ThreadID: threadID, Seq: maxSeq + 2, Role: models.RoleAssistant, Content: assistantMsg, CreatedAt: now},
		}
		return tx.Create(&rows).Error
	})
}

// Load 读取线程历史，按seq升序。读取失败按空历史处理。
func (s *GormCheckpointStore) Load(ctx context.Context, threadID string) []Message {
	var rows []models.ChatMessage
	if err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		s.logger.Warn("Failed to load thread history, starting empty",
			zap.String("thread_id", threadID), zap.Error(err))
		return nil
	}

	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, Message{Role: row.Role, Content: row.Content})
	}
	return messages
}

// ListThreads 返回有历史记录的线程，按首条消息时间排序
func (s *GormCheckpointStore) ListThreads(ctx context.Context) []string {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Select("thread_id").
		Group("thread_id").
		Order("MIN(created_at) ASC").
		Pluck("thread_id", &ids).Error; err != nil {
		s.logger.Warn("Failed to list threads", zap.Error(err))
		return nil
	}
	return ids
}
