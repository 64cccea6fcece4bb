package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisThreadsKeyFormat = "session:threads:%s"
	redisActiveKeyFormat  = "session:active:%s"
	sessionStateTTL       = 7 * 24 * time.Hour
	labelMaxRunes         = 40
)

// ThreadInfo 线程列表里的一项
type ThreadInfo struct {
	ID     string `json:"thread_id"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

type sessionState struct {
	threads []string
	active  string
	// cache 活跃线程的消息缓存，切换线程时从存储重载
	cache  []Message
	loaded bool
}

// ThreadManager 管理每个会话的线程集合与当前活跃线程。
// 内存为权威状态，配置了Redis时异步镜像，进程重启后可恢复。
type ThreadManager struct {
	checkpoint CheckpointStore
	redis      *redis.Client // 可为nil
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewThreadManager 创建线程管理器，redis可为nil
func NewThreadManager(checkpoint CheckpointStore, rdb *redis.Client, logger *zap.Logger) *ThreadManager {
	return &ThreadManager{
		checkpoint: checkpoint,
		redis:      rdb,
		logger:     logger,
		sessions:   make(map[string]*sessionState),
	}
}

// session 取得会话状态，首次访问时尝试从Redis恢复
func (m *ThreadManager) session(ctx context.Context, sessionID string) *sessionState {
	if state, ok := m.sessions[sessionID]; ok {
		return state
	}

	state := &sessionState{}
	if m.redis != nil {
		threads, err := m.redis.LRange(ctx, fmt.Sprintf(redisThreadsKeyFormat, sessionID), 0, -1).Result()
		if err != nil && err != redis.Nil {
			m.logger.Warn("Failed to restore session threads from redis",
				zap.String("session_id", sessionID), zap.Error(err))
		} else {
			state.threads = threads
		}
		active, err := m.redis.Get(ctx, fmt.Sprintf(redisActiveKeyFormat, sessionID)).Result()
		if err == nil {
			state.active = active
		}
	}
	m.sessions[sessionID] = state
	return state
}

// mirror 把会话状态镜像到Redis，失败只记录日志
func (m *ThreadManager) mirror(ctx context.Context, sessionID string, state *sessionState) {
	if m.redis == nil {
		return
	}
	threadsKey := fmt.Sprintf(redisThreadsKeyFormat, sessionID)
	activeKey := fmt.Sprintf(redisActiveKeyFormat, sessionID)

	pipe := m.redis.Pipeline()
	pipe.Del(ctx, threadsKey)
	if len(state.threads) > 0 {
		args := make([]interface{}, len(state.threads))
		for i, t := range state.threads {
			args[i] = t
		}
		pipe.RPush(ctx, threadsKey, args...)
	}
	pipe.Set(ctx, activeKey, state.active, sessionStateTTL)
	pipe.Expire(ctx, threadsKey, sessionStateTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		m.logger.Warn("Failed to mirror session state to redis",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// ActiveThread 返回会话当前活跃线程，没有时创建第一个
func (m *ThreadManager) ActiveThread(ctx context.Context, sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.session(ctx, sessionID)
	if state.active != "" {
		return state.active
	}
	return m.newThreadLocked(ctx, sessionID, state)
}

// NewThread 开启一个新的空线程并切换为活跃线程
func (m *ThreadManager) NewThread(ctx context.Context, sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.session(ctx, sessionID)
	return m.newThreadLocked(ctx, sessionID, state)
}

func (m *ThreadManager) newThreadLocked(ctx context.Context, sessionID string, state *sessionState) string {
	threadID := uuid.NewString()
	state.threads = append(state.threads, threadID)
	state.active = threadID
	state.cache = nil
	state.loaded = true
	m.mirror(ctx, sessionID, state)
	m.logger.Info("New thread created",
		zap.String("session_id", sessionID), zap.String("thread_id", threadID))
	return threadID
}

// Switch 把活跃线程切换到已有线程并返回其完整历史，消息缓存
// 同时从存储重载。未知线程ID视为恢复外部创建的线程，注册后
// 切换，后续轮次从其已有历史继续。
func (m *ThreadManager) Switch(ctx context.Context, sessionID, threadID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.session(ctx, sessionID)
	known := false
	for _, t := range state.threads {
		if t == threadID {
			known = true
			break
		}
	}
	if !known {
		state.threads = append(state.threads, threadID)
	}
	state.active = threadID
	state.cache = m.checkpoint.Load(ctx, threadID)
	state.loaded = true
	m.mirror(ctx, sessionID, state)
	return copyMessages(state.cache)
}

// History 返回活跃线程的消息缓存，首次访问时从存储加载
func (m *ThreadManager) History(ctx context.Context, sessionID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.session(ctx, sessionID)
	if state.active == "" {
		return nil
	}
	if !state.loaded {
		state.cache = m.checkpoint.Load(ctx, state.active)
		state.loaded = true
	}
	return copyMessages(state.cache)
}

// RecordTurn 把刚完成的一轮对话追加进消息缓存。只有目标线程
// 仍是活跃线程时才追加，切走的线程下次切回时整体重载。
func (m *ThreadManager) RecordTurn(ctx context.Context, sessionID, threadID, userMsg, assistantMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.session(ctx, sessionID)
	if state.active != threadID || !state.loaded {
		return
	}
	state.cache = append(state.cache,
		Message{Role: RoleUser, Content: userMsg},
		Message{Role: RoleAssistant, Content: assistantMsg},
	)
}

// Invalidate 丢弃会话的消息缓存，下次访问时从存储重载。
// 流式回复未完整送达消费者时使用，避免缓存记下半截回复。
func (m *ThreadManager) Invalidate(ctx context.Context, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.session(ctx, sessionID)
	state.cache = nil
	state.loaded = false
}

func copyMessages(msgs []Message) []Message {
	if len(msgs) == 0 {
		return []Message{}
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// ListThreads 返回会话的全部线程，活跃线程排在最前。
// 标签取线程首条用户消息的截断，空线程按序号命名。
func (m *ThreadManager) ListThreads(ctx context.Context, sessionID string) []ThreadInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.session(ctx, sessionID)
	infos := make([]ThreadInfo, 0, len(state.threads))
	for i, threadID := range state.threads {
		info := ThreadInfo{
			ID:     threadID,
			Label:  m.threadLabel(ctx, threadID, i+1),
			Active: threadID == state.active,
		}
		if info.Active {
			infos = append([]ThreadInfo{info}, infos...)
		} else {
			infos = append(infos, info)
		}
	}
	return infos
}

func (m *ThreadManager) threadLabel(ctx context.Context, threadID string, ordinal int) string {
	history := m.checkpoint.Load(ctx, threadID)
	for _, msg := range history {
		if msg.Role == RoleUser {
			return truncateLabel(msg.Content)
		}
	}
	return fmt.Sprintf("Thread %d", ordinal)
}

func truncateLabel(s string) string {
	if utf8.RuneCountInString(s) <= labelMaxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:labelMaxRunes]) + "..."
}
