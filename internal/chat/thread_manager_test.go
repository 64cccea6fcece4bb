package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mapCheckpointStore 内存历史存储，只为线程管理测试服务
type mapCheckpointStore struct {
	history map[string][]Message
}

func newMapCheckpointStore() *mapCheckpointStore {
	return &mapCheckpointStore{history: make(map[string][]Message)}
}

func (s *mapCheckpointStore) AppendTurn(_ context.Context, threadID, userMsg, assistantMsg string) error {
	s.history[threadID] = append(s.history[threadID],
		Message{Role: RoleUser, Content: userMsg},
		Message{Role: RoleAssistant, Content: assistantMsg})
	return nil
}

func (s *mapCheckpointStore) Load(_ context.Context, threadID string) []Message {
	return s.history[threadID]
}

func (s *mapCheckpointStore) ListThreads(_ context.Context) []string {
	threads := make([]string, 0, len(s.history))
	for id := range s.history {
		threads = append(threads, id)
	}
	return threads
}

func TestThreadManager_ActiveThreadCreatedOnDemand(t *testing.T) {
	manager := NewThreadManager(newMapCheckpointStore(), nil, zap.NewNop())
	ctx := context.Background()

	threadID := manager.ActiveThread(ctx, "session-1")
	assert.NotEmpty(t, threadID)

	// 再次获取返回同一个线程
	assert.Equal(t, threadID, manager.ActiveThread(ctx, "session-1"))
}

func TestThreadManager_NewThreadSwitchesActive(t *testing.T) {
	manager := NewThreadManager(newMapCheckpointStore(), nil, zap.NewNop())
	ctx := context.Background()

	first := manager.ActiveThread(ctx, "session-1")
	second := manager.NewThread(ctx, "session-1")
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, manager.ActiveThread(ctx, "session-1"))
}

func TestThreadManager_Switch(t *testing.T) {
	manager := NewThreadManager(newMapCheckpointStore(), nil, zap.NewNop())
	ctx := context.Background()

	first := manager.ActiveThread(ctx, "session-1")
	second := manager.NewThread(ctx, "session-1")
	require.NotEqual(t, first, second)

	manager.Switch(ctx, "session-1", first)
	assert.Equal(t, first, manager.ActiveThread(ctx, "session-1"))
}

func TestThreadManager_SwitchToUnknownThreadRegistersIt(t *testing.T) {
	manager := NewThreadManager(newMapCheckpointStore(), nil, zap.NewNop())
	ctx := context.Background()

	manager.Switch(ctx, "session-1", "external-thread")
	assert.Equal(t, "external-thread", manager.ActiveThread(ctx, "session-1"))

	infos := manager.ListThreads(ctx, "session-1")
	require.Len(t, infos, 1)
	assert.Equal(t, "external-thread", infos[0].ID)
}

func TestThreadManager_SessionsIsolated(t *testing.T) {
	manager := NewThreadManager(newMapCheckpointStore(), nil, zap.NewNop())
	ctx := context.Background()

	threadA := manager.ActiveThread(ctx, "session-a")
	threadB := manager.ActiveThread(ctx, "session-b")
	assert.NotEqual(t, threadA, threadB)

	assert.Len(t, manager.ListThreads(ctx, "session-a"), 1)
	assert.Len(t, manager.ListThreads(ctx, "session-b"), 1)
}

func TestThreadManager_ListThreads_ActiveFirst(t *testing.T) {
	manager := NewThreadManager(newMapCheckpointStore(), nil, zap.NewNop())
	ctx := context.Background()

	first := manager.ActiveThread(ctx, "session-1")
	second := manager.NewThread(ctx, "session-1")
	third := manager.NewThread(ctx, "session-1")

	infos := manager.ListThreads(ctx, "session-1")
	require.Len(t, infos, 3)
	assert.Equal(t, third, infos[0].ID)
	assert.True(t, infos[0].Active)
	for _, info := range infos[1:] {
		assert.False(t, info.Active)
	}
	_ = first
	_ = second
}

func TestThreadManager_SwitchReloadsHistory(t *testing.T) {
	store := newMapCheckpointStore()
	manager := NewThreadManager(store, nil, zap.NewNop())
	ctx := context.Background()

	first := manager.ActiveThread(ctx, "session-1")
	require.NoError(t, store.AppendTurn(ctx, first, "Where is the library?", "Next to the main hall."))
	second := manager.NewThread(ctx, "session-1")

	// 切回旧线程时缓存从存储整体重载
	history := manager.Switch(ctx, "session-1", first)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "Where is the library?", history[0].Content)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, history, manager.History(ctx, "session-1"))

	// 切到空线程缓存清空
	assert.Empty(t, manager.Switch(ctx, "session-1", second))
	assert.Empty(t, manager.History(ctx, "session-1"))
}

func TestThreadManager_RecordTurnAppendsToCache(t *testing.T) {
	store := newMapCheckpointStore()
	manager := NewThreadManager(store, nil, zap.NewNop())
	ctx := context.Background()

	threadID := manager.ActiveThread(ctx, "session-1")
	manager.RecordTurn(ctx, "session-1", threadID, "What are the gym hours?", "Open 6am to 11pm.")

	history := manager.History(ctx, "session-1")
	require.Len(t, history, 2)
	assert.Equal(t, "What are the gym hours?", history[0].Content)
	assert.Equal(t, "Open 6am to 11pm.", history[1].Content)

	// 非活跃线程的轮次不进缓存
	manager.RecordTurn(ctx, "session-1", "another-thread", "ignored", "ignored")
	assert.Len(t, manager.History(ctx, "session-1"), 2)
}

func TestThreadManager_HistoryLazyLoadsActiveThread(t *testing.T) {
	store := newMapCheckpointStore()
	manager := NewThreadManager(store, nil, zap.NewNop())
	ctx := context.Background()

	// 没有活跃线程时没有历史
	assert.Empty(t, manager.History(ctx, "session-1"))

	manager.Switch(ctx, "session-1", "external-thread")
	require.NoError(t, store.AppendTurn(ctx, "external-thread", "Hi", "Hello."))

	// 缓存作废后下次访问从存储重载
	manager.Invalidate(ctx, "session-1")
	history := manager.History(ctx, "session-1")
	require.Len(t, history, 2)
	assert.Equal(t, "Hi", history[0].Content)
}

func TestThreadManager_Labels(t *testing.T) {
	store := newMapCheckpointStore()
	manager := NewThreadManager(store, nil, zap.NewNop())
	ctx := context.Background()

	withHistory := manager.ActiveThread(ctx, "session-1")
	require.NoError(t, store.AppendTurn(ctx, withHistory, "How do I apply for a dorm room?", "Visit the housing office."))
	empty := manager.NewThread(ctx, "session-1")

	infos := manager.ListThreads(ctx, "session-1")
	require.Len(t, infos, 2)

	byID := make(map[string]ThreadInfo, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}
	// 有历史的线程用首条用户消息做标签
	assert.Equal(t, "How do I apply for a dorm room?", byID[withHistory].Label)
	// 空线程按序号命名
	assert.Equal(t, "Thread 2", byID[empty].Label)
}

func TestThreadManager_LabelTruncation(t *testing.T) {
	store := newMapCheckpointStore()
	manager := NewThreadManager(store, nil, zap.NewNop())
	ctx := context.Background()

	threadID := manager.ActiveThread(ctx, "session-1")
	long := strings.Repeat("very long question ", 10)
	require.NoError(t, store.AppendTurn(ctx, threadID, long, "short answer"))

	infos := manager.ListThreads(ctx, "session-1")
	require.Len(t, infos, 1)
	assert.True(t, strings.HasSuffix(infos[0].Label, "..."))
	assert.LessOrEqual(t, len([]rune(infos[0].Label)), 43)
}
