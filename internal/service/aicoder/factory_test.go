package aicoder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-coder/internal/testutil"
)

// stubHistory 记录加载次数，每次加载写入一条固定消息
type stubHistory struct {
	mu    sync.Mutex
	loads map[int64]int
}

func newStubHistory() *stubHistory {
	return &stubHistory{loads: make(map[int64]int)}
}

func (h *stubHistory) LoadChatHistoryToMemory(ctx context.Context, appID int64, memory *ChatMemory, max int) int {
	h.mu.Lock()
	h.loads[appID]++
	h.mu.Unlock()

	_ = memory.Clear(ctx)
	_ = memory.Add(ctx, schema.UserMessage("历史消息"))
	return 1
}

func (h *stubHistory) count(appID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loads[appID]
}

// emptyHistory 数据库中没有对话历史
type emptyHistory struct{}

func (emptyHistory) LoadChatHistoryToMemory(ctx context.Context, appID int64, memory *ChatMemory, max int) int {
	_ = memory.Clear(ctx)
	return 0
}

// failingStore 读取总是失败
type failingStore struct {
	*InMemoryStore
}

func (failingStore) Load(ctx context.Context, id int64) ([]*schema.Message, error) {
	return nil, errors.New("redis unavailable")
}

func newTestFactory(t *testing.T, history HistoryLoader, opts ...FactoryOption) *Factory {
	t.Helper()
	f, err := NewFactory(FactoryConfig{
		ChatModel: &testutil.ScriptedChatModel{},
		History:   history,
		Cache:     DefaultCacheConfig(),
		Log:       testutil.NewLogger(),
	}, opts...)
	require.NoError(t, err)
	return f
}

func TestFactory_ReusesServicePerApp(t *testing.T) {
	history := newStubHistory()
	f := newTestFactory(t, history)
	ctx := context.Background()

	a, err := f.Service(ctx, 1)
	require.NoError(t, err)
	b, err := f.Service(ctx, 1)
	require.NoError(t, err)
	c, err := f.Service(ctx, 2)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 1, history.count(1))
	assert.Equal(t, 1, a.Memory().Len())
	assert.Equal(t, int64(2), c.AppID())
}

func TestFactory_ConcurrentFirstAccess(t *testing.T) {
	history := newStubHistory()
	f := newTestFactory(t, history)

	var wg sync.WaitGroup
	services := make([]*Service, 16)
	for i := range services {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.Service(context.Background(), 3)
			assert.NoError(t, err)
			services[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range services {
		assert.Same(t, services[0], s)
	}
	assert.Equal(t, 1, history.count(3))
}

func TestFactory_IdleEvictionReloadsHistory(t *testing.T) {
	clock := newFakeClock()
	history := newStubHistory()
	f := newTestFactory(t, history, WithClock(clock.Now))
	ctx := context.Background()

	first, err := f.Service(ctx, 5)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)

	second, err := f.Service(ctx, 5)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, history.count(5))
	assert.Equal(t, 1, second.Memory().Len())
}

func TestFactory_Invalidate(t *testing.T) {
	history := newStubHistory()
	f := newTestFactory(t, history)
	ctx := context.Background()

	_, err := f.Service(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())

	f.Invalidate(7)
	assert.Equal(t, 0, f.Len())

	_, err = f.Service(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, history.count(7))
}

func TestFactory_DefaultIsShared(t *testing.T) {
	f := newTestFactory(t, nil)
	assert.Same(t, f.Default(), f.Default())
	assert.Equal(t, 0, f.Len())
}

func TestFactory_JanitorStopsOnCancel(t *testing.T) {
	f := newTestFactory(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestFactory_RestoresFromStoreWhenHistoryEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Update(ctx, 3, []*schema.Message{
		schema.UserMessage("做个页面"),
		schema.AssistantMessage("<p>x</p>", nil),
	}))

	f, err := NewFactory(FactoryConfig{
		ChatModel: &testutil.ScriptedChatModel{},
		History:   emptyHistory{},
		Store:     store,
		Cache:     DefaultCacheConfig(),
		Log:       testutil.NewLogger(),
	})
	require.NoError(t, err)

	svc, err := f.Service(ctx, 3)
	require.NoError(t, err)
	msgs := svc.Memory().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, "<p>x</p>", msgs[1].Content)

	// 恢复后重新写回镜像
	mirrored, err := store.Load(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, mirrored, 2)
}

func TestFactory_HistoryWinsOverStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.Update(ctx, 4, []*schema.Message{schema.UserMessage("旧镜像")}))

	f, err := NewFactory(FactoryConfig{
		ChatModel: &testutil.ScriptedChatModel{},
		History:   newStubHistory(),
		Store:     store,
		Cache:     DefaultCacheConfig(),
		Log:       testutil.NewLogger(),
	})
	require.NoError(t, err)

	svc, err := f.Service(ctx, 4)
	require.NoError(t, err)
	msgs := svc.Memory().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "历史消息", msgs[0].Content)
}

func TestFactory_StoreLoadErrorIgnored(t *testing.T) {
	f, err := NewFactory(FactoryConfig{
		ChatModel: &testutil.ScriptedChatModel{},
		History:   emptyHistory{},
		Store:     failingStore{NewInMemoryStore()},
		Cache:     DefaultCacheConfig(),
		Log:       testutil.NewLogger(),
	})
	require.NoError(t, err)

	svc, err := f.Service(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, 0, svc.Memory().Len())
}

func TestFactory_InvalidateDropsStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	f, err := NewFactory(FactoryConfig{
		ChatModel: &testutil.ScriptedChatModel{},
		History:   newStubHistory(),
		Store:     store,
		Cache:     DefaultCacheConfig(),
		Log:       testutil.NewLogger(),
	})
	require.NoError(t, err)

	_, err = f.Service(ctx, 8)
	require.NoError(t, err)
	mirrored, err := store.Load(ctx, 8)
	require.NoError(t, err)
	require.Len(t, mirrored, 1)

	f.Invalidate(8)
	mirrored, err = store.Load(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, mirrored)
}
