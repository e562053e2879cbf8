package rag

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/knowbase/llm"
)

// mockChatProvider 可编程的对话补全桩。
type mockChatProvider struct {
	response string
	err      error
	calls    int
	lastReq  *llm.ChatRequest
}

func (m *mockChatProvider) Name() string { return "mock" }

func (m *mockChatProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResponse{
		Model: "mock",
		Choices: []llm.ChatChoice{{
			Message: llm.Message{Role: llm.RoleAssistant, Content: m.response},
		}},
	}, nil
}

func newTestExpander(provider llm.Provider, cache ExpansionCache) *QueryExpander {
	return NewQueryExpander(provider, cache, DefaultExpanderConfig(), zap.NewNop())
}

func TestQueryExpander_Expand(t *testing.T) {
	provider := &mockChatProvider{
		response: `["how do refunds work", "refund policy details", "money back process"]`,
	}
	expander := newTestExpander(provider, nil)

	result := expander.Expand(context.Background(), "what is the refund policy", 4)
	require.Len(t, result, 4)
	assert.Equal(t, "what is the refund policy", result[0])
	assert.Equal(t, "how do refunds work", result[1])
}

func TestQueryExpander_SingleQueryNoProviderCall(t *testing.T) {
	provider := &mockChatProvider{response: `["unused"]`}
	expander := newTestExpander(provider, nil)

	result := expander.Expand(context.Background(), "test", 1)
	assert.Equal(t, []string{"test"}, result)
	assert.Zero(t, provider.calls)
}

func TestQueryExpander_CeilingClamped(t *testing.T) {
	provider := &mockChatProvider{
		response: `["a", "b", "c", "d", "e", "f", "g", "h"]`,
	}
	expander := newTestExpander(provider, nil)

	result := expander.Expand(context.Background(), "query", 99)
	assert.Len(t, result, MaxQueryVariants)
	assert.Equal(t, "query", result[0])
}

func TestQueryExpander_ProviderFailureDegrades(t *testing.T) {
	provider := &mockChatProvider{
		err: &llm.Error{Code: llm.ErrRateLimited, Message: "rate limited"},
	}
	expander := newTestExpander(provider, nil)

	result := expander.Expand(context.Background(), "my question", 4)
	assert.Equal(t, []string{"my question"}, result)
}

func TestQueryExpander_MalformedOutputDegrades(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "here are some queries you could try"},
		{"broken array", `["a", "b"`},
		{"only empties", `["", "   "]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expander := newTestExpander(&mockChatProvider{response: tt.response}, nil)
			result := expander.Expand(context.Background(), "original", 3)
			assert.Equal(t, "original", result[0])
			assert.Len(t, result, 1)
		})
	}
}

func TestQueryExpander_ArrayInsideObjectExtracted(t *testing.T) {
	// 模型把数组包进了 JSON 对象：提取内嵌数组而非降级
	provider := &mockChatProvider{response: `{"queries": ["a", "b"]}`}
	expander := newTestExpander(provider, nil)

	result := expander.Expand(context.Background(), "original", 3)
	assert.Equal(t, []string{"original", "a", "b"}, result)
}

func TestQueryExpander_TemperatureReachesProvider(t *testing.T) {
	provider := &mockChatProvider{response: `["variant"]`}
	cfg := DefaultExpanderConfig()
	cfg.Temperature = 0.25
	expander := NewQueryExpander(provider, nil, cfg, zap.NewNop())

	expander.Expand(context.Background(), "q", 2)
	require.NotNil(t, provider.lastReq)
	assert.InDelta(t, 0.25, float64(provider.lastReq.Temperature), 1e-6)
}

func TestQueryExpander_FiltersNonStringsAndFences(t *testing.T) {
	// 数组藏在代码围栏里，且混入非字符串与空串
	provider := &mockChatProvider{
		response: "Sure! Here you go:\n```json\n[\"variant one\", 42, \"\", \"variant two\"]\n```",
	}
	expander := newTestExpander(provider, nil)

	result := expander.Expand(context.Background(), "q", 5)
	assert.Equal(t, []string{"q", "variant one", "variant two"}, result)
}

func TestQueryExpander_DeduplicatesOriginal(t *testing.T) {
	provider := &mockChatProvider{
		response: `["same query", "different phrasing"]`,
	}
	expander := newTestExpander(provider, nil)

	result := expander.Expand(context.Background(), "same query", 3)
	assert.Equal(t, []string{"same query", "different phrasing"}, result)
}

func TestQueryExpander_MemoryCache(t *testing.T) {
	provider := &mockChatProvider{response: `["v1", "v2"]`}
	cache := NewMemoryExpansionCache(time.Minute)
	expander := newTestExpander(provider, cache)

	first := expander.Expand(context.Background(), "cached query", 3)
	second := expander.Expand(context.Background(), "cached query", 3)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)
}

func TestQueryExpander_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisExpansionCache(client, time.Minute, zap.NewNop())

	provider := &mockChatProvider{response: `["v1", "v2"]`}
	expander := newTestExpander(provider, cache)

	first := expander.Expand(context.Background(), "shared query", 3)
	second := expander.Expand(context.Background(), "shared query", 3)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)

	// TTL 过期后重新生成
	mr.FastForward(2 * time.Minute)
	expander.Expand(context.Background(), "shared query", 3)
	assert.Equal(t, 2, provider.calls)
}

func TestMemoryExpansionCache_TTLExpiry(t *testing.T) {
	cache := NewMemoryExpansionCache(time.Nanosecond)
	cache.Set(context.Background(), "q", []string{"q", "v"})

	time.Sleep(time.Millisecond)
	_, ok := cache.Get(context.Background(), "q")
	assert.False(t, ok)
}

func TestMemoryExpansionCache_SweepsExpiredOnSet(t *testing.T) {
	cache := NewMemoryExpansionCache(time.Nanosecond)
	cache.Set(context.Background(), "old1", []string{"old1", "v"})
	cache.Set(context.Background(), "old2", []string{"old2", "v"})

	// 过期条目在下一次写入时被清理，缓存不会无限增长
	time.Sleep(time.Millisecond)
	cache.Set(context.Background(), "fresh", []string{"fresh", "v"})

	cache.mu.RLock()
	defer cache.mu.RUnlock()
	require.Len(t, cache.entries, 1)
	_, ok := cache.entries["fresh"]
	assert.True(t, ok)
}
