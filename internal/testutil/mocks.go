package testutil

import (
	"context"
	"sync"
	"time"

	"gmd/internal/ghost"
	"gmd/internal/models"
	"gmd/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Entries returns a copy of the recorded log entries.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), m.Logs...)
}

// MockGhostClient implements ghost.ClientInterface with injectable behavior
// and per-method call counters.
type MockGhostClient struct {
	mu    sync.Mutex
	Calls map[string]int

	MembersFn           func(ctx context.Context) (models.MemberCounts, error)
	PostsFn             func(ctx context.Context) (models.PostCounts, error)
	LatestPostFn        func(ctx context.Context) (*models.LatestPost, error)
	RevenueFn           func(ctx context.Context) (models.Revenue, error)
	NewsletterFn        func(ctx context.Context) (*models.NewsletterStats, error)
	NewsletterMembersFn func(ctx context.Context) (map[string]int, error)
	ActivityPubFn       func(ctx context.Context) (models.ActivityPub, error)
	CommentsFn          func(ctx context.Context) (int, error)
	SiteFn              func(ctx context.Context) (*ghost.Site, error)
	CreateWebhookFn     func(ctx context.Context, event, targetURL string) (string, error)
	DeleteWebhookFn     func(ctx context.Context, id string) error
}

func NewMockGhostClient() *MockGhostClient {
	return &MockGhostClient{Calls: make(map[string]int)}
}

func (m *MockGhostClient) count(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[method]++
}

// CallCount returns how often method was invoked.
func (m *MockGhostClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *MockGhostClient) GetSite(ctx context.Context) (*ghost.Site, error) {
	m.count("GetSite")
	if m.SiteFn != nil {
		return m.SiteFn(ctx)
	}
	return &ghost.Site{Title: "Test Site"}, nil
}

func (m *MockGhostClient) MembersSummary(ctx context.Context) (models.MemberCounts, error) {
	m.count("MembersSummary")
	if m.MembersFn != nil {
		return m.MembersFn(ctx)
	}
	return models.MemberCounts{}, nil
}

func (m *MockGhostClient) PostsSummary(ctx context.Context) (models.PostCounts, error) {
	m.count("PostsSummary")
	if m.PostsFn != nil {
		return m.PostsFn(ctx)
	}
	return models.PostCounts{}, nil
}

func (m *MockGhostClient) LatestPost(ctx context.Context) (*models.LatestPost, error) {
	m.count("LatestPost")
	if m.LatestPostFn != nil {
		return m.LatestPostFn(ctx)
	}
	return nil, nil
}

func (m *MockGhostClient) RevenueSummary(ctx context.Context) (models.Revenue, error) {
	m.count("RevenueSummary")
	if m.RevenueFn != nil {
		return m.RevenueFn(ctx)
	}
	return models.Revenue{}, nil
}

func (m *MockGhostClient) NewsletterSummary(ctx context.Context) (*models.NewsletterStats, error) {
	m.count("NewsletterSummary")
	if m.NewsletterFn != nil {
		return m.NewsletterFn(ctx)
	}
	return nil, nil
}

func (m *MockGhostClient) NewsletterMembers(ctx context.Context) (map[string]int, error) {
	m.count("NewsletterMembers")
	if m.NewsletterMembersFn != nil {
		return m.NewsletterMembersFn(ctx)
	}
	return nil, nil
}

func (m *MockGhostClient) ActivityPubSummary(ctx context.Context) (models.ActivityPub, error) {
	m.count("ActivityPubSummary")
	if m.ActivityPubFn != nil {
		return m.ActivityPubFn(ctx)
	}
	return models.ActivityPub{}, nil
}

func (m *MockGhostClient) CommentsSummary(ctx context.Context) (int, error) {
	m.count("CommentsSummary")
	if m.CommentsFn != nil {
		return m.CommentsFn(ctx)
	}
	return 0, nil
}

func (m *MockGhostClient) CreateWebhook(ctx context.Context, event, targetURL string) (string, error) {
	m.count("CreateWebhook")
	if m.CreateWebhookFn != nil {
		return m.CreateWebhookFn(ctx, event, targetURL)
	}
	return "wh_" + event, nil
}

func (m *MockGhostClient) DeleteWebhook(ctx context.Context, id string) error {
	m.count("DeleteWebhook")
	if m.DeleteWebhookFn != nil {
		return m.DeleteWebhookFn(ctx, id)
	}
	return nil
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu            sync.Mutex
	Polls         map[string]int
	WebhookEvents map[string]int
	CacheHits     int
	CacheMisses   int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Polls:         make(map[string]int),
		WebhookEvents: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncPollsTotal(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Polls[result]++
}

func (m *MockMetrics) ObservePollDuration(_ time.Duration) {}

func (m *MockMetrics) IncWebhookEvents(event string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WebhookEvents[event+":"+outcome]++
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable
// behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}
