package testutil

import (
	"context"
	"sync"

	"gmd/internal/models"
	"gmd/internal/services"
)

// MockCoordinator implements services.CoordinatorServiceInterface.
type MockCoordinator struct {
	mu sync.Mutex

	Snapshot *models.MetricsSnapshot
	OK       bool
	Stat     services.Status
	Reauth   bool

	RefreshFn     func(ctx context.Context) error
	RefreshCalls  int
	AppliedEvents []*models.WebhookEvent
	ApplyResult   bool
	Restored      *models.MetricsSnapshot
	Closed        bool

	listeners map[int]func()
	nextID    int
}

func (m *MockCoordinator) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.RefreshCalls++
	fn := m.RefreshFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (m *MockCoordinator) Current() (*models.MetricsSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Snapshot, m.OK
}

func (m *MockCoordinator) ApplyEvent(ev *models.WebhookEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppliedEvents = append(m.AppliedEvents, ev)
	return m.ApplyResult
}

func (m *MockCoordinator) Subscribe(fn func()) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listeners == nil {
		m.listeners = make(map[int]func())
	}
	m.nextID++
	m.listeners[m.nextID] = fn
	return m.nextID
}

func (m *MockCoordinator) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, id)
}

func (m *MockCoordinator) ReauthRequired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Reauth
}

func (m *MockCoordinator) ResetAuth() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reauth = false
}

func (m *MockCoordinator) SetSite(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stat.SiteTitle = title
}

func (m *MockCoordinator) Status() services.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Stat
}

func (m *MockCoordinator) RestoreSnapshot(snap *models.MetricsSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Restored = snap
	if m.Snapshot == nil {
		m.Snapshot = snap
	}
}

func (m *MockCoordinator) SnapshotForPersist() *models.MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Snapshot
}

func (m *MockCoordinator) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
}
