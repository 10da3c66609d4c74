package service

import (
	"context"
	"sync"
	"time"

	"supabase-keepalive/internal/keepalive/domain"
	teldomain "supabase-keepalive/internal/telemetry/domain"
)

// mockRepo implements repository.Repository for tests.
type mockRepo struct {
	mu sync.Mutex

	inserted  []time.Time
	insertOut []domain.Ping
	insertErr error

	deleteDays []int
	deleteOut  int64
	deleteErr  error

	listLimits []int
	listOut    []domain.Ping
	listErr    error

	sawDeadline bool
}

func (m *mockRepo) Insert(ctx context.Context, pingTime time.Time) ([]domain.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, m.sawDeadline = ctx.Deadline()
	m.inserted = append(m.inserted, pingTime)
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if m.insertOut != nil {
		return m.insertOut, nil
	}
	return []domain.Ping{{PingTime: pingTime, CreatedAt: pingTime}}, nil
}

func (m *mockRepo) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteDays = append(m.deleteDays, days)
	return m.deleteOut, m.deleteErr
}

func (m *mockRepo) ListRecent(ctx context.Context, limit int) ([]domain.Ping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listLimits = append(m.listLimits, limit)
	return m.listOut, m.listErr
}

// mockEmitter implements telemetry.EventEmitter for tests.
type mockEmitter struct {
	mu     sync.Mutex
	events []*teldomain.Event
}

func (m *mockEmitter) Emit(ctx context.Context, event *teldomain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// waitEvents polls until n events arrived or a second passed.
func (m *mockEmitter) waitEvents(n int) []*teldomain.Event {
	deadline := time.Now().Add(time.Second)
	for {
		m.mu.Lock()
		got := append([]*teldomain.Event(nil), m.events...)
		m.mu.Unlock()
		if len(got) >= n || time.Now().After(deadline) {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
}
