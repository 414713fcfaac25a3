package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aman-zulfiqar/constant-product-amm/internal/amm"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
)

// MemoryStore is a process-local StateStore, EventCache, EventPublisher and
// EventSubscriber. It backs offline tooling and tests.
type MemoryStore struct {
	mu        sync.Mutex
	state     []byte // JSON, so callers never share maps with the store
	version   uint64
	recent    []*models.PoolEvent
	maxRecent int
	subs      map[chan *models.PoolEvent]struct{}
}

// NewMemoryStore keeps at most maxRecent events; values <= 0 mean 100.
func NewMemoryStore(maxRecent int) *MemoryStore {
	if maxRecent <= 0 {
		maxRecent = 100
	}
	return &MemoryStore{
		maxRecent: maxRecent,
		subs:      make(map[chan *models.PoolEvent]struct{}),
	}
}

func (m *MemoryStore) Load(_ context.Context) (*amm.State, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return nil, 0, ErrStateNotFound
	}
	var st amm.State
	if err := json.Unmarshal(m.state, &st); err != nil {
		return nil, 0, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, m.version, nil
}

func (m *MemoryStore) Save(_ context.Context, state *amm.State) (uint64, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("marshal state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = b
	m.version++
	return m.version, nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close drops every live subscription.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		delete(m.subs, ch)
		close(ch)
	}
	return nil
}

func (m *MemoryStore) AddRecentEvent(_ context.Context, event *models.PoolEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recent = append([]*models.PoolEvent{event}, m.recent...)
	if len(m.recent) > m.maxRecent {
		m.recent = m.recent[:m.maxRecent]
	}
	return nil
}

func (m *MemoryStore) GetRecentEvents(_ context.Context, limit int64) ([]*models.PoolEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.recent)
	if limit >= 0 && int(limit) < n {
		n = int(limit)
	}
	out := make([]*models.PoolEvent, n)
	copy(out, m.recent[:n])
	return out, nil
}

// PublishEvent delivers to every subscriber; slow subscribers miss events
// instead of blocking the publisher.
func (m *MemoryStore) PublishEvent(_ context.Context, event *models.PoolEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MemoryStore) SubscribeEvents(ctx context.Context) (<-chan *models.PoolEvent, error) {
	ch := make(chan *models.PoolEvent, 16)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
	}()
	return ch, nil
}
