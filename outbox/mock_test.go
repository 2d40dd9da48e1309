package outbox

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// memStore is an in-memory Store and session factory for tests.
type memStore struct {
	mu       sync.Mutex
	messages []Message
	updates  []Message

	saveErr       error
	hasPendingErr error
	fetchErr      error
	updateErr     error
}

func newMemStore(msgs ...Message) *memStore {
	return &memStore{messages: msgs}
}

func (m *memStore) Save(_ context.Context, tx any, msgs ...Message) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	mtx, ok := tx.(*memTx)
	if !ok {
		return errors.New("memStore: unsupported transaction")
	}
	mtx.pending = append(mtx.pending, msgs...)
	return nil
}

func (m *memStore) HasPending(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasPendingErr != nil {
		return false, m.hasPendingErr
	}
	for _, msg := range m.messages {
		if msg.Pending() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FetchPending(_ context.Context, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var result []Message
	for _, msg := range m.messages {
		if msg.Pending() {
			result = append(result, msg)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memStore) Update(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, msg)
	for i := range m.messages {
		if m.messages[i].ID == msg.ID {
			m.messages[i].ProcessedAt = msg.ProcessedAt
			m.messages[i].Error = msg.Error
		}
	}
	return nil
}

func (m *memStore) all() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Message, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *memStore) get(id string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

func (m *memStore) session() *memSession {
	return &memSession{store: m}
}

type memSession struct {
	store *memStore
	tx    *memTx

	beginErr error
}

func (s *memSession) InTx() bool {
	return s.tx != nil
}

func (s *memSession) BeginTx(_ context.Context) (StoreTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.tx = &memTx{session: s}
	return s.tx, nil
}

type memTx struct {
	session *memSession
	pending []Message

	commitErr  error
	committed  bool
	rolledBack int
}

func (t *memTx) Commit(_ context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	store := t.session.store
	store.mu.Lock()
	store.messages = append(store.messages, t.pending...)
	store.mu.Unlock()
	t.committed = true
	t.session.tx = nil
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	t.pending = nil
	t.rolledBack++
	t.session.tx = nil
	return nil
}

// recordingPublisher records published messages and fails the ones
// listed in failures.
type recordingPublisher struct {
	mu        sync.Mutex
	published []string
	failures  map[string]error
	closed    int
}

func (p *recordingPublisher) Publish(_ context.Context, messageType, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failures[payload]; ok {
		return err
	}
	p.published = append(p.published, messageType+":"+payload)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *recordingPublisher) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(p.published))
	copy(cp, p.published)
	return cp
}
