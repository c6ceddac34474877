package repository

import (
	"abyas_backend/internal/model"
	"abyas_backend/internal/util"
	"abyas_backend/pkg/monitoring"
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryQuizSessionStore 进程内会话存储，TTL 统一，因此插入顺序即过期顺序；
// 超过容量时淘汰最早的会话。
type MemoryQuizSessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]*list.Element
	order      *list.List
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewMemoryQuizSessionStore(ttl time.Duration, maxEntries int) *MemoryQuizSessionStore {
	return &MemoryQuizSessionStore{
		sessions:   make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *MemoryQuizSessionStore) Create(ctx context.Context, session *model.QuizSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := session.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	// 在锁内取时间，保证链表顺序与过期顺序一致
	now := s.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.ExpiresAt = now.Add(s.ttl)

	s.sweepLocked(now)
	if el, ok := s.sessions[stored.ID]; ok {
		if !el.Value.(*model.QuizSession).Expired(now) {
			return util.ErrQuizSessionExists
		}
		s.removeLocked(el)
	}
	for s.maxEntries > 0 && len(s.sessions) >= s.maxEntries {
		s.removeLocked(s.order.Front())
		monitoring.QuizSessionsEvicted.WithLabelValues("capacity").Inc()
	}
	s.sessions[stored.ID] = s.order.PushBack(stored)
	session.CreatedAt, session.ExpiresAt = stored.CreatedAt, stored.ExpiresAt
	return nil
}

func (s *MemoryQuizSessionStore) Get(ctx context.Context, id string) (*model.QuizSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.sessions[id]
	if !ok {
		return nil, util.ErrQuizSessionNotFound
	}
	session := el.Value.(*model.QuizSession)
	if session.Expired(s.now()) {
		return nil, util.ErrQuizSessionNotFound
	}
	return session.Clone(), nil
}

func (s *MemoryQuizSessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep 清理过期会话，返回清理数量
func (s *MemoryQuizSessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// StartSweeper 定期清理过期会话，ctx 结束时退出
func (s *MemoryQuizSessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

func (s *MemoryQuizSessionStore) sweepLocked(now time.Time) int {
	removed := 0
	for el := s.order.Front(); el != nil; el = s.order.Front() {
		if !el.Value.(*model.QuizSession).Expired(now) {
			break
		}
		s.removeLocked(el)
		removed++
	}
	if removed > 0 {
		monitoring.QuizSessionsEvicted.WithLabelValues("expired").Add(float64(removed))
	}
	return removed
}

func (s *MemoryQuizSessionStore) removeLocked(el *list.Element) {
	session := s.order.Remove(el).(*model.QuizSession)
	delete(s.sessions, session.ID)
}
