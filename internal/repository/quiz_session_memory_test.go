package repository

import (
	"abyas_backend/internal/model"
	"abyas_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemoryStore(ttl time.Duration, max int) (*MemoryQuizSessionStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := NewMemoryQuizSessionStore(ttl, max)
	store.now = clock.Now
	return store, clock
}

func testSession(id string) *model.QuizSession {
	return &model.QuizSession{
		ID:         id,
		Topic:      "Drill",
		Difficulty: "Easy",
		Questions: []model.QuizQuestion{{
			ID:       "drill_1",
			Question: "q?",
			Options:  map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
			Answer:   "A",
		}},
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store, _ := newTestMemoryStore(time.Hour, 10)
	ctx := context.Background()

	if err := store.Create(ctx, testSession("s1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Topic != "Drill" || len(got.Questions) != 1 || got.Questions[0].Answer != "A" {
		t.Fatalf("unexpected session: %+v", got)
	}

	// 返回的是副本，修改不影响存储
	got.Questions[0].Options["A"] = "tampered"
	again, _ := store.Get(ctx, "s1")
	if again.Questions[0].Options["A"] != "a" {
		t.Fatalf("store shares option maps with callers")
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, util.ErrQuizSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_DuplicateID(t *testing.T) {
	store, _ := newTestMemoryStore(time.Hour, 10)
	ctx := context.Background()

	if err := store.Create(ctx, testSession("dup")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, testSession("dup")); !errors.Is(err, util.ErrQuizSessionExists) {
		t.Fatalf("expected ErrQuizSessionExists, got %v", err)
	}
}

func TestMemoryStore_ExpiresByTTL(t *testing.T) {
	store, clock := newTestMemoryStore(time.Hour, 10)
	ctx := context.Background()

	store.Create(ctx, testSession("old"))
	clock.Advance(30 * time.Minute)
	store.Create(ctx, testSession("new"))
	clock.Advance(31 * time.Minute)

	if _, err := store.Get(ctx, "old"); !errors.Is(err, util.ErrQuizSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if _, err := store.Get(ctx, "new"); err != nil {
		t.Fatalf("new session should still be live: %v", err)
	}
	if n := store.Sweep(); n != 1 {
		t.Fatalf("sweep removed %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Fatalf("len = %d", store.Len())
	}

	// 过期后同一 ID 可重新创建
	if err := store.Create(ctx, testSession("old")); err != nil {
		t.Fatalf("recreate expired id: %v", err)
	}
}

func TestMemoryStore_EvictsOldestBeyondCapacity(t *testing.T) {
	store, clock := newTestMemoryStore(time.Hour, 3)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		if err := store.Create(ctx, testSession(fmt.Sprintf("s%d", i))); err != nil {
			t.Fatalf("create s%d: %v", i, err)
		}
		clock.Advance(time.Second)
	}

	if store.Len() != 3 {
		t.Fatalf("len = %d, want 3", store.Len())
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, util.ErrQuizSessionNotFound) {
		t.Fatalf("oldest session should be evicted")
	}
	for _, id := range []string{"s2", "s3", "s4"} {
		if _, err := store.Get(ctx, id); err != nil {
			t.Fatalf("%s should be retained: %v", id, err)
		}
	}
}

func TestMemoryStore_ConcurrentCreatesNeverCollide(t *testing.T) {
	store := NewMemoryQuizSessionStore(time.Hour, 0)
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Create(ctx, testSession("contested"))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, util.ErrQuizSessionExists) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("exactly one create should win, got %d", wins)
	}
}

func TestMemoryStore_SweeperStopsWithContext(t *testing.T) {
	store, clock := newTestMemoryStore(time.Minute, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store.Create(ctx, testSession("s1"))
	clock.Advance(2 * time.Minute)
	store.StartSweeper(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper did not remove expired session")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
