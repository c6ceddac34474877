package repository

import (
	"abyas_backend/internal/model"
	"abyas_backend/internal/util"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const quizSessionKeyPrefix = "quiz:session:"

// RedisQuizSessionStore 会话以单个 JSON 值存储，SETNX 保证 ID 唯一，过期由 Redis TTL 负责
type RedisQuizSessionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisQuizSessionStore(rdb redis.Cmdable, ttl time.Duration) *RedisQuizSessionStore {
	return &RedisQuizSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisQuizSessionStore) Create(ctx context.Context, session *model.QuizSession) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.ExpiresAt = now.Add(s.ttl)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, quizSessionKeyPrefix+session.ID, data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrQuizSessionExists
	}
	return nil
}

func (s *RedisQuizSessionStore) Get(ctx context.Context, id string) (*model.QuizSession, error) {
	data, err := s.rdb.Get(ctx, quizSessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, util.ErrQuizSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session model.QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
