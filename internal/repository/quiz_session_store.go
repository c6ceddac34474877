package repository

import (
	"abyas_backend/internal/model"
	"context"
)

// QuizSessionStore 测验会话存储。Create 对同一 ID 只成功一次（ID 冲突返回 util.ErrQuizSessionExists），
// Get 对未知或过期 ID 返回 util.ErrQuizSessionNotFound。会话写入后不可修改。
type QuizSessionStore interface {
	Create(ctx context.Context, session *model.QuizSession) error
	Get(ctx context.Context, id string) (*model.QuizSession, error)
}
