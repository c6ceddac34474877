package repository

import (
	"abyas_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// QuizHistoryStore 提交记录只追加，不修改
type QuizHistoryStore interface {
	Append(ctx context.Context, entry *model.QuizHistory) error
	// ListRecent 返回用户最近 limit 条记录（按完成时间正序）及总数
	ListRecent(ctx context.Context, userID uint, limit int) ([]model.QuizHistory, int64, error)
	ListAll(ctx context.Context, userID uint) ([]model.QuizHistory, error)
}

type QuizHistoryRepository struct {
	DB *gorm.DB
}

func NewQuizHistoryRepository(db *gorm.DB) *QuizHistoryRepository {
	return &QuizHistoryRepository{DB: db}
}

func (r *QuizHistoryRepository) Append(ctx context.Context, entry *model.QuizHistory) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

func (r *QuizHistoryRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]model.QuizHistory, int64, error) {
	db := r.DB.WithContext(ctx).Model(&model.QuizHistory{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.QuizHistory
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	// 倒序取出后翻转为时间正序
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, total, nil
}

func (r *QuizHistoryRepository) ListAll(ctx context.Context, userID uint) ([]model.QuizHistory, error) {
	var entries []model.QuizHistory
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
