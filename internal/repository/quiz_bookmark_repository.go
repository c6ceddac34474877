package repository

import (
	"abyas_backend/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizBookmarkStore interface {
	// Add 幂等：同一用户重复收藏同一题目返回已有记录，created=false
	Add(ctx context.Context, bookmark *model.QuizBookmark) (created bool, err error)
	ListByUser(ctx context.Context, userID uint) ([]model.QuizBookmark, error)
}

type QuizBookmarkRepository struct {
	DB *gorm.DB
}

func NewQuizBookmarkRepository(db *gorm.DB) *QuizBookmarkRepository {
	return &QuizBookmarkRepository{DB: db}
}

func (r *QuizBookmarkRepository) Add(ctx context.Context, bookmark *model.QuizBookmark) (bool, error) {
	// 依赖 (question_id, user_id) 唯一索引，并发重复收藏只会插入一行
	result := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(bookmark)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var existing model.QuizBookmark
	err := r.DB.WithContext(ctx).
		Where("question_id = ? AND user_id = ?", bookmark.QuestionID, bookmark.UserID).
		First(&existing).Error
	if err != nil {
		return false, err
	}
	*bookmark = existing
	return false, nil
}

func (r *QuizBookmarkRepository) ListByUser(ctx context.Context, userID uint) ([]model.QuizBookmark, error) {
	var bookmarks []model.QuizBookmark
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("bookmarked_at DESC").
		Find(&bookmarks).Error
	return bookmarks, err
}
