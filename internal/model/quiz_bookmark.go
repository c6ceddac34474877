package model

import "time"

// swagger:model QuizBookmark
type QuizBookmark struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID   string    `gorm:"size:255;not null;uniqueIndex:idx_bookmark_question_user" json:"question_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_bookmark_question_user" json:"user_id"`
	Question     string    `gorm:"type:text;not null" json:"question"`
	Answer       string    `gorm:"size:10" json:"answer"`
	Explanation  string    `gorm:"type:text" json:"explanation"`
	Topic        string    `gorm:"size:255" json:"topic"`
	BookmarkedAt time.Time `json:"bookmarked_at"`
}

func (QuizBookmark) TableName() string {
	return "quiz_bookmarks"
}
