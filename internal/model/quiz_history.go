package model

import "time"

// QuizHistory 每次提交的冗余记录，供历史和分析使用
// swagger:model QuizHistory
type QuizHistory struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuizID          string    `gorm:"size:255;index" json:"quiz_id"`
	UserID          uint      `gorm:"index" json:"user_id"`
	Topic           string    `gorm:"size:255;index" json:"topic"`
	Difficulty      string    `gorm:"size:20" json:"difficulty"`
	Score           float64   `gorm:"not null" json:"score"`
	DurationSeconds float64   `json:"duration_seconds"`
	CorrectAnswers  int       `json:"correct_answers"`
	WrongAnswers    int       `json:"wrong_answers"`
	TotalQuestions  int       `json:"total_questions"`
	CompletedAt     time.Time `gorm:"index" json:"completed_at"`
}

func (QuizHistory) TableName() string {
	return "quiz_histories"
}
