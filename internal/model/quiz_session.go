package model

import "time"

// QuizSession 一次生成的测验，按 ID 存储，提交时读取用于判分
type QuizSession struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	Difficulty string         `json:"difficulty"`
	Questions  []QuizQuestion `json:"questions"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

func (s *QuizSession) Clone() *QuizSession {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Questions = CloneQuestions(s.Questions)
	return &cp
}

func (s *QuizSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
