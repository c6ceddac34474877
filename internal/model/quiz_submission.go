package model

// WrongQuestion 错题详情，供复盘页面和审计使用
type WrongQuestion struct {
	QuestionIndex int    `json:"question_index"`
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// swagger:model QuizSubmissionResult
type QuizSubmissionResult struct {
	QuizID           string          `json:"quiz_id"`
	Score            float64         `json:"score"`
	CorrectAnswers   int             `json:"correct_answers"`
	WrongAnswers     int             `json:"wrong_answers"`
	TotalQuestions   int             `json:"total_questions"`
	Unanswered       int             `json:"unanswered"`
	ExtraAnswers     int             `json:"extra_answers"`
	DurationSeconds  float64         `json:"duration_seconds"`
	WrongQuestions   []WrongQuestion `json:"wrong_questions"`
	Difficulty       string          `json:"difficulty"`
	Topic            string          `json:"topic"`
	SubmittedAt      string          `json:"submitted_at"`
	PerformanceLevel string          `json:"performance_level"`
	TimePerQuestion  float64         `json:"time_per_question"`
	SpeedRank        string          `json:"speed_rank,omitempty"`
}
