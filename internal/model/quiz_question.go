package model

// 选项标签固定为 A-D
var OptionLabels = []string{"A", "B", "C", "D"}

// QuizQuestion 一道经过校验的单选题，解析后不可变
// swagger:model QuizQuestion
type QuizQuestion struct {
	ID          string            `json:"id"`
	Question    string            `json:"question"`
	Options     map[string]string `json:"options"`
	Answer      string            `json:"answer"`
	Explanation string            `json:"explanation"`
	Topic       string            `json:"topic"`
	Difficulty  string            `json:"difficulty"`
	CreatedAt   string            `json:"created_at"`
	Points      int               `json:"points"`
}

// Clone returns a deep copy so callers never share the options map.
func (q QuizQuestion) Clone() QuizQuestion {
	opts := make(map[string]string, len(q.Options))
	for k, v := range q.Options {
		opts[k] = v
	}
	q.Options = opts
	return q
}

func CloneQuestions(qs []QuizQuestion) []QuizQuestion {
	out := make([]QuizQuestion, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}
