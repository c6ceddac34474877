package service

import (
	"abyas_backend/internal/model"
	"abyas_backend/internal/util"
	"math"
	"strings"
	"time"
)

// GradeResult 纯判分结果，不含持久化相关字段
type GradeResult struct {
	Correct        int
	Wrong          int
	Total          int
	Unanswered     int
	Extra          int
	Score          float64 // 未取整
	WrongQuestions []model.WrongQuestion
}

// GradeAnswers 按位置比对答案。总题数以存储的题目为准：缺失的答案记为错误（未作答），
// 多余的答案忽略。比较时去除空白并忽略大小写。
func GradeAnswers(questions []model.QuizQuestion, answers []string) GradeResult {
	res := GradeResult{
		Total:          len(questions),
		WrongQuestions: []model.WrongQuestion{},
	}
	if len(answers) > len(questions) {
		res.Extra = len(answers) - len(questions)
	}

	for i, q := range questions {
		var given string
		if i < len(answers) {
			given = strings.ToUpper(strings.TrimSpace(answers[i]))
		}
		if given == "" {
			res.Unanswered++
		}
		if given != "" && given == strings.ToUpper(strings.TrimSpace(q.Answer)) {
			res.Correct++
			continue
		}
		res.Wrong++
		res.WrongQuestions = append(res.WrongQuestions, model.WrongQuestion{
			QuestionIndex: i,
			Question:      q.Question,
			UserAnswer:    given,
			CorrectAnswer: q.Answer,
			Explanation:   q.Explanation,
		})
	}

	if res.Total > 0 {
		res.Score = float64(res.Correct) / float64(res.Total) * 100
	}
	return res
}

// 日期与时间之间允许空格分隔，如 "2024-01-01 10:00:00+05:30"
var offsetTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

// 兼容不带时区的 ISO-8601（按 UTC 处理）
var naiveTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseSubmissionTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range offsetTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, util.NewValidationError(field, "invalid ISO-8601 timestamp %q", value)
}

// SubmissionDuration 计算答题耗时（秒）。两个时间都缺省时为 0；只提供一个、格式错误
// 或结束早于开始都返回 *util.ValidationError。
func SubmissionDuration(start, end string) (float64, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return 0, nil
	}
	if start == "" || end == "" {
		return 0, util.NewValidationError("start_time", "start_time and end_time must be provided together")
	}

	startAt, err := parseSubmissionTime("start_time", start)
	if err != nil {
		return 0, err
	}
	endAt, err := parseSubmissionTime("end_time", end)
	if err != nil {
		return 0, err
	}
	if endAt.Before(startAt) {
		return 0, util.NewValidationError("end_time", "end_time is before start_time")
	}
	return endAt.Sub(startAt).Seconds(), nil
}

func PerformanceLevel(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 50:
		return "Average"
	default:
		return "Needs Improvement"
	}
}

// SpeedRank 按平均每题用时分级，无耗时数据时为空
func SpeedRank(timePerQuestion float64) string {
	switch {
	case timePerQuestion <= 0:
		return ""
	case timePerQuestion <= 30:
		return "Fast"
	case timePerQuestion <= 90:
		return "Average"
	default:
		return "Slow"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
