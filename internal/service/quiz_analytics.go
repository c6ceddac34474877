package service

import (
	"abyas_backend/internal/model"
	"fmt"
	"sort"
)

const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
	TrendNeutral   = "neutral" // 记录不足 6 条

	trendWindow    = 3
	trendThreshold = 5.0
	recentResults  = 5
)

type TopicMastery struct {
	Topic    string  `json:"topic"`
	Average  float64 `json:"average_score"`
	Attempts int     `json:"attempts"`
	Level    string  `json:"mastery_level"`
}

type QuizAnalytics struct {
	TotalQuizzes        int                 `json:"total_quizzes"`
	AverageScore        float64             `json:"average_score"`
	BestScore           float64             `json:"best_score"`
	WorstScore          float64             `json:"worst_score"`
	TotalTimeSpent      float64             `json:"total_time_spent"`
	FavoriteTopic       string              `json:"favorite_topic"`
	TopicCounts         map[string]int      `json:"topic_counts"`
	DifficultyBreakdown map[string]int      `json:"difficulty_breakdown"`
	TopicAverages       map[string]float64  `json:"topic_averages"`
	StrengthAreas       []string            `json:"strength_areas"`
	ImprovementAreas    []string            `json:"improvement_areas"`
	RecentTrend         string              `json:"recent_trend"`
	RecentResults       []model.QuizHistory `json:"recent_results"`
	Mastery             []TopicMastery      `json:"topic_mastery"`
	Suggestions         []string            `json:"suggestions"`
}

func MasteryLevel(average float64) string {
	switch {
	case average >= 85:
		return "Mastered"
	case average >= 70:
		return "Proficient"
	case average >= 50:
		return "Developing"
	default:
		return "Beginner"
	}
}

// ComputeAnalytics 汇总历史记录，entries 须按完成时间正序
func ComputeAnalytics(entries []model.QuizHistory) QuizAnalytics {
	a := QuizAnalytics{
		FavoriteTopic:       "N/A",
		TopicCounts:         map[string]int{},
		DifficultyBreakdown: map[string]int{},
		TopicAverages:       map[string]float64{},
		StrengthAreas:       []string{},
		ImprovementAreas:    []string{},
		RecentTrend:         TrendNeutral,
		RecentResults:       []model.QuizHistory{},
		Mastery:             []TopicMastery{},
	}
	if len(entries) == 0 {
		a.Suggestions = []string{"Take your first quiz to start tracking progress."}
		return a
	}

	a.TotalQuizzes = len(entries)
	a.BestScore = entries[0].Score
	a.WorstScore = entries[0].Score

	var sum float64
	topicSums := map[string]float64{}
	var topicOrder []string
	scores := make([]float64, 0, len(entries))
	for _, e := range entries {
		sum += e.Score
		scores = append(scores, e.Score)
		if e.Score > a.BestScore {
			a.BestScore = e.Score
		}
		if e.Score < a.WorstScore {
			a.WorstScore = e.Score
		}
		a.TotalTimeSpent += e.DurationSeconds
		a.DifficultyBreakdown[e.Difficulty]++

		if _, seen := a.TopicCounts[e.Topic]; !seen {
			topicOrder = append(topicOrder, e.Topic)
		}
		a.TopicCounts[e.Topic]++
		topicSums[e.Topic] += e.Score
	}
	a.AverageScore = round2(sum / float64(len(entries)))

	// 出现次数相同时取最先出现的主题
	best := 0
	for _, topic := range topicOrder {
		if a.TopicCounts[topic] > best {
			best = a.TopicCounts[topic]
			a.FavoriteTopic = topic
		}
	}

	for _, topic := range topicOrder {
		avg := topicSums[topic] / float64(a.TopicCounts[topic])
		a.TopicAverages[topic] = round2(avg)
		a.Mastery = append(a.Mastery, TopicMastery{
			Topic:    topic,
			Average:  round2(avg),
			Attempts: a.TopicCounts[topic],
			Level:    MasteryLevel(avg),
		})
	}

	ranked := make([]TopicMastery, len(a.Mastery))
	copy(ranked, a.Mastery)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Average > ranked[j].Average })
	if len(ranked) > 2 {
		a.StrengthAreas = []string{ranked[0].Topic, ranked[1].Topic}
		a.ImprovementAreas = []string{ranked[len(ranked)-2].Topic, ranked[len(ranked)-1].Topic}
	}

	a.RecentTrend = scoreTrend(scores)

	from := len(entries) - recentResults
	if from < 0 {
		from = 0
	}
	a.RecentResults = append(a.RecentResults, entries[from:]...)

	a.Suggestions = suggestions(a)
	return a
}

// scoreTrend 比较最近 3 次与之前 3 次的平均分
func scoreTrend(scores []float64) string {
	if len(scores) < 2*trendWindow {
		return TrendNeutral
	}
	n := len(scores)
	recent := mean(scores[n-trendWindow:])
	previous := mean(scores[n-2*trendWindow : n-trendWindow])
	switch {
	case recent > previous+trendThreshold:
		return TrendImproving
	case recent < previous-trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func suggestions(a QuizAnalytics) []string {
	var out []string
	for _, topic := range a.ImprovementAreas {
		out = append(out, fmt.Sprintf("Practice more questions on %s.", topic))
	}
	for _, m := range a.Mastery {
		if m.Level == "Beginner" {
			out = append(out, fmt.Sprintf("Start %s at Easy difficulty and review the explanations.", m.Topic))
		}
	}
	if a.RecentTrend == TrendDeclining {
		out = append(out, "Recent scores are dropping; revisit your bookmarked questions.")
	}
	if a.AverageScore >= 85 {
		out = append(out, "Great work! Try Hard difficulty to keep improving.")
	}
	if len(out) == 0 {
		out = append(out, "Keep practicing across different topics.")
	}
	return out
}
