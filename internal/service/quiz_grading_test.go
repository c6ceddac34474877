package service

import (
	"abyas_backend/internal/model"
	"abyas_backend/internal/util"
	"errors"
	"testing"
)

func gradingQuestions(answers ...string) []model.QuizQuestion {
	qs := make([]model.QuizQuestion, len(answers))
	for i, a := range answers {
		qs[i] = model.QuizQuestion{
			ID:          "q" + string(rune('1'+i)),
			Question:    "question " + string(rune('1'+i)),
			Options:     map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
			Answer:      a,
			Explanation: "because",
		}
	}
	return qs
}

func TestGradeAnswers_AllCorrectIgnoringCaseAndSpace(t *testing.T) {
	res := GradeAnswers(gradingQuestions("A", "B", "C"), []string{"a", " B ", "c"})
	if res.Correct != 3 || res.Wrong != 0 || res.Score != 100 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.WrongQuestions) != 0 {
		t.Fatalf("expected no wrong questions, got %+v", res.WrongQuestions)
	}
}

func TestGradeAnswers_AllWrong(t *testing.T) {
	res := GradeAnswers(gradingQuestions("A", "B"), []string{"D", "D"})
	if res.Score != 0 || res.Wrong != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	w := res.WrongQuestions[1]
	if w.QuestionIndex != 1 || w.UserAnswer != "D" || w.CorrectAnswer != "B" || w.Explanation != "because" {
		t.Fatalf("unexpected wrong entry: %+v", w)
	}
}

func TestGradeAnswers_MissingAnswersCountAsUnanswered(t *testing.T) {
	res := GradeAnswers(gradingQuestions("A", "B", "C", "D"), []string{"A", ""})
	if res.Total != 4 || res.Correct != 1 || res.Wrong != 3 || res.Unanswered != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Score != 25 {
		t.Fatalf("score = %v", res.Score)
	}
	if res.WrongQuestions[0].QuestionIndex != 1 || res.WrongQuestions[0].UserAnswer != "" {
		t.Fatalf("unexpected first wrong entry: %+v", res.WrongQuestions[0])
	}
}

func TestGradeAnswers_ExtraAnswersIgnored(t *testing.T) {
	res := GradeAnswers(gradingQuestions("A"), []string{"A", "B", "C"})
	if res.Total != 1 || res.Correct != 1 || res.Extra != 2 || res.Score != 100 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestGradeAnswers_NoQuestions(t *testing.T) {
	res := GradeAnswers(nil, []string{"A"})
	if res.Total != 0 || res.Score != 0 || res.Extra != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSubmissionDuration(t *testing.T) {
	cases := []struct {
		name, start, end string
		want             float64
	}{
		{"absent", "", "", 0},
		{"utc", "2024-05-01T10:00:00Z", "2024-05-01T10:02:30Z", 150},
		{"offset", "2024-05-01T15:30:00+05:30", "2024-05-01T10:01:00Z", 60},
		{"naive", "2024-05-01T10:00:00", "2024-05-01T10:00:45.5", 45.5},
		{"equal", "2024-05-01T10:00:00Z", "2024-05-01T10:00:00Z", 0},
		{"space separated", "2024-05-01 10:00:00", "2024-05-01 10:00:30.25", 30.25},
		{"space with offset", "2024-05-01 15:30:00+05:30", "2024-05-01T10:00:10Z", 10},
	}
	for _, tc := range cases {
		got, err := SubmissionDuration(tc.start, tc.end)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: duration = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSubmissionDuration_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"garbage":   {"yesterday", "2024-05-01T10:00:00Z"},
		"only one":  {"2024-05-01T10:00:00Z", ""},
		"reversed":  {"2024-05-01T10:05:00Z", "2024-05-01T10:00:00Z"},
		"date only": {"2024-05-01", "2024-05-02"},
	}
	for name, tc := range cases {
		_, err := SubmissionDuration(tc[0], tc[1])
		var ve *util.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", name, err)
		}
	}
}

func TestPerformanceAndSpeed(t *testing.T) {
	levels := map[float64]string{100: "Excellent", 90: "Excellent", 80: "Good", 50: "Average", 49.99: "Needs Improvement"}
	for score, want := range levels {
		if got := PerformanceLevel(score); got != want {
			t.Fatalf("PerformanceLevel(%v) = %q, want %q", score, got, want)
		}
	}
	speeds := map[float64]string{0: "", 12: "Fast", 30: "Fast", 60: "Average", 91: "Slow"}
	for tpq, want := range speeds {
		if got := SpeedRank(tpq); got != want {
			t.Fatalf("SpeedRank(%v) = %q, want %q", tpq, got, want)
		}
	}
}
