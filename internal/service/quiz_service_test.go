package service

import (
	"abyas_backend/internal/config"
	"abyas_backend/internal/model"
	"abyas_backend/internal/repository"
	"abyas_backend/internal/util"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeCompletion struct {
	enabled bool
	raw     string
	err     error

	mu      sync.Mutex
	prompts []string
}

func (f *fakeCompletion) Enabled() bool { return f.enabled }

func (f *fakeCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.raw, f.err
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []model.QuizHistory
	failErr error
}

func (h *fakeHistory) Append(ctx context.Context, entry *model.QuizHistory) error {
	if h.failErr != nil {
		return h.failErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, *entry)
	return nil
}

func (h *fakeHistory) ListRecent(ctx context.Context, userID uint, limit int) ([]model.QuizHistory, int64, error) {
	all, _ := h.ListAll(ctx, userID)
	total := int64(len(all))
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, total, nil
}

func (h *fakeHistory) ListAll(ctx context.Context, userID uint) ([]model.QuizHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []model.QuizHistory
	for _, e := range h.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeBookmarks struct {
	items map[string]model.QuizBookmark
}

func (b *fakeBookmarks) Add(ctx context.Context, bm *model.QuizBookmark) (bool, error) {
	key := bm.QuestionID + "|" + strconv.FormatUint(uint64(bm.UserID), 10)
	if _, ok := b.items[key]; ok {
		return false, nil
	}
	b.items[key] = *bm
	return true, nil
}

func (b *fakeBookmarks) ListByUser(ctx context.Context, userID uint) ([]model.QuizBookmark, error) {
	var out []model.QuizBookmark
	for _, bm := range b.items {
		if bm.UserID == userID {
			out = append(out, bm)
		}
	}
	return out, nil
}

func testQuizConfig() config.QuizConfig {
	return config.QuizConfig{
		Topics:             []string{"NCC General", "Drill", "Leadership"},
		SessionStore:       "memory",
		SessionTTL:         time.Hour,
		MaxSessions:        100,
		MaxCustomQuestions: 15,
		SecondsPerQuestion: 120,
		SourceMaxChars:     8000,
		AllowFallback:      true,
		DifficultyLimits:   map[string]int{"easy": 10, "medium": 5, "hard": 5},
	}
}

type serviceFixture struct {
	svc      *QuizService
	ai       *fakeCompletion
	history  *fakeHistory
	sessions *repository.MemoryQuizSessionStore
}

func newServiceFixture(ai *fakeCompletion) *serviceFixture {
	cfg := testQuizConfig()
	f := &serviceFixture{
		ai:       ai,
		history:  &fakeHistory{},
		sessions: repository.NewMemoryQuizSessionStore(cfg.SessionTTL, cfg.MaxSessions),
	}
	f.svc = NewQuizService(cfg, ai, newTestParser(), f.sessions, f.history, &fakeBookmarks{items: map[string]model.QuizBookmark{}})
	return f
}

func TestQuizService_GenerateAndSubmitRoundTrip(t *testing.T) {
	f := newServiceFixture(&fakeCompletion{enabled: true, raw: wellFormedCompletion})
	ctx := context.Background()

	quiz, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "easy", NumQuestions: 2, TimedMode: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	meta := quiz.Metadata
	if !strings.HasPrefix(meta.QuizID, "ncc_general_easy_") {
		t.Fatalf("unexpected quiz id %q", meta.QuizID)
	}
	if meta.Difficulty != "Easy" || meta.TotalQuestions != 2 || meta.MaxPoints != 2 || !meta.AIGenerated {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.TimeLimitSeconds == nil || *meta.TimeLimitSeconds != 240 {
		t.Fatalf("time limit = %v", meta.TimeLimitSeconds)
	}

	res, err := f.svc.Submit(ctx, 7, SubmitQuizRequest{
		QuizID:    meta.QuizID,
		Answers:   []string{"A", "B"},
		StartTime: "2024-05-01T10:00:00Z",
		EndTime:   "2024-05-01T10:01:00Z",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 100 || res.CorrectAnswers != 2 || res.TotalQuestions != 2 || len(res.WrongQuestions) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.DurationSeconds != 60 || res.TimePerQuestion != 30 || res.SpeedRank != "Fast" || res.PerformanceLevel != "Excellent" {
		t.Fatalf("unexpected diagnostics: %+v", res)
	}
	if res.Topic != "NCC General" || res.Difficulty != "Easy" {
		t.Fatalf("topic/difficulty = %q/%q", res.Topic, res.Difficulty)
	}

	entries, _ := f.history.ListAll(ctx, 7)
	if len(entries) != 1 || entries[0].QuizID != meta.QuizID || entries[0].Score != 100 {
		t.Fatalf("history = %+v", entries)
	}
}

func TestQuizService_SubmitAllWrongReportsEveryQuestion(t *testing.T) {
	f := newServiceFixture(&fakeCompletion{enabled: true, raw: wellFormedCompletion})
	ctx := context.Background()

	quiz, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "Medium", NumQuestions: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	res, err := f.svc.Submit(ctx, 0, SubmitQuizRequest{QuizID: quiz.Metadata.QuizID, Answers: []string{"D", "D"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 0 || len(res.WrongQuestions) != 2 || res.WrongQuestions[1].CorrectAnswer != "B" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.SpeedRank != "" || res.DurationSeconds != 0 {
		t.Fatalf("expected no timing data: %+v", res)
	}
}

func TestQuizService_SubmitUnknownSession(t *testing.T) {
	f := newServiceFixture(&fakeCompletion{enabled: true, raw: wellFormedCompletion})
	_, err := f.svc.Submit(context.Background(), 0, SubmitQuizRequest{QuizID: "nope", Answers: []string{"A"}})
	if !errors.Is(err, util.ErrQuizSessionNotFound) {
		t.Fatalf("expected ErrQuizSessionNotFound, got %v", err)
	}
	if len(f.history.entries) != 0 {
		t.Fatalf("no history expected for unknown session")
	}
}

func TestQuizService_SubmitValidation(t *testing.T) {
	f := newServiceFixture(&fakeCompletion{enabled: true, raw: wellFormedCompletion})
	ctx := context.Background()
	quiz, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "Easy", NumQuestions: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	reqs := []SubmitQuizRequest{
		{QuizID: "", Answers: []string{"A"}},
		{QuizID: quiz.Metadata.QuizID, StartTime: "not-a-time", EndTime: "2024-05-01T10:00:00Z"},
		{QuizID: quiz.Metadata.QuizID, StartTime: "2024-05-01T10:00:00Z"},
		{QuizID: quiz.Metadata.QuizID, StartTime: "2024-05-01T11:00:00Z", EndTime: "2024-05-01T10:00:00Z"},
	}
	for i, req := range reqs {
		_, err := f.svc.Submit(ctx, 0, req)
		var ve *util.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d: expected ValidationError, got %v", i, err)
		}
	}
	if len(f.history.entries) != 0 {
		t.Fatalf("invalid submissions must not be recorded")
	}
}

func TestQuizService_SubmitIsRepeatable(t *testing.T) {
	f := newServiceFixture(&fakeCompletion{enabled: true, raw: wellFormedCompletion})
	ctx := context.Background()
	quiz, _ := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "Easy", NumQuestions: 2})

	for i := 0; i < 2; i++ {
		res, err := f.svc.Submit(ctx, 1, SubmitQuizRequest{QuizID: quiz.Metadata.QuizID, Answers: []string{"A", "C"}})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if res.Score != 50 {
			t.Fatalf("submit %d: score = %v", i, res.Score)
		}
	}
	if len(f.history.entries) != 2 {
		t.Fatalf("each submission appends history, got %d", len(f.history.entries))
	}
}

func TestQuizService_HistoryFailureDoesNotFailSubmit(t *testing.T) {
	f := newServiceFixture(&fakeCompletion{enabled: true, raw: wellFormedCompletion})
	f.history.failErr = errors.New("disk full")
	ctx := context.Background()

	quiz, _ := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "Easy", NumQuestions: 2})
	res, err := f.svc.Submit(ctx, 0, SubmitQuizRequest{QuizID: quiz.Metadata.QuizID, Answers: []string{"A", "B"}})
	if err != nil {
		t.Fatalf("submit should succeed despite history failure: %v", err)
	}
	if res.Score != 100 {
		t.Fatalf("score = %v", res.Score)
	}
}

func TestQuizService_GenerateErrors(t *testing.T) {
	ctx := context.Background()

	upstream := &util.UpstreamError{StatusCode: 503, Err: errors.New("unavailable")}
	f := newServiceFixture(&fakeCompletion{enabled: true, err: upstream})
	_, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "Drill", Difficulty: "Hard", NumQuestions: 3})
	var ue *util.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}

	f = newServiceFixture(&fakeCompletion{enabled: true, raw: "Sorry, I cannot help with that."})
	_, err = f.svc.Generate(ctx, GenerateQuizRequest{Topic: "Drill", Difficulty: "Hard", NumQuestions: 3})
	if !errors.Is(err, util.ErrQuizGenerationFailed) {
		t.Fatalf("expected ErrQuizGenerationFailed, got %v", err)
	}
	if f.sessions.Len() != 0 {
		t.Fatalf("failed generation must not store a session")
	}

	invalid := []GenerateQuizRequest{
		{Topic: "Drill", Difficulty: "Impossible", NumQuestions: 3},
		{Topic: "Drill", Difficulty: "Easy", NumQuestions: 0},
		{Topic: "Drill", Difficulty: "Easy", NumQuestions: 16},
		{Topic: "Astrophysics", Difficulty: "Easy", NumQuestions: 3},
	}
	for i, req := range invalid {
		_, err := f.svc.Generate(ctx, req)
		var ve *util.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d: expected ValidationError, got %v", i, err)
		}
	}
}

func TestQuizService_GenerateCapsAndCustomContent(t *testing.T) {
	ai := &fakeCompletion{enabled: true, raw: wellFormedCompletion}
	f := newServiceFixture(ai)
	ctx := context.Background()

	if _, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "Drill", Difficulty: "Hard", NumQuestions: 12}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(ai.prompts[0], "Generate 5 high-quality") {
		t.Fatalf("hard predefined topic should be capped at 5: %q", ai.prompts[0])
	}

	quiz, err := f.svc.Generate(ctx, GenerateQuizRequest{
		Difficulty:     "Medium",
		NumQuestions:   12,
		SourceMaterial: strings.Repeat("x", 9000),
		FileType:       "pdf",
	})
	if err != nil {
		t.Fatalf("generate from content: %v", err)
	}
	if quiz.Metadata.Topic != "Custom Content (pdf)" || !quiz.Metadata.CustomTopic || quiz.Metadata.SourceMaterial != "uploaded_file" {
		t.Fatalf("unexpected metadata: %+v", quiz.Metadata)
	}
	prompt := ai.prompts[1]
	if !strings.Contains(prompt, "Create 12 high-quality") {
		t.Fatalf("custom content should allow 12 questions: %q", prompt[:80])
	}
	if strings.Contains(prompt, strings.Repeat("x", 8001)) {
		t.Fatalf("source material was not truncated")
	}
}

func TestQuizService_FallbackOnlyWhenNotConfigured(t *testing.T) {
	f := newServiceFixture(&fakeCompletion{enabled: false})
	ctx := context.Background()

	quiz, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "Leadership", Difficulty: "Easy", NumQuestions: 3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if quiz.Metadata.AIGenerated || len(quiz.Questions) != 3 {
		t.Fatalf("expected fallback questions: %+v", quiz.Metadata)
	}
	if quiz.Questions[0].Answer != "B" {
		t.Fatalf("unexpected fallback question: %+v", quiz.Questions[0])
	}

	cfg := testQuizConfig()
	cfg.AllowFallback = false
	f.svc.UpdateConfig(cfg)
	_, err = f.svc.Generate(ctx, GenerateQuizRequest{Topic: "Leadership", Difficulty: "Easy", NumQuestions: 3})
	if !errors.Is(err, util.ErrAINotConfigured) {
		t.Fatalf("expected ErrAINotConfigured, got %v", err)
	}
}

func TestQuizService_SessionIDCollisionGetsSuffix(t *testing.T) {
	f := newServiceFixture(&fakeCompletion{enabled: true, raw: wellFormedCompletion})
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	a, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "Easy", NumQuestions: 2})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	b, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "Easy", NumQuestions: 2})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if a.Metadata.QuizID == b.Metadata.QuizID {
		t.Fatalf("colliding ids: %q", a.Metadata.QuizID)
	}
	if !strings.HasPrefix(b.Metadata.QuizID, a.Metadata.QuizID+"_") {
		t.Fatalf("expected suffixed id, got %q", b.Metadata.QuizID)
	}
}

func TestQuizService_HistoryAnalyticsBookmarks(t *testing.T) {
	f := newServiceFixture(&fakeCompletion{enabled: true, raw: wellFormedCompletion})
	ctx := context.Background()
	quiz, _ := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "Easy", NumQuestions: 2})

	for _, answers := range [][]string{{"A", "B"}, {"A", "C"}, {"D", "D"}} {
		if _, err := f.svc.Submit(ctx, 3, SubmitQuizRequest{QuizID: quiz.Metadata.QuizID, Answers: answers}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	page, err := f.svc.History(ctx, 3, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.TotalCount != 3 || len(page.History) != 2 || page.PageSize != 2 || page.History[1].Score != 0 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page, _ := f.svc.History(ctx, 99, 0); page.PageSize != defaultHistoryLimit || len(page.History) != 0 {
		t.Fatalf("unexpected empty page: %+v", page)
	}

	analytics, err := f.svc.Analytics(ctx, 3)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.TotalQuizzes != 3 || analytics.AverageScore != 50 || analytics.FavoriteTopic != "NCC General" {
		t.Fatalf("unexpected analytics: %+v", analytics)
	}

	q := quiz.Questions[0]
	req := BookmarkRequest{QuestionID: q.ID, Question: q.Question, Answer: q.Answer, Topic: q.Topic}
	first, err := f.svc.Bookmark(ctx, 3, req)
	if err != nil {
		t.Fatalf("bookmark: %v", err)
	}
	second, _ := f.svc.Bookmark(ctx, 3, req)
	if !first.Created || second.Created || first.BookmarkID != "bookmark_ncc_general_1_3" {
		t.Fatalf("unexpected bookmark results: %+v %+v", first, second)
	}
	list, _ := f.svc.Bookmarks(ctx, 3)
	if len(list) != 1 {
		t.Fatalf("bookmarks = %+v", list)
	}
}

func TestQuizService_SingleArithmeticQuestion(t *testing.T) {
	const raw = "Q: 2+2?\nA) 3\nB) 4\nC) 5\nD) 6\nANSWER: B\nEXPLANATION: Basic arithmetic.\n---\n"
	f := newServiceFixture(&fakeCompletion{enabled: true, raw: raw})
	ctx := context.Background()

	quiz, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "Easy", NumQuestions: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	q := quiz.Questions[0]
	if len(quiz.Questions) != 1 || q.Question != "2+2?" || q.Answer != "B" ||
		q.Options["A"] != "3" || q.Options["B"] != "4" || q.Options["C"] != "5" || q.Options["D"] != "6" {
		t.Fatalf("unexpected record: %+v", quiz.Questions)
	}

	res, err := f.svc.Submit(ctx, 0, SubmitQuizRequest{QuizID: quiz.Metadata.QuizID, Answers: []string{"B"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 100 || res.CorrectAnswers != 1 || res.WrongAnswers != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	f.ai.raw = strings.Replace(raw, "ANSWER: B", "ANSWER: E", 1)
	if _, err := f.svc.Generate(ctx, GenerateQuizRequest{Topic: "NCC General", Difficulty: "Easy", NumQuestions: 1}); !errors.Is(err, util.ErrQuizGenerationFailed) {
		t.Fatalf("invalid answer label should fail generation, got %v", err)
	}
}
