package service

import (
	"abyas_backend/internal/config"
	"abyas_backend/internal/model"
	"abyas_backend/internal/repository"
	"abyas_backend/internal/util"
	"abyas_backend/pkg/logger"
	"abyas_backend/pkg/monitoring"
	"abyas_backend/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	maxSessionIDAttempts = 4
	defaultHistoryLimit  = 10
	maxHistoryLimit      = 100
)

var difficulties = map[string]string{
	"easy":   "Easy",
	"medium": "Medium",
	"hard":   "Hard",
}

type GenerateQuizRequest struct {
	Topic          string `json:"topic"`
	Difficulty     string `json:"difficulty"`
	NumQuestions   int    `json:"numQuestions"`
	TimedMode      bool   `json:"timedMode"`
	TimeLimit      int    `json:"timeLimit"`
	CustomTopic    string `json:"custom_topic"`
	SourceMaterial string `json:"source_material"`
	FileType       string `json:"file_type"`
}

type QuizMetadata struct {
	QuizID           string `json:"quiz_id"`
	Topic            string `json:"topic"`
	Difficulty       string `json:"difficulty"`
	GeneratedAt      string `json:"generated_at"`
	TotalQuestions   int    `json:"total_questions"`
	TimedMode        bool   `json:"timed_mode"`
	TimeLimitSeconds *int   `json:"time_limit_seconds"`
	MaxPoints        int    `json:"max_points"`
	CustomTopic      bool   `json:"custom_topic"`
	SourceMaterial   string `json:"source_material,omitempty"`
	AIGenerated      bool   `json:"ai_generated"`
	RejectedBlocks   int    `json:"rejected_blocks"`
}

type GeneratedQuiz struct {
	Questions []model.QuizQuestion `json:"questions"`
	Metadata  QuizMetadata         `json:"metadata"`
}

type SubmitQuizRequest struct {
	QuizID     string   `json:"quiz_id"`
	Answers    []string `json:"answers"`
	Topic      string   `json:"topic"`
	Difficulty string   `json:"difficulty"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
}

type BookmarkRequest struct {
	QuestionID  string `json:"question_id" binding:"required"`
	Question    string `json:"question" binding:"required"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
	Topic       string `json:"topic"`
}

type BookmarkResult struct {
	BookmarkID string `json:"bookmark_id"`
	Created    bool   `json:"created"`
}

type QuizHistoryPage struct {
	History    []model.QuizHistory `json:"history"`
	TotalCount int64               `json:"total_count"`
	PageSize   int                 `json:"page_size"`
}

type TopicsResponse struct {
	Topics           []string       `json:"topics"`
	Difficulties     []string       `json:"difficulties"`
	DifficultyLimits map[string]int `json:"difficulty_limits"`
	CustomMax        int            `json:"custom_max_questions"`
}

type QuizService struct {
	mu        sync.RWMutex
	cfg       config.QuizConfig
	ai        CompletionClient
	parser    *QuizParser
	sessions  repository.QuizSessionStore
	history   repository.QuizHistoryStore
	bookmarks repository.QuizBookmarkStore
	now       func() time.Time
}

func NewQuizService(
	cfg config.QuizConfig,
	ai CompletionClient,
	parser *QuizParser,
	sessions repository.QuizSessionStore,
	history repository.QuizHistoryStore,
	bookmarks repository.QuizBookmarkStore,
) *QuizService {
	return &QuizService{
		cfg:       cfg,
		ai:        ai,
		parser:    parser,
		sessions:  sessions,
		history:   history,
		bookmarks: bookmarks,
		now:       time.Now,
	}
}

// UpdateConfig 热更新主题列表与题量限制，会话存储方式不随之变化
func (s *QuizService) UpdateConfig(cfg config.QuizConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func (s *QuizService) config() config.QuizConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *QuizService) Topics() TopicsResponse {
	cfg := s.config()
	limits := make(map[string]int, len(difficulties))
	for _, d := range []string{"Easy", "Medium", "Hard"} {
		limits[d] = cfg.DifficultyLimit(d)
	}
	return TopicsResponse{
		Topics:           append([]string(nil), cfg.Topics...),
		Difficulties:     []string{"Easy", "Medium", "Hard"},
		DifficultyLimits: limits,
		CustomMax:        cfg.MaxCustomQuestions,
	}
}

func NormalizeDifficulty(d string) (string, bool) {
	canonical, ok := difficulties[strings.ToLower(strings.TrimSpace(d))]
	return canonical, ok
}

// Generate 生成并保存一份测验。上游失败返回 *util.UpstreamError，
// 解析不出任何题目返回 util.ErrQuizGenerationFailed，两者不做降级。
func (s *QuizService) Generate(ctx context.Context, req GenerateQuizRequest) (*GeneratedQuiz, error) {
	cfg := s.config()

	difficulty, ok := NormalizeDifficulty(req.Difficulty)
	if !ok {
		return nil, util.NewValidationError("difficulty", "invalid difficulty %q, use Easy, Medium or Hard", req.Difficulty)
	}
	if req.NumQuestions < 1 || req.NumQuestions > cfg.MaxCustomQuestions {
		return nil, util.NewValidationError("numQuestions", "must be between 1 and %d", cfg.MaxCustomQuestions)
	}
	if req.TimeLimit < 0 {
		return nil, util.NewValidationError("timeLimit", "must not be negative")
	}

	customTopic := strings.TrimSpace(req.CustomTopic)
	source := strings.TrimSpace(req.SourceMaterial)
	isCustom := customTopic != "" || source != ""

	topic := strings.TrimSpace(req.Topic)
	count := req.NumQuestions
	switch {
	case source != "":
		topic = customTopic
		if topic == "" {
			topic = fmt.Sprintf("Custom Content (%s)", req.FileType)
		}
	case customTopic != "":
		topic = customTopic
	default:
		if !containsTopic(cfg.Topics, topic) {
			return nil, util.NewValidationError("topic", "invalid topic %q", req.Topic)
		}
		if limit := cfg.DifficultyLimit(difficulty); count > limit {
			count = limit
		}
	}

	ctx, span := tracing.Tracer.Start(ctx, "quiz.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("quiz.topic", topic),
		attribute.String("quiz.difficulty", difficulty),
		attribute.Int("quiz.requested", count),
	)

	var (
		questions   []model.QuizQuestion
		rejected    int
		aiGenerated bool
	)
	if s.ai.Enabled() {
		prompt := BuildTopicPrompt(topic, difficulty, count)
		if source != "" {
			prompt = BuildContentPrompt(truncateRunes(source, cfg.SourceMaxChars), topic, difficulty, count)
		}

		raw, err := s.ai.Complete(ctx, prompt)
		if err != nil {
			monitoring.QuizGenerations.WithLabelValues("upstream_error").Inc()
			tracing.RecordError(span, err)
			return nil, err
		}

		result := s.parser.Parse(raw, topic, difficulty)
		rejected = len(result.Rejected)
		if len(result.Questions) == 0 {
			monitoring.QuizGenerations.WithLabelValues("parse_failed").Inc()
			logger.Log.Warn("completion yielded no valid questions",
				zap.String("topic", topic),
				zap.Int("blocks", result.Blocks),
				zap.Int("rejected", rejected),
			)
			return nil, fmt.Errorf("%w: no valid questions in %d blocks", util.ErrQuizGenerationFailed, result.Blocks)
		}
		questions = result.Questions
		if len(questions) > count {
			questions = questions[:count]
		}
		aiGenerated = true
	} else {
		if !cfg.AllowFallback {
			monitoring.QuizGenerations.WithLabelValues("not_configured").Inc()
			return nil, util.ErrAINotConfigured
		}
		questions = FallbackQuestions(topic, difficulty, count, s.now())
	}

	session := &model.QuizSession{
		Topic:      topic,
		Difficulty: difficulty,
		Questions:  questions,
		CreatedAt:  s.now(),
	}
	if err := s.createSession(ctx, session); err != nil {
		monitoring.QuizGenerations.WithLabelValues("store_error").Inc()
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("quiz.id", session.ID), attribute.Int("quiz.questions", len(questions)))

	if aiGenerated {
		monitoring.QuizGenerations.WithLabelValues("ai").Inc()
	} else {
		monitoring.QuizGenerations.WithLabelValues("fallback").Inc()
	}

	meta := QuizMetadata{
		QuizID:         session.ID,
		Topic:          topic,
		Difficulty:     difficulty,
		GeneratedAt:    session.CreatedAt.Format(time.RFC3339),
		TotalQuestions: len(questions),
		TimedMode:      req.TimedMode,
		CustomTopic:    isCustom,
		AIGenerated:    aiGenerated,
		RejectedBlocks: rejected,
	}
	for _, q := range questions {
		meta.MaxPoints += q.Points
	}
	if req.TimedMode {
		limit := req.TimeLimit
		if limit == 0 {
			limit = len(questions) * cfg.SecondsPerQuestion
		}
		meta.TimeLimitSeconds = &limit
	}
	if source != "" {
		meta.SourceMaterial = "uploaded_file"
	}

	logger.Log.Info("quiz generated",
		zap.String("quiz_id", session.ID),
		zap.Int("questions", len(questions)),
		zap.Bool("ai_generated", aiGenerated),
	)
	return &GeneratedQuiz{Questions: model.CloneQuestions(questions), Metadata: meta}, nil
}

// createSession ID 形如 <topic>_<difficulty>_<unix_nanos>，冲突时追加随机后缀重试
func (s *QuizService) createSession(ctx context.Context, session *model.QuizSession) error {
	base := topicSlug(session.Topic) + "_" + strings.ToLower(session.Difficulty) + "_" +
		strconv.FormatInt(session.CreatedAt.UnixNano(), 10)

	id := base
	for attempt := 0; attempt < maxSessionIDAttempts; attempt++ {
		session.ID = id
		err := s.sessions.Create(ctx, session)
		if err == nil {
			return nil
		}
		if !errors.Is(err, util.ErrQuizSessionExists) {
			return err
		}
		id = base + "_" + uuid.NewString()[:8]
	}
	return fmt.Errorf("allocate quiz id after %d attempts: %w", maxSessionIDAttempts, util.ErrQuizSessionExists)
}

// Submit 按存储的答案判分并追加历史记录。历史写入失败只记录日志，不影响返回结果。
func (s *QuizService) Submit(ctx context.Context, userID uint, req SubmitQuizRequest) (*model.QuizSubmissionResult, error) {
	quizID := strings.TrimSpace(req.QuizID)
	if quizID == "" {
		return nil, util.NewValidationError("quiz_id", "is required")
	}
	duration, err := SubmissionDuration(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	grade := GradeAnswers(session.Questions, req.Answers)
	now := s.now()

	topic, difficulty := session.Topic, session.Difficulty
	if topic == "" {
		topic = req.Topic
	}
	if difficulty == "" {
		difficulty = req.Difficulty
	}

	result := &model.QuizSubmissionResult{
		QuizID:           session.ID,
		Score:            round2(grade.Score),
		CorrectAnswers:   grade.Correct,
		WrongAnswers:     grade.Wrong,
		TotalQuestions:   grade.Total,
		Unanswered:       grade.Unanswered,
		ExtraAnswers:     grade.Extra,
		DurationSeconds:  duration,
		WrongQuestions:   grade.WrongQuestions,
		Difficulty:       difficulty,
		Topic:            topic,
		SubmittedAt:      now.Format(time.RFC3339),
		PerformanceLevel: PerformanceLevel(grade.Score),
	}
	if grade.Total > 0 {
		result.TimePerQuestion = round2(duration / float64(grade.Total))
	}
	result.SpeedRank = SpeedRank(result.TimePerQuestion)

	monitoring.QuizSubmissions.Inc()
	monitoring.QuizScore.Observe(grade.Score)

	entry := &model.QuizHistory{
		QuizID:          session.ID,
		UserID:          userID,
		Topic:           topic,
		Difficulty:      difficulty,
		Score:           grade.Score,
		DurationSeconds: duration,
		CorrectAnswers:  grade.Correct,
		WrongAnswers:    grade.Wrong,
		TotalQuestions:  grade.Total,
		CompletedAt:     now,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		monitoring.QuizHistoryFailures.Inc()
		logger.Log.Error("failed to append quiz history",
			zap.String("quiz_id", session.ID),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
	}
	return result, nil
}

func (s *QuizService) History(ctx context.Context, userID uint, limit int) (*QuizHistoryPage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, total, err := s.history.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.QuizHistory{}
	}
	return &QuizHistoryPage{History: entries, TotalCount: total, PageSize: limit}, nil
}

func (s *QuizService) Analytics(ctx context.Context, userID uint) (*QuizAnalytics, error) {
	entries, err := s.history.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	analytics := ComputeAnalytics(entries)
	return &analytics, nil
}

func (s *QuizService) Bookmark(ctx context.Context, userID uint, req BookmarkRequest) (*BookmarkResult, error) {
	if strings.TrimSpace(req.QuestionID) == "" {
		return nil, util.NewValidationError("question_id", "is required")
	}
	bookmark := &model.QuizBookmark{
		QuestionID:   req.QuestionID,
		UserID:       userID,
		Question:     req.Question,
		Answer:       req.Answer,
		Explanation:  req.Explanation,
		Topic:        req.Topic,
		BookmarkedAt: s.now(),
	}
	created, err := s.bookmarks.Add(ctx, bookmark)
	if err != nil {
		return nil, err
	}
	return &BookmarkResult{
		BookmarkID: fmt.Sprintf("bookmark_%s_%d", req.QuestionID, userID),
		Created:    created,
	}, nil
}

func (s *QuizService) Bookmarks(ctx context.Context, userID uint) ([]model.QuizBookmark, error) {
	bookmarks, err := s.bookmarks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bookmarks == nil {
		bookmarks = []model.QuizBookmark{}
	}
	return bookmarks, nil
}

func containsTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}
