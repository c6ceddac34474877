package service

import (
	"abyas_backend/internal/config"
	"abyas_backend/internal/util"
	"abyas_backend/pkg/monitoring"
	"abyas_backend/pkg/tracing"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// CompletionClient 文本生成服务：一次调用，返回模型原始文本
type CompletionClient interface {
	Enabled() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

type AIService struct {
	mu     sync.RWMutex
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{config: cfg, client: &http.Client{}}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []AIChatMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const quizSystemPrompt = "You are an expert NCC (National Cadet Corps) instructor who writes multiple-choice questions in a strict plain-text format."

// UpdateConfig 配置热更新时替换模型、地址和密钥
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

func (s *AIService) currentConfig() config.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *AIService) Enabled() bool {
	return s.currentConfig().Enabled()
}

// Complete 以出题系统提示调用模型
func (s *AIService) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteWithSystem(ctx, quizSystemPrompt, prompt)
}

// CompleteWithSystem 调用 /chat/completions。网络错误、超时、非 200 以及空响应统一包装为 *util.UpstreamError
func (s *AIService) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	cfg := s.currentConfig()
	if !cfg.Enabled() {
		return "", util.ErrAINotConfigured
	}

	ctx, span := tracing.Tracer.Start(ctx, "ai.complete")
	defer span.End()
	span.SetAttributes(attribute.String("ai.model", cfg.Model))

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	content, status, err := s.doComplete(ctx, cfg, system, prompt)
	monitoring.UpstreamDuration.WithLabelValues(statusLabel(status, err)).Observe(time.Since(start).Seconds())

	if err != nil {
		upErr := &util.UpstreamError{
			StatusCode: status,
			Timeout:    errors.Is(err, context.DeadlineExceeded),
			Err:        err,
		}
		tracing.RecordError(span, upErr)
		return "", upErr
	}
	span.SetAttributes(attribute.Int("ai.response_chars", len(content)))
	return content, nil
}

func (s *AIService) doComplete(ctx context.Context, cfg config.AIConfig, system, prompt string) (string, int, error) {
	reqBody := ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []AIChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, err
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("AI API error: %s", excerpt(string(body), 200))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", resp.StatusCode, err
	}
	if result.Error != nil {
		return "", resp.StatusCode, errors.New(result.Error.Message)
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", resp.StatusCode, fmt.Errorf("AI returned no choices")
	}
	return result.Choices[0].Message.Content, resp.StatusCode, nil
}

func statusLabel(status int, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case status == 0:
		return "transport_error"
	case err != nil && status == http.StatusOK:
		return "empty"
	default:
		return strconv.Itoa(status)
	}
}
