package service

import (
	"abyas_backend/internal/util"
	"abyas_backend/pkg/logger"
	"abyas_backend/pkg/monitoring"
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	chatSystemPrompt = "You are an expert NCC (National Cadet Corps) assistant. Answer the user's question in a clear, helpful, and concise way."

	maxChatMessageRunes = 4000
)

// AssistantClient 可指定系统提示的文本生成服务，AIService 实现该接口
type AssistantClient interface {
	Enabled() bool
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatService NCC 问答助手，单轮对话，不保存上下文
type ChatService struct {
	ai AssistantClient
}

func NewChatService(ai AssistantClient) *ChatService {
	return &ChatService{ai: ai}
}

func (s *ChatService) Ask(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, util.NewValidationError("message", "cannot be empty")
	}
	if utf8.RuneCountInString(message) > maxChatMessageRunes {
		return nil, util.NewValidationError("message", "must be at most %d characters", maxChatMessageRunes)
	}
	if !s.ai.Enabled() {
		monitoring.ChatRequests.WithLabelValues("unavailable").Inc()
		return nil, util.ErrAINotConfigured
	}

	reply, err := s.ai.CompleteWithSystem(ctx, chatSystemPrompt, message)
	if err != nil {
		monitoring.ChatRequests.WithLabelValues("upstream_error").Inc()
		logger.Log.Warn("assistant chat failed", zap.Error(err))
		return nil, err
	}

	monitoring.ChatRequests.WithLabelValues("ok").Inc()
	return &ChatResponse{Reply: strings.TrimSpace(reply)}, nil
}
