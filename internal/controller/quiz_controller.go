package controller

import (
	"abyas_backend/internal/service"
	"abyas_backend/internal/util"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// respondServiceError 将测验与助手的业务错误映射为 HTTP 状态码和 reason
func respondServiceError(ctx *gin.Context, err error) {
	var validationErr *util.ValidationError
	var upstreamErr *util.UpstreamError
	switch {
	case errors.As(err, &validationErr):
		util.BadRequest(ctx, validationErr.Error())
	case errors.Is(err, util.ErrQuizSessionNotFound):
		util.ErrorWithReason(ctx, http.StatusNotFound, util.ReasonSessionNotFound, err.Error())
	case errors.Is(err, util.ErrQuizGenerationFailed):
		util.ErrorWithReason(ctx, http.StatusUnprocessableEntity, util.ReasonGenerationFailed, "could not generate quiz, please retry")
	case errors.As(err, &upstreamErr):
		if upstreamErr.Timeout {
			util.ErrorWithReason(ctx, http.StatusGatewayTimeout, util.ReasonUpstreamTimeout, "quiz generation timed out")
		} else {
			util.ErrorWithReason(ctx, http.StatusBadGateway, util.ReasonUpstream, "quiz generation service unavailable")
		}
	case errors.Is(err, util.ErrAINotConfigured):
		util.ErrorWithReason(ctx, http.StatusServiceUnavailable, util.ReasonUpstream, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// Topics godoc
// @Summary 可选主题与难度
// @Tags 测验
// @Produce json
// @Success 200 {object} util.Response{data=service.TopicsResponse}
// @Router /api/quiz/topics [get]
func (c *QuizController) Topics(ctx *gin.Context) {
	util.Success(ctx, c.QuizService.Topics())
}

// Generate godoc
// @Summary 生成测验
// @Description 调用文本生成服务出题并保存会话，返回题目与 quiz_id
// @Tags 测验
// @Accept json
// @Produce json
// @Param body body service.GenerateQuizRequest true "出题参数"
// @Success 200 {object} util.Response{data=service.GeneratedQuiz}
// @Failure 400 {object} util.Response "参数错误"
// @Failure 422 {object} util.Response "未能解析出有效题目"
// @Failure 502 {object} util.Response "文本生成服务不可用"
// @Router /api/quiz/generate [post]
func (c *QuizController) Generate(ctx *gin.Context) {
	var req service.GenerateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.Generate(ctx.Request.Context(), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// Submit godoc
// @Summary 提交答案
// @Tags 测验
// @Accept json
// @Produce json
// @Param body body service.SubmitQuizRequest true "答案"
// @Success 200 {object} util.Response{data=model.QuizSubmissionResult}
// @Failure 400 {object} util.Response "参数错误"
// @Failure 404 {object} util.Response "测验不存在或已过期"
// @Router /api/quiz/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	var req service.SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.Submit(ctx.Request.Context(), util.CurrentUserID(ctx), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// History godoc
// @Summary 测验历史
// @Tags 测验
// @Produce json
// @Param limit query int false "条数，默认 10"
// @Success 200 {object} util.Response{data=service.QuizHistoryPage}
// @Router /api/quiz/history [get]
func (c *QuizController) History(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if err != nil {
		util.BadRequest(ctx, "limit must be an integer")
		return
	}

	page, err := c.QuizService.History(ctx.Request.Context(), util.CurrentUserID(ctx), limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// Analytics godoc
// @Summary 测验统计分析
// @Tags 测验
// @Produce json
// @Success 200 {object} util.Response{data=service.QuizAnalytics}
// @Router /api/quiz/analytics [get]
func (c *QuizController) Analytics(ctx *gin.Context) {
	analytics, err := c.QuizService.Analytics(ctx.Request.Context(), util.CurrentUserID(ctx))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, analytics)
}

// Bookmark godoc
// @Summary 收藏题目
// @Tags 测验
// @Accept json
// @Produce json
// @Param body body service.BookmarkRequest true "题目"
// @Success 200 {object} util.Response{data=service.BookmarkResult}
// @Router /api/quiz/bookmark [post]
func (c *QuizController) Bookmark(ctx *gin.Context) {
	var req service.BookmarkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.Bookmark(ctx.Request.Context(), util.CurrentUserID(ctx), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Bookmarks godoc
// @Summary 收藏列表
// @Tags 测验
// @Produce json
// @Success 200 {object} util.Response{data=[]model.QuizBookmark}
// @Router /api/quiz/bookmarks [get]
func (c *QuizController) Bookmarks(ctx *gin.Context) {
	bookmarks, err := c.QuizService.Bookmarks(ctx.Request.Context(), util.CurrentUserID(ctx))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, bookmarks)
}
