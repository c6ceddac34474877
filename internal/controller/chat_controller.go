package controller

import (
	"abyas_backend/internal/service"
	"abyas_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	ChatService *service.ChatService
}

func NewChatController(chatService *service.ChatService) *ChatController {
	return &ChatController{ChatService: chatService}
}

// Ask godoc
// @Summary NCC 问答助手
// @Tags 助手
// @Accept json
// @Produce json
// @Param body body service.ChatRequest true "问题"
// @Success 200 {object} util.Response{data=service.ChatResponse}
// @Failure 400 {object} util.Response "消息为空"
// @Failure 503 {object} util.Response "模型未配置"
// @Router /api/chat [post]
func (c *ChatController) Ask(ctx *gin.Context) {
	var req service.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reply, err := c.ChatService.Ask(ctx.Request.Context(), req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, reply)
}
