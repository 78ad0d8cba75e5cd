package controller

import (
	"cbt_portal_backend/internal/service"
	"cbt_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TutorController 学生辅导问答（流式）
type TutorController struct {
	AI *service.AIService
}

func NewTutorController(ai *service.AIService) *TutorController {
	return &TutorController{AI: ai}
}

type tutorAskReq struct {
	Question string                  `json:"question" binding:"required"`
	History  []service.AIChatMessage `json:"history"`
}

// Ask 辅导问答
// @Summary 学生辅导问答（SSE 流式）
// @Tags 辅导模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body tutorAskReq true "问题与历史对话"
// @Router /api/student/tutor/ask [post]
func (c *TutorController) Ask(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil || user.StudentID == "" {
		util.Unauthorized(ctx)
		return
	}

	var req tutorAskReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	stream, errChan := c.AI.ChatStream(ctx.Request.Context(), req.Question, "", req.History)

	// 设置SSE响应头
	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("Transfer-Encoding", "chunked")

	for content := range stream {
		ctx.SSEvent("message", content)
		ctx.Writer.Flush()
	}

	if err := <-errChan; err != nil {
		ctx.SSEvent("error", err.Error())
		ctx.Writer.Flush()
	}

	ctx.SSEvent("end", "done")
	ctx.Writer.Flush()
}
