package controller

import (
	"cbt_portal_backend/internal/service"
	"cbt_portal_backend/internal/util"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

// TestController 教师端试卷管理
type TestController struct {
	Service *service.TestService
}

func NewTestController(svc *service.TestService) *TestController {
	return &TestController{Service: svc}
}

// @Summary 创建试卷
// @Tags 试卷模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateTestInput true "试卷信息"
// @Success 201 {object} util.Response
// @Router /api/teacher/tests [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateTestInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Service.CreateTest(user.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, test)
}

// @Summary 试卷列表
// @Tags 试卷模块
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/teacher/tests [get]
func (c *TestController) ListTests(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	tests, total, err := c.Service.ListTests(user.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: tests, Total: total, Page: page, Limit: limit})
}

// @Summary 试卷详情（含题目与答案）
// @Tags 试卷模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id} [get]
func (c *TestController) GetTest(ctx *gin.Context) {
	test, err := c.Service.GetTest(ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, test)
}

// @Summary 更新试卷
// @Tags 试卷模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param body body service.UpdateTestInput true "试卷信息"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id} [put]
func (c *TestController) UpdateTest(ctx *gin.Context) {
	var req service.UpdateTestInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Service.UpdateTest(ctx.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrTestPublished):
			util.Conflict(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, test)
}

// @Summary 发布试卷
// @Tags 试卷模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id}/publish [post]
func (c *TestController) PublishTest(ctx *gin.Context) {
	test, err := c.Service.PublishTest(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, test)
}

// @Summary 撤回发布
// @Tags 试卷模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id}/unpublish [post]
func (c *TestController) UnpublishTest(ctx *gin.Context) {
	test, err := c.Service.UnpublishTest(ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, test)
}

// @Summary 删除试卷
// @Tags 试卷模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id} [delete]
func (c *TestController) DeleteTest(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := c.Service.DeleteTest(id); err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": id})
}

type generateQuestionsReq struct {
	Subject      string `json:"subject" binding:"required"`
	ClassName    string `json:"className" binding:"required"`
	Topic        string `json:"topic" binding:"required"`
	Count        int    `json:"count"`
	QuestionType string `json:"questionType"`
}

// @Summary AI 出题
// @Tags 试卷模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body generateQuestionsReq true "出题参数"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/generate [post]
func (c *TestController) GenerateQuestions(ctx *gin.Context) {
	var req generateQuestionsReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	questions, err := c.Service.GenerateQuestions(ctx.Request.Context(),
		req.Subject, req.ClassName, req.Topic, req.Count, req.QuestionType)
	if err != nil {
		util.Error(ctx, 502, err.Error())
		return
	}

	util.Success(ctx, gin.H{"questions": questions})
}

// @Summary 从 PDF 导入试卷
// @Tags 试卷模块
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "试卷 PDF"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/import [post]
func (c *TestController) ImportFromPDF(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "missing file")
		return
	}
	// 20MB 上限
	if fileHeader.Size > 20<<20 {
		util.BadRequest(ctx, "file too large (max 20MB)")
		return
	}

	result, err := c.Service.ImportFromPDF(ctx.Request.Context(), fileHeader)
	if err != nil {
		util.Error(ctx, 502, err.Error())
		return
	}

	util.Success(ctx, result)
}

// @Summary 选择题讲解
// @Tags 试卷模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param questionId path string true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/tests/{id}/questions/{questionId}/explain [get]
func (c *TestController) ExplainQuestion(ctx *gin.Context) {
	explanation, err := c.Service.ExplainQuestion(ctx.Request.Context(), ctx.Param("id"), ctx.Param("questionId"))
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
			return
		}
		util.Error(ctx, 502, err.Error())
		return
	}
	util.Success(ctx, gin.H{"explanation": explanation})
}
