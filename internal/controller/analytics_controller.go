package controller

import (
	"cbt_portal_backend/internal/service"
	"cbt_portal_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

// AnalyticsController 成绩分析与报告
type AnalyticsController struct {
	Service *service.AnalyticsService
}

func NewAnalyticsController(svc *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Service: svc}
}

// @Summary 整卷分析（正确率 + 薄弱知识点 + AI 讲评）
// @Tags 分析模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id}/analysis [get]
func (c *AnalyticsController) AnalyzeTest(ctx *gin.Context) {
	analysis, err := c.Service.AnalyzeTest(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, analysis)
}

// @Summary 针对薄弱知识点生成讲评教案
// @Tags 分析模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id}/lesson-plan [post]
func (c *AnalyticsController) GenerateLessonPlan(ctx *gin.Context) {
	plan, err := c.Service.GenerateLessonPlan(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
			return
		}
		util.Error(ctx, 502, err.Error())
		return
	}
	util.Success(ctx, plan)
}

// @Summary 整卷提交列表
// @Tags 分析模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id}/submissions [get]
func (c *AnalyticsController) ListTestSubmissions(ctx *gin.Context) {
	rows, err := c.Service.ListTestSubmissions(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"submissions": rows})
}

// @Summary 学生成绩单（含 AI 评语）
// @Tags 分析模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/students/{id}/report [get]
func (c *AnalyticsController) StudentReport(ctx *gin.Context) {
	report, err := c.Service.BuildStudentReport(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrStudentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
