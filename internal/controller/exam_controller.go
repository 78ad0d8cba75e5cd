package controller

import (
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/internal/service"
	"cbt_portal_backend/internal/util"
	"cbt_portal_backend/pkg/monitoring"
	"errors"

	"github.com/gin-gonic/gin"
)

// ExamController 学生端考试流程
type ExamController struct {
	ExamService *service.ExamService
	TestService *service.TestService
	Hub         *service.ExamSessionHub
}

func NewExamController(examSvc *service.ExamService, testSvc *service.TestService, hub *service.ExamSessionHub) *ExamController {
	return &ExamController{ExamService: examSvc, TestService: testSvc, Hub: hub}
}

// @Summary 可参加的试卷列表
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param sessionId query string false "学年ID"
// @Param term query string false "学期"
// @Success 200 {object} util.Response
// @Router /api/student/tests [get]
func (c *ExamController) ListAvailableTests(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil || user.StudentID == "" {
		util.Unauthorized(ctx)
		return
	}

	tests, err := c.ExamService.ListAvailableTests(user.StudentID, ctx.Query("sessionId"), ctx.Query("term"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"tests": tests})
}

// @Summary 学生视角试卷详情（不含答案）
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/student/tests/{id} [get]
func (c *ExamController) GetTest(ctx *gin.Context) {
	test, err := c.TestService.GetTestForStudent(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrTestNotPublished) {
			util.Forbidden(ctx)
			return
		}
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, test)
}

// @Summary 开始考试
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/student/tests/{id}/start [post]
func (c *ExamController) StartExam(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil || user.StudentID == "" {
		util.Unauthorized(ctx)
		return
	}

	session, err := c.ExamService.StartExam(user.StudentID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrTestNotFound), errors.Is(err, util.ErrStudentNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrTestNotPublished):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrAttemptSubmitted):
			util.Conflict(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, session.Snapshot())
}

// @Summary 考试会话 WebSocket
// @Tags 考试模块
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Router /api/student/tests/{id}/ws [get]
func (c *ExamController) ExamWebSocket(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil || user.StudentID == "" {
		util.Unauthorized(ctx)
		return
	}

	// 必须先 start 建立会话，再挂 WebSocket
	session, err := c.ExamService.StartExam(user.StudentID, ctx.Param("id"))
	if err != nil {
		util.Forbidden(ctx)
		return
	}

	service.ServeExamWs(c.Hub, ctx.Writer, ctx.Request, session.AttemptID)
}

// getSession 取当前学生在该试卷上的活动会话（REST 降级接口共用）
func (c *ExamController) getSession(ctx *gin.Context) (*service.ExamSession, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil || user.StudentID == "" {
		util.Unauthorized(ctx)
		return nil, false
	}
	session, err := c.ExamService.ActiveSession(user.StudentID, ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return nil, false
	}
	return session, true
}

type answerReq struct {
	QuestionID string       `json:"questionId" binding:"required"`
	Value      model.Answer `json:"value"`
}

// @Summary 作答（WebSocket 不可用时的降级接口）
// @Tags 考试模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param body body answerReq true "题目与作答值"
// @Success 200 {object} util.Response
// @Router /api/student/tests/{id}/answer [post]
func (c *ExamController) SetAnswer(ctx *gin.Context) {
	session, ok := c.getSession(ctx)
	if !ok {
		return
	}

	var req answerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := session.SetAnswer(req.QuestionID, req.Value); err != nil {
		util.Conflict(ctx, err.Error())
		return
	}
	util.Success(ctx, session.Snapshot())
}

type navigateReq struct {
	Index int `json:"index"`
}

// @Summary 跳转题目（WebSocket 不可用时的降级接口）
// @Tags 考试模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param body body navigateReq true "目标题号"
// @Success 200 {object} util.Response
// @Router /api/student/tests/{id}/navigate [post]
func (c *ExamController) Navigate(ctx *gin.Context) {
	session, ok := c.getSession(ctx)
	if !ok {
		return
	}

	var req navigateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := session.Navigate(req.Index); err != nil {
		util.Conflict(ctx, err.Error())
		return
	}
	util.Success(ctx, session.Snapshot())
}

type violationReq struct {
	Resolved bool `json:"resolved"`
}

// @Summary 上报/解除退出全屏（WebSocket 不可用时的降级接口）
// @Tags 考试模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param body body violationReq true "resolved=true 表示已回到全屏"
// @Success 200 {object} util.Response
// @Router /api/student/tests/{id}/violation [post]
func (c *ExamController) ReportViolation(ctx *gin.Context) {
	session, ok := c.getSession(ctx)
	if !ok {
		return
	}

	var req violationReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if req.Resolved {
		session.ResolveViolation()
	} else if session.ReportViolation() {
		monitoring.LockdownViolationCounter.Inc()
	}
	util.Success(ctx, session.Snapshot())
}

// @Summary 交卷
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/student/tests/{id}/submit [post]
func (c *ExamController) SubmitExam(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil || user.StudentID == "" {
		util.Unauthorized(ctx)
		return
	}

	submission, err := c.ExamService.Submit(user.StudentID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound), errors.Is(err, util.ErrSessionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrAttemptSubmitted),
			errors.Is(err, util.ErrSubmitInFlight),
			errors.Is(err, util.ErrSubmitNotLastPage):
			util.Conflict(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, submission)
}

// @Summary 查询本人成绩
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/student/tests/{id}/result [get]
func (c *ExamController) GetResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil || user.StudentID == "" {
		util.Unauthorized(ctx)
		return
	}

	submission, err := c.ExamService.GetResult(user.StudentID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrAttemptNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}

// @Summary 整卷答题进度（监考视图）
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id}/attempts [get]
func (c *ExamController) ListAttempts(ctx *gin.Context) {
	attempts, err := c.ExamService.ListAttempts(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"attempts": attempts})
}

// @Summary 重置学生答题记录（允许重考）
// @Tags 考试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param studentId path string true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id}/attempts/{studentId} [delete]
func (c *ExamController) ResetAttempt(ctx *gin.Context) {
	if err := c.ExamService.ResetAttempt(ctx.Param("studentId"), ctx.Param("id")); err != nil {
		if errors.Is(err, util.ErrAttemptNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"reset": true})
}
