package controller

import (
	"cbt_portal_backend/internal/service"
	"cbt_portal_backend/internal/util"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SchoolController 班级、学年、科目与学籍管理
type SchoolController struct {
	Service *service.SchoolService
}

func NewSchoolController(svc *service.SchoolService) *SchoolController {
	return &SchoolController{Service: svc}
}

type nameReq struct {
	Name string `json:"name" binding:"required"`
}

// @Summary 创建班级
// @Tags 学校管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body nameReq true "班级名称"
// @Success 201 {object} util.Response
// @Router /api/admin/classes [post]
func (c *SchoolController) CreateClass(ctx *gin.Context) {
	var req nameReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	class, err := c.Service.CreateClass(req.Name)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, class)
}

// @Summary 班级列表
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/classes [get]
func (c *SchoolController) ListClasses(ctx *gin.Context) {
	classes, err := c.Service.ListClasses()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"classes": classes})
}

// @Summary 删除班级
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "班级ID"
// @Success 200 {object} util.Response
// @Router /api/admin/classes/{id} [delete]
func (c *SchoolController) DeleteClass(ctx *gin.Context) {
	if err := c.Service.DeleteClass(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": ctx.Param("id")})
}

type createSessionReq struct {
	Name  string   `json:"name" binding:"required"`
	Terms []string `json:"terms"`
}

// @Summary 创建学年
// @Tags 学校管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body createSessionReq true "学年信息"
// @Success 201 {object} util.Response
// @Router /api/admin/sessions [post]
func (c *SchoolController) CreateSession(ctx *gin.Context) {
	var req createSessionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	session, err := c.Service.CreateSession(req.Name, req.Terms)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// @Summary 学年列表
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/sessions [get]
func (c *SchoolController) ListSessions(ctx *gin.Context) {
	sessions, err := c.Service.ListSessions()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"sessions": sessions})
}

// @Summary 当前学年
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/sessions/active [get]
func (c *SchoolController) ActiveSession(ctx *gin.Context) {
	session, err := c.Service.ActiveSession()
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, session)
}

// @Summary 归档学年
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "学年ID"
// @Success 200 {object} util.Response
// @Router /api/admin/sessions/{id}/archive [post]
func (c *SchoolController) ArchiveSession(ctx *gin.Context) {
	if err := c.Service.ArchiveSession(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"archived": ctx.Param("id")})
}

// @Summary 创建科目
// @Tags 学校管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body nameReq true "科目名称"
// @Success 201 {object} util.Response
// @Router /api/admin/subjects [post]
func (c *SchoolController) CreateSubject(ctx *gin.Context) {
	var req nameReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	subject, err := c.Service.CreateSubject(req.Name)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// @Summary 科目列表
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/subjects [get]
func (c *SchoolController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.Service.ListSubjects()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"subjects": subjects})
}

// @Summary 删除科目
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "科目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/subjects/{id} [delete]
func (c *SchoolController) DeleteSubject(ctx *gin.Context) {
	if err := c.Service.DeleteSubject(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": ctx.Param("id")})
}

type enrollStudentReq struct {
	Name          string `json:"name" binding:"required"`
	ClassID       string `json:"classId" binding:"required"`
	ParentName    string `json:"parentName"`
	ParentPhone   string `json:"parentPhone"`
	AdmissionDate string `json:"admissionDate"`
}

// @Summary 注册学生（自动签发登录码）
// @Tags 学校管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body enrollStudentReq true "学生信息"
// @Success 201 {object} util.Response
// @Router /api/teacher/students [post]
func (c *SchoolController) EnrollStudent(ctx *gin.Context) {
	var req enrollStudentReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	student, err := c.Service.EnrollStudent(req.Name, req.ClassID, req.ParentName, req.ParentPhone, req.AdmissionDate)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, student)
}

// @Summary 学生列表
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Param classId query string false "班级ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param name query string false "姓名模糊查询"
// @Success 200 {object} util.Response
// @Router /api/teacher/students [get]
func (c *SchoolController) ListStudents(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	students, total, err := c.Service.ListStudents(ctx.Query("classId"), page, limit, ctx.Query("name"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: students, Total: total, Page: page, Limit: limit})
}

type updateStudentReq struct {
	Name        string `json:"name"`
	ClassID     string `json:"classId"`
	ParentName  string `json:"parentName"`
	ParentPhone string `json:"parentPhone"`
}

// @Summary 更新学生信息
// @Tags 学校管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Param body body updateStudentReq true "学生信息"
// @Success 200 {object} util.Response
// @Router /api/teacher/students/{id} [put]
func (c *SchoolController) UpdateStudent(ctx *gin.Context) {
	var req updateStudentReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	student, err := c.Service.UpdateStudent(ctx.Param("id"), req.Name, req.ClassID, req.ParentName, req.ParentPhone)
	if err != nil {
		if errors.Is(err, util.ErrStudentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, student)
}

// @Summary 重新签发登录码
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/students/{id}/login-code [post]
func (c *SchoolController) RegenerateLoginCode(ctx *gin.Context) {
	student, err := c.Service.RegenerateLoginCode(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrStudentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// @Summary 删除学生
// @Tags 学校管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/students/{id} [delete]
func (c *SchoolController) DeleteStudent(ctx *gin.Context) {
	if err := c.Service.DeleteStudent(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": ctx.Param("id")})
}
