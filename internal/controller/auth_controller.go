package controller

import (
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/internal/service"
	"cbt_portal_backend/internal/util"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Service *service.AuthService
}

func NewAuthController(svc *service.AuthService) *AuthController {
	return &AuthController{Service: svc}
}

type staffLoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// @Summary 教职工登录
// @Tags 认证模块
// @Accept json
// @Produce json
// @Param body body staffLoginReq true "登录信息"
// @Success 200 {object} util.Response
// @Router /api/auth/login [post]
func (c *AuthController) StaffLogin(ctx *gin.Context) {
	var req staffLoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.StaffLogin(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.Error(ctx, 401, "邮箱或密码错误")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

type studentLoginReq struct {
	LoginCode string `json:"loginCode" binding:"required,len=6"`
}

// @Summary 学生登录码登录
// @Tags 认证模块
// @Accept json
// @Produce json
// @Param body body studentLoginReq true "6位登录码"
// @Success 200 {object} util.Response
// @Router /api/auth/student-login [post]
func (c *AuthController) StudentLogin(ctx *gin.Context) {
	var req studentLoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.StudentLogin(req.LoginCode)
	if err != nil {
		if errors.Is(err, util.ErrStudentNotFound) {
			util.Error(ctx, 401, "登录码无效")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

type registerStaffReq struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=teacher proprietor admin"`
}

// @Summary 创建教职工账号
// @Tags 认证模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body registerStaffReq true "账号信息"
// @Success 201 {object} util.Response
// @Router /api/admin/staff [post]
func (c *AuthController) RegisterStaff(ctx *gin.Context) {
	var req registerStaffReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.Service.RegisterStaff(req.Name, req.Email, req.Password, model.UserRole(req.Role))
	if err != nil {
		if errors.Is(err, util.ErrEmailRegistered) {
			util.Conflict(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, user)
}

// @Summary 教职工账号列表
// @Tags 认证模块
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/admin/staff [get]
func (c *AuthController) ListStaff(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	users, total, err := c.Service.ListStaff(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: users, Total: total, Page: page, Limit: limit})
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// @Summary 修改密码
// @Tags 认证模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body changePasswordReq true "新旧密码"
// @Success 200 {object} util.Response
// @Router /api/auth/password [put]
func (c *AuthController) ChangePassword(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req changePasswordReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.ChangePassword(user.UserID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, util.ErrPermissionDenied) {
			util.Error(ctx, 401, "原密码错误")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// @Summary 当前登录身份
// @Tags 认证模块
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, user)
}
