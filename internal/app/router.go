package app

import (
	"cbt_portal_backend/docs"
	"cbt_portal_backend/internal/config"
	"cbt_portal_backend/internal/middleware"
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/pkg/monitoring"
	"cbt_portal_backend/pkg/security"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）。登录接口单独收紧限流：学生登录码只有 6 位数字
	loginThrottle := security.LoginThrottle(10, time.Minute)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/login", loginThrottle, c.auth.StaffLogin)
		public.POST("/auth/student-login", loginThrottle, c.auth.StudentLogin)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/auth/me", c.auth.Me)
		authGroup.PUT("/auth/password", c.auth.ChangePassword)

		// 全体登录用户可见的基础数据
		authGroup.GET("/classes", c.school.ListClasses)
		authGroup.GET("/sessions", c.school.ListSessions)
		authGroup.GET("/sessions/active", c.school.ActiveSession)
		authGroup.GET("/subjects", c.school.ListSubjects)
		authGroup.GET("/tests/:id/questions/:questionId/explain", c.test.ExplainQuestion)

		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("/student")
	student.Use(middleware.RoleMiddleware(model.StudentRole))
	{
		student.GET("/tests", c.exam.ListAvailableTests)
		student.GET("/tests/:id", c.exam.GetTest)
		student.POST("/tests/:id/start", c.exam.StartExam)
		student.GET("/tests/:id/ws", c.exam.ExamWebSocket)
		// WebSocket 不可用时的 REST 降级接口
		student.POST("/tests/:id/answer", c.exam.SetAnswer)
		student.POST("/tests/:id/navigate", c.exam.Navigate)
		student.POST("/tests/:id/violation", c.exam.ReportViolation)
		student.POST("/tests/:id/submit", c.exam.SubmitExam)
		student.GET("/tests/:id/result", c.exam.GetResult)

		student.POST("/tutor/ask", c.tutor.Ask)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher, model.Proprietor))
	{
		teacher.POST("/tests", c.test.CreateTest)
		teacher.GET("/tests", c.test.ListTests)
		teacher.GET("/tests/:id", c.test.GetTest)
		teacher.PUT("/tests/:id", c.test.UpdateTest)
		teacher.DELETE("/tests/:id", c.test.DeleteTest)
		teacher.POST("/tests/:id/publish", c.test.PublishTest)
		teacher.POST("/tests/:id/unpublish", c.test.UnpublishTest)
		teacher.POST("/tests/generate", c.test.GenerateQuestions)
		teacher.POST("/tests/import", c.test.ImportFromPDF)

		teacher.GET("/tests/:id/analysis", c.analytics.AnalyzeTest)
		teacher.POST("/tests/:id/lesson-plan", c.analytics.GenerateLessonPlan)
		teacher.GET("/tests/:id/submissions", c.analytics.ListTestSubmissions)
		teacher.GET("/tests/:id/attempts", c.exam.ListAttempts)
		teacher.DELETE("/tests/:id/attempts/:studentId", c.exam.ResetAttempt)

		teacher.POST("/students", c.school.EnrollStudent)
		teacher.GET("/students", c.school.ListStudents)
		teacher.PUT("/students/:id", c.school.UpdateStudent)
		teacher.DELETE("/students/:id", c.school.DeleteStudent)
		teacher.POST("/students/:id/login-code", c.school.RegenerateLoginCode)
		teacher.GET("/students/:id/report", c.analytics.StudentReport)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin, model.Proprietor))
	{
		admin.POST("/staff", c.auth.RegisterStaff)
		admin.GET("/staff", c.auth.ListStaff)

		admin.POST("/classes", c.school.CreateClass)
		admin.DELETE("/classes/:id", c.school.DeleteClass)

		admin.POST("/sessions", c.school.CreateSession)
		admin.POST("/sessions/:id/archive", c.school.ArchiveSession)

		admin.POST("/subjects", c.school.CreateSubject)
		admin.DELETE("/subjects/:id", c.school.DeleteSubject)
	}
}
