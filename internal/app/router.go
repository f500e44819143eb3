package app

import (
	"evalhub_backend/docs"
	"evalhub_backend/internal/config"
	"evalhub_backend/internal/middleware"
	"evalhub_backend/internal/model"
	"evalhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerCommonRoutes(authGroup, c)
		a.registerFacultyRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerCommonRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile", c.user.UpdateProfile)
	rg.GET("/faculty", c.user.ListFaculty)

	// 课程与题目查询（学生只能看到已发布课程）
	rg.GET("/courses", c.course.ListCourses)
	rg.GET("/courses/:id", c.course.GetCourse)
	rg.GET("/courses/:id/questions", c.course.ListQuestions)

	// 提交
	rg.POST("/submissions", middleware.RoleMiddleware(model.Student), c.submission.CreateSubmission)
	rg.GET("/submissions", c.submission.ListSubmissions)
	rg.GET("/submissions/:id", c.submission.GetSubmission)
	rg.POST("/submissions/:id/screenshots", c.submission.UploadScreenshot)
	rg.GET("/submissions/:id/screenshots", c.submission.ListScreenshots)
}

func (a *App) registerFacultyRoutes(rg *gin.RouterGroup, c *controllers) {
	faculty := rg.Group("/")
	faculty.Use(middleware.RoleMiddleware(model.Faculty))
	{
		// 课程与题目维护
		faculty.POST("/courses", c.course.CreateCourse)
		faculty.PUT("/courses/:id", c.course.UpdateCourse)
		faculty.DELETE("/courses/:id", c.course.DeleteCourse)
		faculty.POST("/questions", c.course.CreateQuestion)
		faculty.PUT("/questions/:id", c.course.UpdateQuestion)
		faculty.DELETE("/questions/:id", c.course.DeleteQuestion)

		// 分配与转派
		faculty.GET("/assignments", c.assignment.ListAssignments)
		faculty.GET("/assignments/:submissionId", c.assignment.GetAssignment)
		faculty.POST("/assignments/reallocate", c.assignment.Reallocate)

		// 评阅流转
		faculty.POST("/evaluations/:submissionId/start", c.evaluation.StartEvaluation)
		faculty.POST("/evaluations/:submissionId/heartbeat", c.evaluation.Heartbeat)
		faculty.POST("/evaluations", c.evaluation.SubmitEvaluation)
		faculty.GET("/evaluations", c.evaluation.ListEvaluations)
		faculty.GET("/evaluations/:submissionId", c.evaluation.GetEvaluation)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg),
		middleware.ActivityMiddleware(repos.user),
		middleware.RoleMiddleware(model.Admin))
	{
		// 评阅人管理
		admin.PUT("/faculty/:id", c.user.UpdateFacultySettings)
		admin.POST("/faculty/:id/redistribute", c.assignment.Redistribute)

		// 分配
		admin.POST("/assignments/smart-assign", c.assignment.SmartAssign)
		admin.POST("/assignments/bulk", c.assignment.BulkAssign)
		admin.GET("/audit-log", c.assignment.ListAuditLog)

		// 评阅重开
		admin.POST("/evaluations/:submissionId/reopen", c.evaluation.Reopen)

		// 导出与工作台
		admin.GET("/export/evaluations", c.export.ExportEvaluations)
		admin.GET("/export/audit-log", c.export.ExportAuditLog)
		admin.GET("/dashboard", c.dashboard.Overview)
	}
}
