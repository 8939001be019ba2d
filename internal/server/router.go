package server

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/edumanager-api/api/swagger"
	"github.com/noah-isme/edumanager-api/internal/app"
	"github.com/noah-isme/edumanager-api/internal/handler"
	"github.com/noah-isme/edumanager-api/internal/middleware"
	"github.com/noah-isme/edumanager-api/internal/models"
	"github.com/noah-isme/edumanager-api/pkg/config"
	"github.com/noah-isme/edumanager-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edumanager-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edumanager-api/pkg/middleware/requestid"
)

// NewRouter mounts every route on a fresh gin engine.
func NewRouter(c *app.Container) *gin.Engine {
	cfg := c.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(c.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(c.Metrics))

	maxUpload := cfg.Uploads.MaxFileSizeBytes
	authHandler := handler.NewAuthHandler(c.Auth)
	teacherHandler := handler.NewTeacherHandler(c.Teachers)
	subjectHandler := handler.NewSubjectHandler(c.Subjects, c.Scheduler, c.Exporter, maxUpload)
	departmentHandler := handler.NewDepartmentHandler(c.Departments, c.Importer, c.Exporter, c.Scheduler, c.Timetables, maxUpload)
	timetableHandler := handler.NewTimetableHandler(c.Timetables)
	metricsHandler := handler.NewMetricsHandler(c.Metrics, readinessChecks(c))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Snapshot)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := middleware.JWT(c.Auth)
	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/check", authHandler.Check)
	auth.GET("/me", requireAuth, authHandler.Me)

	teachers := api.Group("/teachers")
	teachers.GET("", teacherHandler.List)
	teachers.POST("", teacherHandler.Create)
	teachers.GET("/by-user/:userId", teacherHandler.GetByUser)
	teachers.GET("/:id", teacherHandler.Get)
	teachers.PUT("/:id", teacherHandler.Update)
	teachers.PUT("/:id/dailyTasks", teacherHandler.UpdateDailyTasks)
	teachers.DELETE("/:id", teacherHandler.Delete)

	subjects := api.Group("/subjects")
	subjects.GET("", subjectHandler.List)
	subjects.POST("", subjectHandler.Create)
	subjects.POST("/upload-timetable", subjectHandler.UploadTimetable)
	subjects.GET("/download-template", subjectHandler.DownloadTemplate)
	subjects.GET("/:id", subjectHandler.Get)
	subjects.PUT("/:id", subjectHandler.Update)
	subjects.DELETE("/:id", subjectHandler.Delete)

	departments := api.Group("/departments")
	departments.GET("", departmentHandler.List)
	departments.POST("", departmentHandler.Create)
	departments.GET("/subjects", departmentHandler.Subjects)
	departments.POST("/upload-excel", departmentHandler.UploadExcel)
	departments.GET("/export", departmentHandler.Export)
	departments.GET("/download-template", departmentHandler.DownloadTemplate)
	departments.GET("/download/:filename", departmentHandler.Download)
	departments.POST("/generate-timetable", departmentHandler.GenerateTimetable)
	departments.POST("/generate-from-excel", departmentHandler.GenerateFromExcel)
	departments.GET("/:id", departmentHandler.Get)
	departments.PUT("/:id", departmentHandler.Update)
	departments.DELETE("/:id", departmentHandler.Delete)

	timetable := api.Group("/timetable")
	timetable.GET("/download/:filename", timetableHandler.Download)
	timetable.GET("", requireAuth, timetableHandler.List)
	timetable.GET("/teacher/:userId", requireAuth, timetableHandler.TeacherTimetable)
	timetable.POST("/generate-comprehensive", requireAuth, middleware.RequireRoles(models.RoleAdmin), timetableHandler.GenerateComprehensive)

	tasks := api.Group("/tasks", requireAuth)
	tasks.GET("", timetableHandler.Tasks)
	tasks.GET("/teacher/:userId", timetableHandler.TeacherTasks)

	return r
}

func readinessChecks(c *app.Container) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return c.DB.PingContext(ctx) },
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	return checks
}
