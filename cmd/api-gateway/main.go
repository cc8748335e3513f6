package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/school-records-api/api/swagger"
	"github.com/noah-isme/school-records-api/internal/handler"
	"github.com/noah-isme/school-records-api/internal/middleware"
	"github.com/noah-isme/school-records-api/internal/models"
	"github.com/noah-isme/school-records-api/internal/repository"
	"github.com/noah-isme/school-records-api/internal/service"
	"github.com/noah-isme/school-records-api/pkg/cache"
	"github.com/noah-isme/school-records-api/pkg/config"
	"github.com/noah-isme/school-records-api/pkg/database"
	"github.com/noah-isme/school-records-api/pkg/jobs"
	"github.com/noah-isme/school-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-records-api/pkg/middleware/requestid"
)

// @title School Records API
// @version 1.0.0
// @description Academic records service: students, courses, enrollments, grades.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	accessSvc := service.NewAccessService(studentRepo, logr)
	gradeSvc := service.NewGradeService(enrollmentRepo, studentRepo, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, accessSvc, dashboardSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, accessSvc, dashboardSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, teacherRepo, accessSvc, dashboardSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, accessSvc, gradeSvc, validate, logr)

	// Background GPA recalculation.
	gpaQueue := jobs.NewQueue("gpa_recalc", func(ctx context.Context, job jobs.Job) error {
		if err := gradeSvc.HandleJob(ctx, job); err != nil {
			return err
		}
		metricsSvc.RecordGPARecalc()
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.GPAWorker.Workers,
		BufferSize: cfg.GPAWorker.BufferSize,
		MaxRetries: cfg.GPAWorker.MaxRetries,
		RetryDelay: cfg.GPAWorker.RetryDelay,
		Logger:     logr,
	})
	gradeSvc.AttachQueue(gpaQueue)

	queueCtx, queueCancel := context.WithCancel(context.Background())
	gpaQueue.Start(queueCtx)
	defer func() {
		queueCancel()
		gpaQueue.Stop()
	}()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	admin := string(models.RoleAdmin)
	teacherRole := string(models.RoleTeacher)
	studentRole := string(models.RoleStudent)

	users := protected.Group("/users")
	users.Use(middleware.RBAC(admin))
	{
		users.GET("", userHandler.List)
		users.POST("", middleware.Audit(userRepo, models.AuditActionProfileCreate, "user"), userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", middleware.Audit(userRepo, models.AuditActionProfileUpdate, "user"), userHandler.Update)
		users.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionProfileDelete, "user"), userHandler.Delete)
	}

	students := protected.Group("/students")
	{
		students.GET("", middleware.RBAC(admin, teacherRole), studentHandler.List)
		students.GET("/me", middleware.RBAC(studentRole), studentHandler.GetOwn)
		students.GET("/:id", studentHandler.Get)
		students.GET("/:id/transcript", studentHandler.Transcript)
		students.POST("", middleware.RBAC(admin), middleware.Audit(userRepo, models.AuditActionProfileCreate, "student"), studentHandler.Create)
		students.PUT("/:id", middleware.RBAC(admin, teacherRole), middleware.Audit(userRepo, models.AuditActionProfileUpdate, "student"), studentHandler.Update)
		students.DELETE("/:id", middleware.RBAC(admin), middleware.Audit(userRepo, models.AuditActionProfileDelete, "student"), studentHandler.Delete)
	}

	teachers := protected.Group("/teachers")
	{
		teachers.GET("", middleware.RBAC(admin, teacherRole), teacherHandler.List)
		teachers.GET("/me", middleware.RBAC(teacherRole), teacherHandler.GetOwn)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.POST("", middleware.RBAC(admin), middleware.Audit(userRepo, models.AuditActionProfileCreate, "teacher"), teacherHandler.Create)
		teachers.PUT("/:id", middleware.RBAC(admin, teacherRole), middleware.Audit(userRepo, models.AuditActionProfileUpdate, "teacher"), teacherHandler.Update)
		teachers.DELETE("/:id", middleware.RBAC(admin), middleware.Audit(userRepo, models.AuditActionProfileDelete, "teacher"), teacherHandler.Delete)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", middleware.RBAC(admin), middleware.Audit(userRepo, models.AuditActionCourseCreate, "course"), courseHandler.Create)
		courses.PUT("/:id", middleware.RBAC(admin, teacherRole), middleware.Audit(userRepo, models.AuditActionCourseUpdate, "course"), courseHandler.Update)
		courses.DELETE("/:id", middleware.RBAC(admin), middleware.Audit(userRepo, models.AuditActionCourseDelete, "course"), courseHandler.Delete)
	}

	enrollments := protected.Group("/enrollments")
	{
		enrollments.GET("", enrollmentHandler.List)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.POST("", middleware.Audit(userRepo, models.AuditActionEnrollmentCreate, "enrollment"), enrollmentHandler.Enroll)
		enrollments.PATCH("/:id/status", middleware.RBAC(admin, teacherRole), middleware.Audit(userRepo, models.AuditActionEnrollmentUpdate, "enrollment"), enrollmentHandler.UpdateStatus)
		enrollments.PATCH("/:id/grade", middleware.RBAC(admin, teacherRole), middleware.Audit(userRepo, models.AuditActionEnrollmentUpdate, "enrollment"), enrollmentHandler.AssignGrade)
		enrollments.DELETE("/:id", middleware.RBAC(admin, teacherRole), middleware.Audit(userRepo, models.AuditActionEnrollmentDelete, "enrollment"), enrollmentHandler.Delete)
	}

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard/stats", middleware.RBAC(admin, teacherRole), dashboardHandler.Stats)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
