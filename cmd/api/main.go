package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rosec/backend/internal/cache"
	"github.com/rosec/backend/internal/config"
	"github.com/rosec/backend/internal/database"
	"github.com/rosec/backend/internal/docstore"
	"github.com/rosec/backend/internal/handlers"
	"github.com/rosec/backend/internal/lib/slogcustom"
	"github.com/rosec/backend/internal/middleware"
	"github.com/rosec/backend/internal/models"
	"github.com/rosec/backend/internal/services"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// @title Rosec Exam Portal API
// @version 1.0
// @description Exam authoring, answer sheet rendering, scan proxy and result analytics
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}
	slog.SetDefault(slogcustom.NewLogger(os.Stdout, slogcustom.ParseLevel(cfg.Server.LogLevel), cfg.IsDevelopment()))

	if len(os.Args) > 1 {
		handleCommand(cfg, os.Args[1])
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}

	mongoClient, err := docstore.Connect(ctx, cfg.DocStore)
	if err != nil {
		fatal("failed to connect to document store", err)
	}
	defer mongoClient.Disconnect(context.Background())
	slog.Info("connected to document store", "database", cfg.DocStore.Database)

	var dashboardCache cache.DashboardCache
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, dashboards will not be cached", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			dashboardCache = cache.NewDashboardCache(rdb, cfg.Cache.AnalyticsTTL)
		}
	}

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(cors(cfg.CORS.Origins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "rosec-api"})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Rosec Exam Portal API", "status": "running"})
	})

	if cfg.Monitoring.PrometheusEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Services
	store := docstore.NewStore(mongoClient.Database(cfg.DocStore.Database))
	authService := services.NewAuthService(db, cfg)
	roleCache := services.NewRoleCache(services.UserRoleLoader(db), cfg.Server.RoleCacheTTL)
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db, authService, roleCache)
	examService := services.NewExamService(db)
	resultService := services.NewResultService(store, services.NewCatalogLookups(db), dashboardCache)
	scanService := services.NewScanService(services.NewScannerClient(cfg.Scanner), store, resultService)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, roleCache)
	userHandler := handlers.NewUserHandler(userService, auditService)
	classHandler := handlers.NewClassHandler(db, userService, auditService)
	subjectHandler := handlers.NewSubjectHandler(db, auditService)
	studentHandler := handlers.NewStudentHandler(db, auditService)
	examHandler := handlers.NewExamHandler(examService, auditService)
	sheetHandler := handlers.NewSheetHandler()
	scanHandler := handlers.NewScanHandler(scanService, examService)
	analyticsHandler := handlers.NewAnalyticsHandler(resultService)
	auditHandler := handlers.NewAuditHandler(auditService)

	authenticated := middleware.AuthMiddleware(authService, roleCache)

	// The scanning page posts here without the version prefix.
	r.POST("/api/scan", authenticated, middleware.RequireStaff(), scanHandler.Scan)

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", authenticated, authHandler.Me)
		}

		protected := v1.Group("")
		protected.Use(authenticated)
		{
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/users", userHandler.List)
				admin.POST("/users", userHandler.Create)
				admin.GET("/users/:id", userHandler.Get)
				admin.PUT("/users/:id", userHandler.Update)
				admin.DELETE("/users/:id", userHandler.Delete)

				admin.POST("/classes", classHandler.Create)
				admin.PUT("/classes/:id", classHandler.Update)
				admin.DELETE("/classes/:id", classHandler.Delete)
				admin.PUT("/classes/:id/teacher", classHandler.AssignTeacher)

				admin.POST("/subjects", subjectHandler.Create)
				admin.PUT("/subjects/:id", subjectHandler.Update)
				admin.DELETE("/subjects/:id", subjectHandler.Delete)

				admin.GET("/audit/recent", auditHandler.GetRecentActivity)
			}

			staff := protected.Group("")
			staff.Use(middleware.RequireStaff())
			{
				staff.GET("/classes", classHandler.List)
				staff.GET("/classes/levels", classHandler.GetLevels)
				staff.GET("/classes/:id", classHandler.Get)
				staff.GET("/classes/:id/students", classHandler.GetStudents)

				staff.GET("/subjects", subjectHandler.List)
				staff.GET("/subjects/:id", subjectHandler.Get)

				staff.GET("/students", studentHandler.List)
				staff.POST("/students", studentHandler.Create)
				staff.GET("/students/:id", studentHandler.Get)
				staff.PUT("/students/:id", studentHandler.Update)
				staff.DELETE("/students/:id", studentHandler.Delete)

				staff.GET("/exams", examHandler.List)
				staff.POST("/exams", examHandler.Create)
				staff.GET("/exams/:id", examHandler.Get)
				staff.PUT("/exams/:id", examHandler.Update)
				staff.DELETE("/exams/:id", examHandler.Delete)
				staff.PUT("/exams/:id/answer-key", examHandler.SaveAnswerKey)
				staff.POST("/exams/:id/answer-key/toggle", examHandler.ToggleAnswer)
				staff.DELETE("/exams/:id/answer-key", examHandler.ClearAnswerKey)
				staff.GET("/exams/:id/sheet", examHandler.Sheet)

				staff.POST("/sheets/preview", sheetHandler.Preview)
				staff.POST("/scan", scanHandler.Scan)

				staff.GET("/analytics/dashboard", analyticsHandler.Dashboard)
				staff.GET("/analytics/students/:studentId", analyticsHandler.Student)
			}
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("failed to start server", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
}

func cors(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed[origin] || allowed["*"] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func handleCommand(cfg *config.Config, cmd string) {
	db, err := database.Connect(cfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}

	switch cmd {
	case "migrate":
		if err := database.Migrate(db); err != nil {
			fatal("migration failed", err)
		}
		slog.Info("migration completed successfully")

	case "seed-admin":
		seedAdmin(db, cfg)

	default:
		slog.Error("unknown command", "command", cmd)
		os.Exit(2)
	}
}

// seedAdmin creates the first administrator. The password comes from
// SEED_ADMIN_SECRET so no default credential ships with the binary.
func seedAdmin(db *gorm.DB, cfg *config.Config) {
	authService := services.NewAuthService(db, cfg)

	var count int64
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		slog.Info("admin already exists")
		return
	}

	if len(cfg.Server.SeedAdminSecret) < 8 {
		fatal("cannot seed admin", errors.New("SEED_ADMIN_SECRET must be at least 8 characters"))
	}

	email := os.Getenv("SEED_ADMIN_EMAIL")
	if email == "" {
		email = "admin@rosec.local"
	}

	admin := &models.User{
		Email:    email,
		FullName: "Administrator",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := authService.CreateUser(context.Background(), admin, cfg.Server.SeedAdminSecret); err != nil {
		fatal("failed to create admin", err)
	}

	slog.Info("admin created", "email", admin.Email)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
