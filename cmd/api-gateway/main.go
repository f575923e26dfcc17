package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lesson-scheduler-api/api/swagger"
	"github.com/noah-isme/lesson-scheduler-api/internal/handler"
	"github.com/noah-isme/lesson-scheduler-api/internal/middleware"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/repository"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	"github.com/noah-isme/lesson-scheduler-api/pkg/cache"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	"github.com/noah-isme/lesson-scheduler-api/pkg/database"
	"github.com/noah-isme/lesson-scheduler-api/pkg/jobs"
	"github.com/noah-isme/lesson-scheduler-api/pkg/logger"
	"github.com/noah-isme/lesson-scheduler-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/lesson-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lesson-scheduler-api/pkg/middleware/requestid"
)

// @title Lesson Scheduler API
// @version 1.0.0
// @description Availability, booking and reminder engine for driving lessons
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type handlers struct {
	lessons       *handler.LessonHandler
	availability  *handler.AvailabilityHandler
	calendar      *handler.CalendarHandler
	notifications *handler.NotificationHandler
	reminders     *handler.ReminderHandler
	preferences   *handler.ReminderPreferenceHandler
	metrics       *handler.MetricsHandler
}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	checks := map[string]handler.Pinger{"postgres": db}

	// A nil client must stay an untyped nil so the cache and publisher see "disabled".
	var redisClient redis.UniversalClient
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, calendar cache and broadcasts disabled", zap.Error(err))
	} else {
		redisClient = client
		defer client.Close()
		checks["redis"] = redisPinger{client}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	loc := cfg.Scheduling.Location()
	if tz := cfg.Scheduling.Timezone; tz != "" && loc.String() != tz {
		logr.Warn("unknown scheduling timezone, using UTC", zap.String("timezone", tz))
	}

	lessonRepo := repository.NewLessonRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var cacheRepo service.CacheRepository
	var publisher *cache.Publisher
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		publisher = cache.NewPublisher(redisClient, cfg.Notifications.Channel)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Calendar.CacheTTL, logr, cfg.Calendar.CacheEnabled)
	if cfg.Database.AutoMigrate {
		// feeds cached by a previous release may predate the current schema
		_ = cacheSvc.Invalidate(ctx, "calendar:*")
	}

	notificationSvc := service.NewNotificationService(notificationRepo, publisher, logr)
	calendarSvc := service.NewCalendarService(lessonRepo, cacheSvc, cfg.Calendar, logr, nil, nil)
	schedulingSvc := service.NewSchedulingService(lessonRepo, userRepo, userRepo, notificationSvc, calendarSvc, metricsSvc, cfg.Scheduling, validate, logr)
	availabilitySvc := service.NewAvailabilityService(userRepo, lessonRepo, cfg.Scheduling, validate, logr)
	preferenceSvc := service.NewReminderPreferenceService(userRepo, validate, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	sender, err := mailer.NewSMTPSender(cfg.Mail)
	if err != nil {
		logr.Fatal("failed to configure smtp", zap.Error(err))
	}
	mailDispatcher := service.NewMailDispatcher(sender, jobs.QueueConfig{
		Workers:    cfg.Reminders.Workers,
		MaxRetries: cfg.Reminders.Retries,
		RetryDelay: cfg.Reminders.RetryDelay,
		Logger:     logr,
	})
	// deliveries outlive the signal context so Stop can drain queued reminders
	mailDispatcher.Start(context.Background())

	reminderSvc := service.NewReminderService(lessonRepo, mailDispatcher, metricsSvc, cfg.Reminders, loc, logr)

	scheduler := jobs.NewCron(loc, logr)
	if cfg.Reminders.Enabled {
		if err := scheduler.Register("lesson-reminders", cfg.Reminders.Cron, reminderSvc.Run); err != nil {
			logr.Fatal("failed to schedule reminders", zap.Error(err))
		}
		scheduler.Start()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	registerRoutes(r, cfg, authSvc, handlers{
		lessons:       handler.NewLessonHandler(schedulingSvc),
		availability:  handler.NewAvailabilityHandler(availabilitySvc),
		calendar:      handler.NewCalendarHandler(calendarSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		reminders:     handler.NewReminderHandler(reminderSvc),
		preferences:   handler.NewReminderPreferenceHandler(preferenceSvc),
		metrics:       handler.NewMetricsHandler(metricsSvc, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	mailDispatcher.Stop(shutdownCtx)
}

func registerRoutes(r *gin.Engine, cfg *config.Config, auth *service.AuthService, h handlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(auth))

	student := middleware.RequireRoles(models.RoleStudent)
	instructor := middleware.RequireRoles(models.RoleInstructor)
	admin := middleware.RequireRoles()

	lessons := api.Group("/lessons")
	lessons.POST("", student, h.lessons.Book)
	lessons.POST("/:id/cancel", student, h.lessons.Cancel)
	lessons.POST("/:id/reschedule", student, h.lessons.Reschedule)
	lessons.POST("/:id/complete", instructor, h.lessons.Complete)

	instructors := api.Group("/instructors")
	instructors.PUT("/me/availability", instructor, h.availability.UpdateMine)
	instructors.GET("/:id/availability", h.availability.Get)
	instructors.GET("/:id/slots", h.availability.Slots)

	students := api.Group("/students", student)
	students.GET("/me/reminders", h.preferences.GetMine)
	students.PUT("/me/reminders", h.preferences.UpdateMine)

	calendar := api.Group("/calendar", middleware.WithResponseMeta())
	calendar.GET("/student", student, h.calendar.Student)
	calendar.GET("/instructor", instructor, h.calendar.Instructor)
	calendar.GET("/:role/export", h.calendar.Export)

	notifications := api.Group("/notifications")
	notifications.GET("", h.notifications.List)
	notifications.POST("/:id/read", h.notifications.MarkRead)

	api.POST("/reminders/sweep", admin, h.reminders.Sweep)
	api.GET("/metrics/summary", admin, h.metrics.Summary)
}

type redisPinger struct {
	client redis.UniversalClient
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
