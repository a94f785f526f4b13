package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/service"
	"github.com/reelforge/reelforge/internal/service/generator"
	"github.com/reelforge/reelforge/internal/service/media"
	"github.com/reelforge/reelforge/internal/service/notify"
	"github.com/reelforge/reelforge/internal/service/publisher"
	"github.com/reelforge/reelforge/internal/service/render"
	"github.com/reelforge/reelforge/internal/service/voice"
	"github.com/reelforge/reelforge/internal/store"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Store      store.Store
	Pipeline   *pipeline.Router
	Correlator *pipeline.Correlator
	Sweeper    *pipeline.Sweeper
	Producer   *pipeline.Producer
	Reporter   *pipeline.Reporter
	Scheduler  *service.Scheduler
	Telegram   *notify.Telegram
	Auth       *service.AuthService
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	postStore := store.NewGormStore(db)

	// Notification channels
	telegram := notify.NewTelegram(&cfg.Telegram, logger)
	whatsapp := notify.NewWhatsApp(&cfg.WhatsApp, logger)
	notifier := notify.NewMulti(logger, telegram, whatsapp)

	// Collaborator clients
	gen := generator.NewClient(&cfg.Generator, logger)
	engine := render.NewClient(&cfg.Render, logger)
	synthesizer := voice.NewClient(&cfg.Voice, logger)
	storage, err := media.NewMinioStorage(&cfg.Media, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media storage: %w", err)
	}
	instagram := publisher.NewInstagram(&cfg.Instagram, logger)
	auth := service.NewAuthService(logger, cfg.Server.OperatorToken, cfg.Server.OperatorTOTPSecret)

	// Orchestration core
	correlator := pipeline.NewCorrelator(postStore, engine, synthesizer, storage, notifier, logger)
	router := pipeline.NewRouter(postStore, gen, correlator, instagram, notifier, cfg.Pipeline.PublishHourUTC, logger)
	sweeper := pipeline.NewSweeper(postStore, router, logger)
	producer := pipeline.NewProducer(postStore, gen, router, notifier, cfg.Pipeline.DailyVariants, logger)
	reporter := pipeline.NewReporter(postStore, instagram, notifier, logger)
	scheduler := service.NewScheduler(&cfg.Scheduler, logger, sweeper)

	// Create router
	ginRouter := gin.New()

	srv := &Server{
		Config:     cfg,
		DB:         db,
		Router:     ginRouter,
		Logger:     logger,
		Store:      postStore,
		Pipeline:   router,
		Correlator: correlator,
		Sweeper:    sweeper,
		Producer:   producer,
		Reporter:   reporter,
		Scheduler:  scheduler,
		Telegram:   telegram,
		Auth:       auth,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		// Inbound webhooks, each guarded by its own channel secret
		api.POST("/render/webhook", s.handleRenderWebhook)
		api.POST("/telegram/webhook", s.handleTelegramWebhook)
		api.POST("/whatsapp/webhook", s.handleWhatsAppWebhook)
		api.GET("/whatsapp/action", s.handleWhatsAppAction)

		// Cadence endpoints driven by external cron
		cron := api.Group("/cron", s.bearerAuth(s.Config.Server.CronSecret))
		{
			cron.GET("/daily", s.handleCronDaily)
			cron.GET("/reminder", s.handleCronReminder)
			cron.GET("/video-reminder", s.handleCronVideoReminder)
			cron.GET("/publish", s.handleCronPublish)
			cron.GET("/weekly-report", s.handleCronWeeklyReport)
		}

		// Operator API
		posts := api.Group("/posts", s.Auth.Middleware())
		{
			posts.GET("", s.handleListPosts)
			posts.GET("/:id", s.handleGetPost)
			posts.POST("/:id/clips", s.handleAttachClips)
			posts.POST("/:id/render", s.handleStartRender)
			posts.POST("/:id/schedule", s.handleSchedule)
			posts.POST("/:id/cancel-schedule", s.handleCancelSchedule)
			posts.POST("/:id/publish", s.handlePublishNow)
		}
	}
}

// bearerAuth checks one shared secret per inbound surface. An empty
// configured secret disables the check for local development.
func (s *Server) bearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start scheduler
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop scheduler first
	s.Scheduler.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
