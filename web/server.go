package web

import (
	"context"
	"net/http"
	"time"

	"medquery/agent"
	"medquery/config"
	"medquery/database"
	"medquery/web/handlers"
	"medquery/web/middleware"
	"medquery/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	agent   *agent.Agent
	store   *database.PostgresStore
	logger  *zap.Logger
	config  *config.Config
	limiter *middleware.CallerRateLimiter
}

func NewServer(ag *agent.Agent, store *database.PostgresStore, logger *zap.Logger, cfg *config.Config) (*Server, error) {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		// Add logger to context
		c.Set("logger", logger)
		c.Next()
	})

	server := &Server{
		router: router,
		agent:  ag,
		store:  store,
		logger: logger,
		config: cfg,
	}

	if err := server.setupRoutes(); err != nil {
		return nil, err
	}
	return server, nil
}

func (s *Server) setupRoutes() error {
	auth, err := middleware.NewAuthenticator(s.config.JWTSecret, s.config.AuthCacheEntries, s.logger)
	if err != nil {
		return err
	}

	s.limiter = middleware.NewCallerRateLimiter(middleware.RateLimiterConfig{
		QueriesPerMinute: s.config.RateLimitQueriesPerMin,
		UploadsPerHour:   s.config.RateLimitUploadsPerHr,
		BurstSize:        s.config.RateLimitBurstSize,
		CleanupInterval:  5 * time.Minute,
	}, s.logger)

	ragHandler := handlers.NewRAGHandler(s.agent,
		agent.PatientProfile(s.config), agent.StaffProfile(s.config), s.logger)

	pdfService := services.NewPDFService(s.logger, 0)
	docHandler := handlers.NewDocumentHandler(s.store, pdfService, s.config.UploadDir, s.logger)

	s.router.Static("/uploads", s.config.UploadDir)

	rag := s.router.Group("/rag")
	{
		rag.GET("/health", ragHandler.Health)
		rag.POST("/chat",
			auth.Middleware(middleware.RolePatient),
			middleware.RateLimitMiddleware(s.limiter, "query"),
			ragHandler.PatientChat)
		rag.POST("/query",
			auth.Middleware(middleware.RoleStaff),
			middleware.RateLimitMiddleware(s.limiter, "query"),
			ragHandler.StaffQuery)
	}

	s.router.POST("/documents",
		auth.Middleware(middleware.RolePatient, middleware.RoleStaff),
		middleware.RateLimitMiddleware(s.limiter, "upload"),
		docHandler.Upload)

	return nil
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return srv.Shutdown(context.Background())
}
