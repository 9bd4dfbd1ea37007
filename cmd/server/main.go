package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/config"
	"github.com/yukikurage/taxoffice-api/internal/database"
	"github.com/yukikurage/taxoffice-api/internal/handlers"
	"github.com/yukikurage/taxoffice-api/internal/idgen"
	"github.com/yukikurage/taxoffice-api/internal/logger"
	"github.com/yukikurage/taxoffice-api/internal/metrics"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Open(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			zlog.Warn("failed to close database", zap.Error(err))
		}
	}()

	// Run migrations
	if err := database.Migrate(db, zlog); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}

	policy, err := authz.NewPolicy()
	if err != nil {
		zlog.Fatal("failed to build authorization policy", zap.Error(err))
	}
	node, err := idgen.NewNode(cfg.NodeID)
	if err != nil {
		zlog.Fatal("failed to create id generator", zap.Error(err))
	}
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.TokenTTL)
	m := metrics.New()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Initialize AI service; nil when OPENAI_API_KEY is unset
	aiService := services.NewAIService(cfg.OpenAIAPIKey)
	if aiService == nil {
		zlog.Info("AI subtask suggestions disabled")
	}

	// Services
	auditService := services.NewAuditService(auditRepo, policy, node, m, zlog)
	authService := services.NewAuthService(userRepo, tokens)
	clientService := services.NewClientService(clientRepo, userRepo, policy, auditService)
	invoiceService := services.NewInvoiceService(invoiceRepo, clientRepo, policy, auditService, m)
	paymentService := services.NewPaymentService(db, paymentRepo, invoiceRepo, policy, auditService, m)
	taskService := services.NewTaskService(taskRepo, userRepo, clientRepo, policy, auditService, aiService)
	userService := services.NewUserService(userRepo, policy, auditService)
	reportService := services.NewReportService(clientRepo, invoiceRepo, paymentRepo, taskRepo, userRepo, policy)

	router := handlers.NewRouter(handlers.RouterDeps{
		Log:      zlog,
		Tokens:   tokens,
		Metrics:  m,
		Auth:     handlers.NewAuthHandler(authService, cfg.IsProduction(), zlog),
		Clients:  handlers.NewClientHandler(clientService, zlog),
		Invoices: handlers.NewInvoiceHandler(invoiceService, zlog),
		Payments: handlers.NewPaymentHandler(paymentService, invoiceService, zlog),
		Tasks:    handlers.NewTaskHandler(taskService, zlog),
		Subtasks: handlers.NewSubtaskHandler(taskService, zlog),
		Users:    handlers.NewUserHandler(userService, zlog),
		Reports:  handlers.NewReportHandler(reportService, zlog),
		Audit:    handlers.NewAuditHandler(auditService, zlog),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zlog.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
