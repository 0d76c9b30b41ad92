package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/havenhq/haven-ai-platform/internal/api/router"
	"github.com/havenhq/haven-ai-platform/internal/chat"
	appconfig "github.com/havenhq/haven-ai-platform/internal/config"
	"github.com/havenhq/haven-ai-platform/internal/http/handlers"
	"github.com/havenhq/haven-ai-platform/internal/llm"
	"github.com/havenhq/haven-ai-platform/internal/notify"
	"github.com/havenhq/haven-ai-platform/internal/observability/metrics"
	"github.com/havenhq/haven-ai-platform/internal/review"
	"github.com/havenhq/haven-ai-platform/internal/safety"
	"github.com/havenhq/haven-ai-platform/pkg/logging"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting haven-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to reach redis", "error", err)
		os.Exit(1)
	}

	llmClient, responderModel, closeLLM, err := buildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	criticModel := cfg.CriticModel
	if criticModel == "" {
		criticModel = responderModel
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	safetyMetrics := metrics.NewSafetyMetrics(reg)

	messageStore := chat.NewMessageStore(db)
	historyStore := chat.NewHistoryStore(redisClient, otel.Tracer("haven.cmd.api"))
	feedbackStore := review.NewFeedbackStore(db, cfg.FeedbackMemoryLimit)
	reviewStore := review.NewStore(db)

	detector := safety.NewDetector(safety.DefaultRuleConfig())
	critic := safety.NewCriticAdapter(llmClient, criticModel, cfg.CriticTimeout, logger)
	responder := chat.NewResponder(llmClient, responderModel, cfg.ResponderTimeout, logger)

	var notifier chat.FlagNotifier
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		if n := notify.NewReviewerNotifier(sender, cfg.ReviewerEmail, logger); n != nil {
			notifier = n
		}
	}
	if notifier == nil {
		logger.Warn("reviewer email notifications disabled", "reason", "sendgrid or reviewer address not configured")
	}

	chatService := chat.NewService(chat.ServiceConfig{
		Messages:  messageStore,
		History:   historyStore,
		Responder: responder,
		Detector:  detector,
		Critic:    critic,
		Feedback:  feedbackStore,
		Notifier:  notifier,
		Metrics:   safetyMetrics,
		Logger:    logger,
	})
	workflow := review.NewWorkflow(messageStore, reviewStore, feedbackStore, safetyMetrics, logger)

	chatHandler := handlers.NewChatHandler(chatService, messageStore, logger)
	reviewHandler := handlers.NewReviewHandler(workflow, reviewStore, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		ReviewHandler:      reviewHandler,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLLMClient selects the responder backend from configuration. When
// both OpenAI and Gemini are configured, the non-primary one backs a
// fallback client so a provider outage degrades instead of failing.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (llm.Client, string, func(), error) {
	closeNoop := func() {}

	newOpenAI := func() (llm.Client, string, error) {
		c, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, "", err
		}
		return c, cfg.OpenAIModel, nil
	}
	newGemini := func() (llm.Client, string, func(), error) {
		c, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", nil, err
		}
		return c, cfg.GeminiModel, func() { _ = c.Close() }, nil
	}

	switch cfg.LLMProvider {
	case "openai":
		primary, model, err := newOpenAI()
		if err != nil {
			return nil, "", nil, err
		}
		if cfg.GeminiAPIKey != "" {
			fallback, _, closeFn, err := newGemini()
			if err != nil {
				logger.Warn("gemini fallback unavailable", "error", err)
				return primary, model, closeNoop, nil
			}
			return llm.NewFallbackClient(primary, fallback, logger.Logger), model, closeFn, nil
		}
		return primary, model, closeNoop, nil

	case "gemini":
		primary, model, closeFn, err := newGemini()
		if err != nil {
			return nil, "", nil, err
		}
		if cfg.OpenAIAPIKey != "" {
			fallback, _, err := newOpenAI()
			if err != nil {
				logger.Warn("openai fallback unavailable", "error", err)
				return primary, model, closeFn, nil
			}
			return llm.NewFallbackClient(primary, fallback, logger.Logger), model, closeFn, nil
		}
		return primary, model, closeFn, nil

	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, "", nil, fmt.Errorf("load aws config: %w", err)
		}
		client, err := llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		if err != nil {
			return nil, "", nil, err
		}
		return client, cfg.BedrockModelID, closeNoop, nil

	default:
		return nil, "", nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
