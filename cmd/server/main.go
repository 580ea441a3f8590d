package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/suPer8Hu/mirror/internal/ai"
	"github.com/suPer8Hu/mirror/internal/chat"
	"github.com/suPer8Hu/mirror/internal/config"
	"github.com/suPer8Hu/mirror/internal/db"
	"github.com/suPer8Hu/mirror/internal/httpapi"
	"github.com/suPer8Hu/mirror/internal/logging"
	"github.com/suPer8Hu/mirror/internal/memory"
	"github.com/suPer8Hu/mirror/internal/observability"
	"github.com/suPer8Hu/mirror/internal/store/rabbitmq"
	"github.com/suPer8Hu/mirror/internal/store/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	reg := newRegistry(cfg)
	memories := memory.NewRepo(gdb)
	opts := []chat.Option{
		chat.WithLogger(log),
		chat.WithMetrics(observability.NewMetrics(cfg.MetricsNamespace, nil)),
		chat.WithHistoryLimit(cfg.ChatHistoryLimit),
		chat.WithRecallLimit(cfg.MemoryRecallLimit),
	}

	switch cfg.SessionLock {
	case "redis":
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rds.Close()
		if err := rds.Ping(context.Background()); err != nil {
			log.Fatal("redis ping", zap.Error(err))
		}
		opts = append(opts, chat.WithLocker(rds.SessionLocker(cfg.SessionLockTimeout)))
	default:
		opts = append(opts, chat.WithLocker(chat.NewLocalLocker()))
	}

	if cfg.MemoryMode == "async" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatal("rabbit publisher", zap.Error(err))
		}
		defer pub.Close()
		opts = append(opts, chat.WithRecorder(memory.NewAsyncRecorder(pub, memory.DefaultExtractor())))
	}

	svc := chat.NewService(chat.NewRepo(gdb), memories, reg, opts...)
	r := httpapi.NewRouter(gdb, cfg, svc, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("provider", cfg.AIProvider),
			zap.String("memory_mode", cfg.MemoryMode),
			zap.String("session_lock", cfg.SessionLock),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

// newRegistry registers every backend; sessions route by their provider and
// model, everything else uses cfg.AIProvider.
func newRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})

	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		if cfg.OpenRouterAPIKey == "" {
			return nil, errors.New("OPENROUTER_API_KEY is not set")
		}
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	reg.Register("openai", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenAIModel
		}
		return ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, m)
	})

	reg.SetDefault(cfg.AIProvider, "")
	return reg
}
