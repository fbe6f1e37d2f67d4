package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/layer-3/cobic/adapters/tokenizer"
	"github.com/layer-3/cobic/config"
	"github.com/layer-3/cobic/logging"
	"github.com/layer-3/cobic/sandbox"
	transport "github.com/layer-3/cobic/transport/http"
)

func main() {
	logger := logging.NewLogger(os.Getenv("COBIC_LOG_LEVEL"))
	config.LoadEnv(logger)

	cfg, err := config.Load(os.Getenv("COBIC_CONFIG"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	logger = logging.New(logging.FormatJSON, cfg.LogLevel)
	if cfg.LogLevel != "debug" && cfg.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	sc := cfg.Sandbox
	opts := sandbox.DefaultOptions()
	opts.MiningCooldown = sc.MiningCooldown
	opts.CheckInCooldown = sc.CheckInCooldown
	opts.Logger = logger.WithField("component", "sandbox")
	if opts.MiningReward, err = decimal.NewFromString(sc.MiningReward); err != nil {
		logger.WithError(err).Fatal("Invalid sandbox.mining_reward")
	}
	if opts.CheckInReward, err = decimal.NewFromString(sc.CheckInReward); err != nil {
		logger.WithError(err).Fatal("Invalid sandbox.checkin_reward")
	}

	tk := tokenizer.NewJWTTokenizer([]byte(sc.JWTSecret), sc.TokenTTL)
	backend := sandbox.NewBackend(tk, opts)

	// Setup Gin router
	router := transport.SetupRouter(backend, logger.WithField("component", "http"))
	srv := &http.Server{
		Addr:              sc.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithField("addr", sc.Addr).Info("Sandbox listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}
