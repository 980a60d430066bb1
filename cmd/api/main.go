package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"video-recipe-go/internal/api"
	"video-recipe-go/internal/app"
	"video-recipe-go/internal/config"
	"video-recipe-go/internal/logger"
)

const shutdownGrace = 5 * time.Second

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "video-recipe-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	a := app.Build(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(a.Processor, a.Options, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.PipelineTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
		// in-flight runs are cancelled on signal and unwind their sessions
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	stopWatch := a.Sessions.ReleaseOnCancel(ctx, shutdownGrace)
	defer stopWatch()

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}
