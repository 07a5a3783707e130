package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/api/handlers"
	"github.com/zoe-motors/storefront-api/config"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Initialize(ctx); err != nil { //initialize database and router
		zap.S().Fatalw("failed to initialize", "error", err)
	}

	go func() {
		if err := a.Hub.Run(ctx); err != nil {
			zap.S().Errorw("live hub stopped", "error", err)
		}
	}()
	if err := a.Scheduler.Start(); err != nil {
		zap.S().Errorw("admin digest disabled", "error", err)
	}

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%v", a.Config.Port),
		Handler: gorillahandlers.LoggingHandler(os.Stdout, cors(a.Router)),
	}

	go func() {
		zap.S().Infow("storefront-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	zap.S().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnw("graceful shutdown failed", "error", err)
	}
	a.Close(shutdownCtx)
	_ = zap.S().Sync()
}
