package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"book-discovery/internal/agent"
	"book-discovery/internal/cache"
	"book-discovery/internal/config"
	"book-discovery/internal/covers"
	"book-discovery/internal/discovery"
	"book-discovery/internal/handler"
	"book-discovery/internal/logger"
	"book-discovery/internal/pdf"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("[FATAL] Invalid configuration: %v", err)
	}
	logger.Setup(cfg.IsProduction())
	logrus.Infof("[INFO] Starting book discovery env=%s provider=%s", cfg.Server.Env, cfg.LLM.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{}

	llm, err := agent.NewLLMClient(ctx, cfg.LLM, httpClient)
	if err != nil {
		logrus.Warnf("[WARN] LLM unavailable: %v", err)
		logrus.Warn("[WARN] Every search will return an empty result")
	} else {
		logrus.Infof("[INFO] LLM client ready model=%s", llm.Model())
	}

	recCache := cache.New(cfg.Cache.TTL)
	recCache.Start(ctx)
	defer recCache.Stop()

	recommender := agent.NewRecommender(llm, recCache, agent.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		TopP:        cfg.LLM.TopP,
		Timeout:     cfg.LLM.Timeout,
	})

	coverResolver := covers.NewResolver(httpClient, covers.Options{
		GoogleBooksAPIKey:  cfg.Covers.GoogleBooksAPIKey,
		SearchTimeout:      cfg.Covers.SearchTimeout,
		ExistenceTimeout:   cfg.Covers.ExistenceTimeout,
		GoogleBooksTimeout: cfg.Covers.GoogleBooksTimeout,
	})

	pdfLocator := pdf.NewLocator(httpClient, pdf.Options{
		APIKey:   cfg.Search.APIKey,
		EngineID: cfg.Search.EngineID,
		Results:  cfg.Search.Results,
		Timeout:  cfg.Search.Timeout,
	})
	if !pdfLocator.Enabled() {
		logrus.Warn("[WARN] Google search credentials not set, PDF lookup disabled")
	}

	service := discovery.NewService(recommender, discovery.NewConverter(coverResolver, pdfLocator))

	health := handler.NewHealthHandler(llm != nil, pdfLocator.Enabled())
	search := handler.NewSearchHandler(service)
	r := newRouter(cfg, health, search)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("[INFO] Server ready port=%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("[FATAL] Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("[INFO] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), handler.SearchTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("[ERROR] Graceful shutdown failed: %v", err)
	}
}
