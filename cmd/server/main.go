package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"StockDesk/internal/alert"
	"StockDesk/internal/auth"
	"StockDesk/internal/chat"
	"StockDesk/internal/config"
	"StockDesk/internal/logger"
	"StockDesk/internal/marketdata"
	"StockDesk/internal/scheduler"
	"StockDesk/internal/server"
	"StockDesk/internal/store"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("StockDesk starting")

	var fetcher marketdata.Fetcher
	if os.Getenv("USE_MOCK_DATA") == "true" {
		fetcher = &marketdata.MockFetcher{}
	} else {
		fetcher = marketdata.NewFireAntClient(marketdata.Options{
			AuthURL: cfg.FireAnt.AuthURL,
			APIURL:  cfg.FireAnt.APIURL,
			BaseURL: cfg.FireAnt.BaseURL,
			Proxy:   cfg.Proxy,
			RPS:     cfg.FireAnt.RPS,
		}, log)
	}
	log.Info("market data source", zap.String("name", fetcher.Name()))

	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer st.Close()

	authSvc := auth.NewService(st, log)
	llm := chat.NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model, log)
	chatSvc := chat.NewService(st, fetcher, llm, log)
	scanner := alert.NewScanner(fetcher, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(ctx, st, scanner, log)
	if err := sched.Register(cfg.Schedule.AlertCron); err != nil {
		log.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, scanning watchlist now")
		go sched.RunScanNow()
	}

	srv := server.New(cfg.Server.Addr, authSvc, st, fetcher, scanner, chatSvc, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
}
