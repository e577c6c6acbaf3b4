// Package main wires together the promo watcher service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/promowatch/promowatch/internal/api"
	"github.com/promowatch/promowatch/internal/clock"
	"github.com/promowatch/promowatch/internal/compositor"
	"github.com/promowatch/promowatch/internal/config"
	"github.com/promowatch/promowatch/internal/engine"
	"github.com/promowatch/promowatch/internal/logging"
	"github.com/promowatch/promowatch/internal/notify"
	"github.com/promowatch/promowatch/internal/promo"
	"github.com/promowatch/promowatch/internal/runner"
	"github.com/promowatch/promowatch/internal/scraper"
	"github.com/promowatch/promowatch/internal/storage/memory"
	"github.com/promowatch/promowatch/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer store.Close()

	scrape, err := newScraper(cfg, logger)
	if err != nil {
		logger.Fatal("scraper init failed", zap.Error(err))
	}
	defer scrape.Close()

	notifier, err := notify.NewTelegram(notify.TelegramConfig{
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
		Timeout: cfg.TelegramTimeout(),
	}, logger.Named("telegram"))
	if err != nil {
		logger.Fatal("notifier init failed", zap.Error(err))
	}

	compose := compositor.New(cfg.Cloudinary.CloudName, cfg.Cloudinary.Background)
	sysClock := clock.System{}

	decide := engine.New(
		store,
		notifier,
		sysClock,
		promo.ClassifyOptions{LinkChangeIsReal: cfg.Detect.LinkChangeIsReal},
		logger.Named("engine"),
	)

	watch := runner.New(
		runner.Config{
			SiteRoot:      cfg.Site.BaseURL,
			Interval:      cfg.RunInterval(),
			ScrapeTimeout: cfg.ScrapeTimeout(),
		},
		scrape,
		compose,
		store,
		decide,
		sysClock,
		logger.Named("runner"),
	)

	apiServer := api.NewServer(watch, watch, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go watch.Run(ctx)

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

type closableScraper interface {
	promo.Scraper
	Close()
}

func newScraper(cfg config.Config, logger *zap.Logger) (closableScraper, error) {
	scraperCfg := scraper.Config{
		SiteURL:           cfg.Site.BaseURL,
		Selector:          cfg.Site.Selector,
		UserAgent:         cfg.Scrape.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		SettleDelay:       cfg.SettleDelay(),
	}
	if cfg.Scrape.Mode == "static" {
		return scraper.NewStatic(scraperCfg, logger.Named("scraper"))
	}
	return scraper.NewHeadless(scraperCfg, logger.Named("scraper"))
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (promo.Store, error) {
	if cfg.DB.DSN == "" {
		logger.Info("using in-memory store")
		return memory.New(), nil
	}
	logger.Info("using postgres store")
	return postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: int32(cfg.DB.MaxConns),
		MinConns: int32(cfg.DB.MinConns),
	})
}
