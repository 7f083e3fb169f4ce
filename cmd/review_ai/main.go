package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"review-ai/internal/middleware/logger"
	"review-ai/internal/review_ai/api"
	"review-ai/internal/review_ai/catalog"
	"review-ai/internal/review_ai/llm"
	"review-ai/internal/review_ai/metrics"
	"review-ai/internal/review_ai/processor"
	"review-ai/internal/review_ai/scheduler"
	"review-ai/internal/review_ai/scraper"
	"review-ai/internal/review_ai/store"
	"review-ai/pkg/config"
)

func main() {
	path := flag.String("config", "", "path to the YAML config file")
	flag.Parse()
	if *path == "" {
		*path = os.Getenv("CONFIG_PATH")
	}
	if *path == "" {
		*path = config.DefaultPath
	}

	cfg, err := config.LoadConfig(*path)
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Mode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting review AI service...", zap.String("config", *path), zap.String("storage", cfg.Storage.Backend))

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal("Storage unavailable", zap.Error(err))
	}

	provider, err := llm.New(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.Key(),
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn("LLM API key not set, summary generation disabled")
	case err != nil:
		log.Fatal("LLM provider", zap.Error(err))
	default:
		log.Info("LLM provider ready", zap.String("provider", provider.Name()))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	reviews := store.NewReviewStore(backend)
	summaries := store.NewSummaryStore(backend)
	cat := catalog.New(backend)

	scrape := &processor.Scraper{
		Log:        log,
		Reviews:    reviews,
		Storage:    backend,
		Catalog:    cat,
		Normalizer: processor.NewNormalizer(nil),
		Extractor:  scraper.NewExtractor(log),
		Metrics:    m,
		Shop: scraper.SessionOptions{
			Domain:      cfg.Shop.StorefrontHost(),
			Password:    cfg.Shop.Password,
			PageTimeout: cfg.Scrape.PageTimeout,
		},
		MaxProducts: cfg.Scrape.MaxProducts,
		Delay:       cfg.Scrape.Delay,
	}

	gen := processor.NewSummaryGenerator(log, reviews, summaries, provider)
	gen.Metrics = m
	gen.MaxReviews = cfg.LLM.MaxReviews
	bulk := &processor.BulkSummarizer{Log: log, Reviews: reviews, Generator: gen, Delay: cfg.LLM.Delay}

	products := processor.NewProductSummarizer(log, backend, summaries, provider)
	products.Metrics = m
	products.Delay = cfg.LLM.Delay

	gin.SetMode(cfg.Server.GinMode)
	srv := &api.Server{
		Log:       log,
		Storage:   backend,
		Reviews:   reviews,
		Summaries: summaries,
		Catalog:   cat,
		Sync: &catalog.ShopifySync{
			Log:         log,
			Products:    backend,
			ShopDomain:  cfg.Shop.Domain,
			APIVersion:  cfg.Shop.APIVersion,
			AccessToken: cfg.Shop.AccessToken,
		},
		Scraper:   scrape,
		Importer:  &processor.Importer{Log: log, Reviews: reviews, Normalizer: processor.NewNormalizer(nil), Metrics: m},
		Generator: gen,
		Bulk:      bulk,
		Products:  products,
		Gatherer:  prometheus.DefaultGatherer,
	}
	// Router wires the proxy cache purge into the generators, so the worker
	// starts after it.
	r := srv.Router()
	_ = r.SetTrustedProxies(nil)

	if cfg.Scrape.Interval > 0 {
		worker := &scheduler.Worker{
			Log:        log,
			Jobs:       []scheduler.Job{scheduler.ScrapeJob(log, scrape), scheduler.SummaryJob(log, bulk)},
			Every:      cfg.Scrape.Interval,
			Location:   cfg.Scrape.Location(),
			RunAtStart: cfg.Scrape.RunAtStart,
		}
		go worker.Run(ctx)
	}

	httpSrv := &http.Server{Addr: cfg.Server.ListenAddr(), Handler: r}
	go func() {
		log.Info("Review AI service is running", zap.String("address", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown", zap.Error(err))
	}
	if err := backend.Close(shutdownCtx); err != nil {
		log.Error("Storage close", zap.Error(err))
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	if cfg.Storage.Backend == "memory" {
		return store.NewMemoryBackend(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	defer cancel()
	return store.NewMongoBackend(ctx, store.MongoOptions{
		URI:        cfg.Mongo.URI,
		Host:       cfg.Mongo.Host,
		Database:   cfg.Mongo.DBName,
		Username:   cfg.Mongo.Username,
		Password:   cfg.Mongo.Password,
		AuthSource: cfg.Mongo.AuthSource,
	})
}
