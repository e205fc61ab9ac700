package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/cache"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/fetch"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/http/server"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/match"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/pipeline"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/publish"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/report"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/search"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/sources"
)

var (
	configFile     = flag.String("config", "config.yaml", "Path to configuration file")
	version        = flag.Bool("version", false, "Show version information")
	serve          = flag.Bool("serve", false, "Serve the dashboard instead of running a scrape pass")
	serverAddress  = flag.String("address", "", "Server address (host:port)")
	serverHost     = flag.String("host", "", "Server host")
	serverPort     = flag.Int("port", 0, "Server port")
	storePath      = flag.String("store-path", "", "Listing store path")
	termsFile      = flag.String("terms-file", "", "Tracked bikes file")
	reportDir      = flag.String("report-dir", "", "Report output directory")
	publishMethod  = flag.String("publish-method", "", "Publish method (local, s3)")
	cacheProvider  = flag.String("cache-provider", "", "Snapshot cache provider (sqlite, redis)")
	cacheDir       = flag.String("cache-dir", "", "Snapshot cache directory")
	fetchWorkers   = flag.Int("workers", 0, "Fetch worker count")
	logLevel       = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile        = flag.String("log-file", "", "Log file path")
	matchThreshold = flag.Float64("match-threshold", 0, "Default relevance threshold")
)

const (
	appName    = "Motorcycle Listings Tracker"
	appVersion = "1.0.0"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	overrides := config.Overrides{}
	if *serverAddress != "" {
		overrides.ServerAddress = serverAddress
	} else if *serverHost != "" || *serverPort != 0 {
		host, port := splitAddress(cfg.Server.Address)
		if *serverHost != "" {
			host = *serverHost
		}
		if *serverPort != 0 {
			port = fmt.Sprintf("%d", *serverPort)
		}
		if host == "" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		address := fmt.Sprintf("%s:%s", host, port)
		overrides.ServerAddress = &address
	}
	if *storePath != "" {
		overrides.StorePath = storePath
	}
	if *termsFile != "" {
		overrides.TermsFile = termsFile
	}
	if *reportDir != "" {
		overrides.ReportDirectory = reportDir
	}
	if *publishMethod != "" {
		overrides.PublishMethod = publishMethod
	}
	if *cacheProvider != "" {
		overrides.CacheProvider = cacheProvider
	}
	if *cacheDir != "" {
		overrides.CacheDirectory = cacheDir
	}
	if *fetchWorkers != 0 {
		overrides.FetchWorkers = fetchWorkers
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}
	if *logFile != "" {
		overrides.LogFile = logFile
	}
	if *matchThreshold != 0 {
		overrides.MatchThreshold = matchThreshold
	}

	if err := cfg.ApplyOverrides(overrides); err != nil {
		log.Fatalf("Failed to apply overrides: %v", err)
	}

	appLog, err := logger.NewWithFile(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer appLog.Close()

	snapshots, err := cache.Open(cfg.Cache, appLog)
	if err != nil {
		log.Fatalf("Failed to open snapshot cache: %v", err)
	}
	defer snapshots.Close()

	if *serve {
		runServer(cfg, snapshots, appLog)
		return
	}

	if err := runOnce(cfg, snapshots, appLog); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}

// runOnce executes one scrape-reconcile-publish pass.
func runOnce(cfg *config.Config, snapshots cache.Cache, appLog *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	terms, duplicates, err := search.LoadTerms(cfg.Store.TermsFile)
	if err != nil {
		return fmt.Errorf("loading tracked bikes: %w", err)
	}
	for _, dup := range duplicates {
		appLog.Warn("duplicate tracked bike ignored", "term", dup)
	}
	if len(terms) == 0 {
		return fmt.Errorf("no tracked bikes in %s", cfg.Store.TermsFile)
	}
	appLog.Info("starting run", "bikes", len(terms), "store", cfg.Store.Path)

	client := fetch.New(cfg.Fetch)
	scorer := match.NewScorer(cfg.Match.JaccardWeight, cfg.Match.SequenceWeight)
	fetchers := sources.Enabled(cfg.Sources, client, snapshots, scorer, appLog)
	if len(fetchers) == 0 {
		return fmt.Errorf("all sources are disabled")
	}

	p := pipeline.New(cfg.Store.Path, fetchers, cfg.Fetch.Workers, appLog)
	result, err := p.Run(ctx, terms)
	if err != nil {
		return err
	}

	generator, err := report.NewGenerator(cfg.App.Name, cfg.Report.Directory)
	if err != nil {
		return err
	}
	if err := generator.Generate(result.Store, result, terms); err != nil {
		return fmt.Errorf("generating report: %w", err)
	}

	publisher, err := publish.New(ctx, cfg.Publish)
	if err != nil {
		return fmt.Errorf("building publisher: %w", err)
	}
	if err := publish.Dir(ctx, publisher, cfg.Report.Directory); err != nil {
		return fmt.Errorf("publishing report: %w", err)
	}
	if url, ok := publish.PublicURL(cfg.Publish, "index.html"); ok {
		appLog.Info("dashboard published", "url", url)
	}

	report.WriteSummary(os.Stdout, result)
	return nil
}

// runServer hosts the dashboard and JSON API until interrupted.
func runServer(cfg *config.Config, snapshots cache.Cache, appLog *logger.Logger) {
	srv := server.New(cfg, snapshots, appLog)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Starting %s server on %s", appName, cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func splitAddress(address string) (string, string) {
	if address == "" {
		return "", ""
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", ""
	}
	return host, port
}
