package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"folio/reader/internal/config"
	"folio/reader/internal/crawler"
	"folio/reader/internal/database"
	"folio/reader/internal/events"
	"folio/reader/internal/favicon"
	"folio/reader/internal/fetch"
	importchannels "folio/reader/internal/import"
	"folio/reader/internal/models"
	"folio/reader/internal/process"
	"folio/reader/internal/server"
	"folio/reader/internal/server/storage"
)

const usage = `Usage: folio [command] [options]
Commands: import, add, start, server

For command-specific options, use: folio [command] -h`

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// addOptions holds the flags of the add command.
type addOptions struct {
	link        string
	typ         string
	title       string
	description string
	category    string
	rulesPath   string
}

func main() {
	cfg := config.FromEnv()
	var logLevelStr string

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importCmd.StringVar(&cfg.ChannelsCSVPath, "csv", cfg.ChannelsCSVPath,
		"Path to the channels CSV file (env: FOLIO_CSV_PATH)")
	commonFlags(importCmd, cfg, &logLevelStr)
	crawlFlags(importCmd, cfg)

	var add addOptions
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	addCmd.StringVar(&add.link, "link", "", "Feed or page URL to subscribe to")
	addCmd.StringVar(&add.typ, "type", models.ChannelTypeRSS, "Channel type: rss or html")
	addCmd.StringVar(&add.title, "title", "", "Channel title (required for html)")
	addCmd.StringVar(&add.description, "description", "", "Channel description (html)")
	addCmd.StringVar(&add.category, "category", "", "Channel category")
	addCmd.StringVar(&add.rulesPath, "rules", "", "Path to the YAML extraction rules (html)")
	commonFlags(addCmd, cfg, &logLevelStr)
	crawlFlags(addCmd, cfg)

	startCmd := flag.NewFlagSet("start", flag.ExitOnError)
	commonFlags(startCmd, cfg, &logLevelStr)
	crawlFlags(startCmd, cfg)
	startCmd.DurationVar(&cfg.Interval, "interval", cfg.Interval,
		"Interval between crawl runs, 0 for one-shot mode (env: FOLIO_INTERVAL, bare numbers are minutes)")
	startCmd.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount,
		"Number of crawl workers, 0 for CPU count (env: FOLIO_WORKER_COUNT)")
	startCmd.IntVar(&cfg.RetentionDays, "retention", cfg.RetentionDays,
		"Number of days to retain crawl logs, 0 to keep them (env: FOLIO_RETENTION_DAYS)")

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	commonFlags(serverCmd, cfg, &logLevelStr)
	crawlFlags(serverCmd, cfg)
	serverCmd.StringVar(&cfg.ServerHost, "host", cfg.ServerHost,
		"Host to bind the server to (env: FOLIO_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", cfg.ServerPort,
		"Port to listen on (env: FOLIO_PORT)")
	serverCmd.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount,
		"Number of crawl workers for POST /v1/crawl, 0 for CPU count (env: FOLIO_WORKER_COUNT)")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var run func() error
	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		run = func() error { return runImport(cfg) }
	case "add":
		addCmd.Parse(os.Args[2:])
		run = func() error { return runAdd(cfg, add) }
	case "start":
		startCmd.Parse(os.Args[2:])
		run = func() error { return runStart(cfg) }
	case "server":
		serverCmd.Parse(os.Args[2:])
		run = func() error { return runServer(cfg) }
	case "-h", "--help", "help":
		fmt.Println(usage)
		os.Exit(0)
	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}

	// Handle log level parsing separately since it needs conversion
	if level, err := zerolog.ParseLevel(logLevelStr); err == nil {
		cfg.LogLevel = level
	}
	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		os.Exit(2)
	}

	if err := run(); err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		os.Exit(1)
	}
}

func commonFlags(fs *flag.FlagSet, cfg *config.Config, logLevel *string) {
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the SQLite database file (env: FOLIO_DB_PATH)")
	fs.StringVar(logLevel, "log-level", cfg.LogLevel.String(),
		"Log level: debug, info, warn, error (env: FOLIO_LOG_LEVEL)")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON,
		"Write JSON logs instead of console output (env: FOLIO_LOG_JSON)")
}

func crawlFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout,
		"Timeout of a single document fetch (env: FOLIO_FETCH_TIMEOUT)")
	fs.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent,
		"User-Agent sent with every fetch (env: FOLIO_USER_AGENT)")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL,
		"NATS server for crawl events, empty to disable (env: FOLIO_NATS_URL)")
	fs.StringVar(&cfg.NATSSubject, "nats-subject", cfg.NATSSubject,
		"NATS subject for crawl events (env: FOLIO_NATS_SUBJECT)")
}

func setupLogging(cfg *config.Config) {
	if cfg.LogJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

// openDB opens the database, creating and migrating it when needed.
func openDB(cfg *config.Config) (*database.DB, error) {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// newService wires the crawl service. The returned function releases the
// event publisher, if any.
func newService(cfg *config.Config, db *database.DB) (*crawler.Service, func(), error) {
	fetcher := fetch.NewClient(
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithUserAgent(cfg.UserAgent),
	)
	opts := []crawler.ServiceOption{
		crawler.WithIconResolver(favicon.NewResolver(fetcher)),
	}

	cleanup := func() {}
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(events.Config{URL: cfg.NATSURL, Subject: cfg.NATSSubject})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("url", cfg.NATSURL).Str("subject", cfg.NATSSubject).Msg("Publishing crawl events")
		opts = append(opts, crawler.WithPublisher(pub))
		cleanup = pub.Close
	}

	return crawler.NewService(db, fetcher, opts...), cleanup, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-shutdown:
			log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(shutdown)
	}()
	return ctx, cancel
}

// runImport subscribes to every channel listed in the CSV file. Channels
// that already exist are re-crawled, so an import can be repeated.
func runImport(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, cleanup, err := newService(cfg, db)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := importchannels.NewImporter(svc).ImportChannels(ctx, cfg.ChannelsCSVPath)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d of %d channels\n", summary.Imported, summary.Total)
	if len(summary.Errors) > 0 {
		fmt.Printf("Encountered %d errors:\n", len(summary.Errors))
		for _, e := range summary.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}

// runAdd crawls a single channel given on the command line.
func runAdd(cfg *config.Config, opts addOptions) error {
	if opts.link == "" {
		return errors.New("missing required flag -link")
	}

	desc := models.NewChannel(opts.typ, opts.link)
	desc.Title = opts.title
	desc.Description = opts.description
	desc.Category = opts.category
	if opts.rulesPath != "" {
		rules, err := os.ReadFile(opts.rulesPath)
		if err != nil {
			return fmt.Errorf("failed to read rules file: %w", err)
		}
		desc.ItemsCode = string(rules)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, cleanup, err := newService(cfg, db)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := svc.CrawlChannel(ctx, desc)
	if err != nil {
		return err
	}
	fmt.Printf("Channel %d: %d new articles\n", res.ID, res.Inserted)
	return nil
}

// runStart crawls all channels either once or periodically based on configuration.
func runStart(cfg *config.Config) error {
	if cfg.Interval <= 0 {
		log.Info().Msg("Running in one-shot mode")
	} else {
		log.Info().Int64("interval_minutes", int64(cfg.Interval.Minutes())).Msg("Running in periodic mode")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, cleanup, err := newService(cfg, db)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	if err := runCrawlCycle(ctx, db, svc, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("Crawl cycle canceled by shutdown signal")
			return nil
		}
		return err
	}

	if cfg.Interval <= 0 {
		log.Info().Msg("One-shot crawl completed, exiting")
		return nil
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", cfg.Interval).
		Time("next_run", time.Now().Add(cfg.Interval)).
		Msg("Waiting for next crawl cycle")

	for {
		select {
		case <-ticker.C:
			log.Info().Msg("Starting scheduled crawl cycle")

			if err := runCrawlCycle(ctx, db, svc, cfg); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info().Msg("Crawl cycle canceled by shutdown signal")
					return nil
				}
				log.Error().Err(err).Msg("Crawl cycle failed")
				// Continue to the next cycle rather than exiting
			}

			log.Info().
				Time("next_run", time.Now().Add(cfg.Interval)).
				Msg("Waiting for next crawl cycle")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic crawling")
			return nil
		}
	}
}

// runCrawlCycle crawls every channel once, then purges aged crawl logs.
func runCrawlCycle(ctx context.Context, db *database.DB, svc *crawler.Service, cfg *config.Config) error {
	processor, err := process.NewChannelProcessor(db, svc, cfg.WorkerCount)
	if err != nil {
		return fmt.Errorf("failed to initialize channel processor: %w", err)
	}

	cycleCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	log.Info().
		Int("worker_count", processor.WorkerCount).
		Msg("Starting crawl cycle")

	startTime := time.Now()
	outcomes, err := processor.ProcessChannels(cycleCtx)
	log.Info().
		Dur("duration", time.Since(startTime)).
		Int("channels", len(outcomes)).
		Msg("Crawl cycle finished")
	if err != nil {
		return fmt.Errorf("crawl error: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if cfg.RetentionDays <= 0 {
		return nil
	}

	purgeCtx, purgeCancel := context.WithTimeout(ctx, 5*time.Minute)
	defer purgeCancel()

	purgedCount, purgeErr := db.PurgeCrawlLogs(purgeCtx, cfg.RetentionDays)
	if purgeErr != nil {
		log.Error().Err(purgeErr).Msg("Failed to purge old crawl logs")
	} else if purgedCount > 0 {
		log.Info().Int64("purged_count", purgedCount).Msg("Successfully purged old crawl logs")
	} else {
		log.Debug().Msg("No old crawl logs needed purging")
	}
	return nil
}

// runServer starts the HTTP API server with the provided configuration.
func runServer(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, cleanup, err := newService(cfg, db)
	if err != nil {
		return err
	}
	defer cleanup()

	batch, err := process.NewChannelProcessor(db, svc, cfg.WorkerCount)
	if err != nil {
		return fmt.Errorf("failed to initialize channel processor: %w", err)
	}

	deps := server.Deps{
		Repo:    storage.NewRepository(db),
		Crawler: svc,
		Batch:   batch,
	}
	return server.RunServer(deps, cfg.ListenAddr(), log.Logger, cfg.APIKey)
}
