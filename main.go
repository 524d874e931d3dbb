package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hadiiskaargar/PricePilot/config"
	"github.com/hadiiskaargar/PricePilot/internal/alert"
	"github.com/hadiiskaargar/PricePilot/internal/browser"
	"github.com/hadiiskaargar/PricePilot/internal/extract"
	"github.com/hadiiskaargar/PricePilot/internal/fetch"
	"github.com/hadiiskaargar/PricePilot/internal/registry"
	"github.com/hadiiskaargar/PricePilot/internal/runner"
	"github.com/hadiiskaargar/PricePilot/internal/store"
	"github.com/hadiiskaargar/PricePilot/logger"
	"github.com/hadiiskaargar/PricePilot/services/cache"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	once := flag.Bool("once", false, "run a single batch and exit")
	flag.Parse()

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	services, err := initializeServices(&cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Registry subcommands manage tracked products without running a batch.
	if args := flag.Args(); len(args) > 0 {
		if err := runCommand(ctx, services, args); err != nil {
			log.Fatal().Err(err).Msg("Command failed")
		}
		return
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("schedule_at", cfg.ScheduleAt).
		Bool("once", *once).
		Msg("Starting application")

	if *once {
		if _, err := services.Runner.RunBatch(ctx); err != nil {
			log.Fatal().Err(err).Msg("Batch failed")
		}
		return
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("Invalid timezone")
	}

	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := scheduler.AddFunc(cfg.ScheduleSpec(), func() {
		if _, err := services.Runner.RunBatch(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled batch failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule daily batch")
	}
	scheduler.Start()

	log.Info().
		Str("cron", cfg.ScheduleSpec()).
		Str("timezone", cfg.Timezone).
		Msg("Daily batch scheduled")

	sig := <-sigChan
	log.Info().
		Str("signal", sig.String()).
		Msg("Received shutdown signal")
	cancel()

	// Let an in-flight batch observe the cancellation before exiting.
	stopped := scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("Timed out waiting for in-flight batch")
	}
	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	History   *store.Store
	Registry  *registry.Registry
	Extractor *extract.Extractor
	Runner    *runner.Runner
	stream    *alert.StreamSink
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.stream != nil {
		s.stream.Close()
	}
	if s.Registry != nil {
		s.Registry.Close()
	}
	if s.History != nil {
		s.History.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(cfg *config.Config) (*Services, error) {
	services := &Services{}

	history, err := store.Open(cfg.HistoryDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	services.History = history

	reg, err := registry.Open(cfg.TrackerDBPath, history)
	if err != nil {
		history.Close()
		return nil, fmt.Errorf("failed to open tracker registry: %w", err)
	}
	services.Registry = reg

	extractor := extract.New()
	if cfg.SelectorsPath != "" {
		if err := extractor.LoadOverrides(cfg.SelectorsPath); err != nil {
			return nil, fmt.Errorf("failed to load selector overrides: %w", err)
		}
		logger.Infof("Loaded selector overrides from %s", cfg.SelectorsPath)
	}
	services.Extractor = extractor

	// Memcache shares challenge blocks across processes; without it a
	// per-process in-memory cache is used.
	var blockCache cache.CacheService
	if cfg.MemcacheAddr != "" {
		blockCache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Infof("Connected to Memcache at %s", cfg.MemcacheAddr)
	} else {
		blockCache = cache.NewMemoryService()
	}

	renderer := browser.NewFunctionRenderer(cfg.ChromeAddr, cfg.FetchTimeout)
	identities := browser.NewIdentityPool(cfg.ProxyURLs)

	policy := fetch.NewPolicy(renderer, extractor, identities, fetch.Options{
		MaxAttempts: cfg.MaxAttempts,
		CoolDown:    cfg.CoolDown,
		BlockTTL:    cfg.ChallengeBlock,
		Cache:       blockCache,
	})

	var emailSink alert.Sink
	emailCfg := alert.EmailConfig{
		Host: cfg.EmailHost,
		Port: cfg.EmailPort,
		User: cfg.EmailUser,
		Pass: cfg.EmailPass,
		To:   cfg.EmailTo,
	}
	if emailCfg.Complete() {
		sink, err := alert.NewEmailSink(emailCfg)
		if err != nil {
			return nil, err
		}
		emailSink = sink
		logger.Infof("Email alerts will be sent to %s", cfg.EmailTo)
	} else {
		logger.Warnf("Email credentials incomplete, email alerts disabled")
	}

	var extraSinks []alert.Sink
	if cfg.RedisAddr != "" {
		services.stream = alert.NewStreamSink(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
		extraSinks = append(extraSinks, services.stream)
		logger.Infof("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	services.Runner = runner.New(runner.Options{
		Registry:   reg,
		History:    history,
		Policy:     policy,
		EmailSink:  emailSink,
		ExtraSinks: extraSinks,
		Workers:    cfg.Workers,
	})

	return services, nil
}

// runCommand dispatches a registry subcommand: add, list, remove, alerts.
func runCommand(ctx context.Context, services *Services, args []string) error {
	switch args[0] {
	case "add":
		if len(args) != 3 {
			return fmt.Errorf("usage: add <url> <site>")
		}
		site := extract.Site(args[2])
		if !services.Extractor.Supported(site) {
			return fmt.Errorf("unsupported site %q, want one of %v", args[2], services.Extractor.Sites())
		}
		id, err := services.Registry.Add(ctx, args[1], site)
		if err != nil {
			return err
		}
		fmt.Printf("tracking #%d %s\n", id, args[1])
		return nil

	case "list":
		targets, err := services.Registry.List(ctx)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			fmt.Println("no tracked products")
			return nil
		}
		for _, t := range targets {
			fmt.Printf("#%d\t%s\t%s\t%s\n", t.ID, t.Source, t.URL, t.CreatedAt.Format(store.DateLayout))
		}
		return nil

	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: remove <id|url>")
		}
		id, err := resolveTarget(ctx, services.Registry, args[1])
		if err != nil {
			return err
		}
		if err := services.Registry.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("removed #%d\n", id)
		return nil

	case "alerts":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return fmt.Errorf("usage: alerts <on|off>")
		}
		if err := services.Registry.SetEmailAlertsEnabled(ctx, args[1] == "on"); err != nil {
			return err
		}
		fmt.Printf("email alerts %s\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown command %q, want add, list, remove or alerts", args[0])
	}
}

// resolveTarget accepts either a numeric registry id or a tracked URL.
func resolveTarget(ctx context.Context, reg *registry.Registry, arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return id, nil
	}
	targets, err := reg.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range targets {
		if t.URL == arg {
			return t.ID, nil
		}
	}
	return 0, registry.ErrNotFound
}
