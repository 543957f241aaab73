package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/analytics"
	"github.com/vtftk/app/internal/api"
	"github.com/vtftk/app/internal/circuitbreaker"
	"github.com/vtftk/app/internal/config"
	"github.com/vtftk/app/internal/dispatcher"
	"github.com/vtftk/app/internal/domain"
	"github.com/vtftk/app/internal/gate"
	"github.com/vtftk/app/internal/matching"
	"github.com/vtftk/app/internal/metrics"
	"github.com/vtftk/app/internal/outcome"
	"github.com/vtftk/app/internal/retention"
	"github.com/vtftk/app/internal/scheduler"
	"github.com/vtftk/app/internal/script"
	"github.com/vtftk/app/internal/store/sqlite"
	"github.com/vtftk/app/internal/transport/channel"
	"github.com/vtftk/app/internal/twitch"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`vtftk - streaming companion event dispatch backend

Usage:
  vtftk <command>

Commands:
  serve      Start the dispatcher, scheduler, and management API
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  DATABASE_PATH             SQLite database file (default: "vtftk.db")
  HTTP_ADDR                 HTTP server address (default: ":58371")
  TWITCH_CLIENT_ID          Twitch application client id
  TWITCH_ACCESS_TOKEN       Twitch user access token

  QUEUE_BUFFER_SIZE         Occurrence queue buffer (default: "100")
  OVERLAY_BUFFER_SIZE       Overlay channel buffer (default: "100")
  EMIT_TIMEOUT              Emit timeout on full buffers (default: "5s")
  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")

  CHAT_BREAKER_THRESHOLD    Chat send failures before the breaker opens
                            (default: "5", 0 disables)
  CHAT_BREAKER_COOLDOWN     Breaker open duration (default: "2m")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")

  ANALYTICS_ENABLED         Enable Redis fire counters (default: "false")
  REDIS_ADDR                Redis address (required when analytics enabled)
  ANALYTICS_WINDOW          Counter bucket size (default: "1m")
  ANALYTICS_RETENTION       Counter key TTL (default: "168h")

  RETENTION_SCHEDULE        Cleanup cron schedule (default: "0 3 * * *")
  EXECUTION_RETENTION       Execution history retention (default: "720h")
  CHAT_HISTORY_RETENTION    Chat history retention (default: "24h")`)
}

func runServe() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		return exitRuntimeError
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	log := logger.Sugar()

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		log.Errorw("failed to open database", "path", cfg.DatabasePath, "error", err)
		return exitRuntimeError
	}
	defer store.Close()

	// Platform client stack: Helix behind the role/VIP cache, chat sends
	// chunked and guarded by the circuit breaker.
	helix := twitch.NewHelixClient(cfg.TwitchClientID, cfg.TwitchAccessToken)
	client := twitch.NewCachedClient(helix, log)
	var breaker *circuitbreaker.CircuitBreaker
	if cfg.ChatBreakerThreshold > 0 {
		breaker = circuitbreaker.New(cfg.ChatBreakerThreshold, cfg.ChatBreakerCooldown)
	}
	chat := twitch.NewChatSender(client, breaker, log)

	var sink metrics.Sink = metrics.NewNoopSink()
	if cfg.MetricsEnabled {
		sink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Infow("metrics enabled", "path", cfg.MetricsPath)
	}

	busOpts := []channel.Option{
		channel.WithEmitTimeout(cfg.EmitTimeout),
		channel.WithMetrics(sink),
	}
	occurrences := channel.NewBus[domain.Occurrence](cfg.QueueBufferSize, busOpts...)
	overlay := channel.NewBus[domain.OverlayMessage](cfg.OverlayBufferSize, busOpts...)

	sched := scheduler.New(occurrences, log).WithMetrics(sink)

	matcher := matching.New(store, log)
	gatekeeper := gate.New(client, store, log)
	scripts := script.NewLuaExecutor(client, log)
	resolver := outcome.New(store, overlay, chat, client, scripts, log)

	// The dispatcher writes executions through the analytics decorator
	// when fire counters are enabled.
	var execStore dispatcher.Store = store
	if cfg.AnalyticsEnabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		counter := analytics.NewRedisSink(redisClient, analytics.Config{
			Enabled:   true,
			Window:    cfg.AnalyticsWindow,
			Retention: cfg.AnalyticsRetention,
		})
		execStore = analytics.NewRecordingStore(store, counter, log)
		log.Infow("analytics enabled", "redis", cfg.RedisAddr, "window", cfg.AnalyticsWindow)
	}

	disp := dispatcher.New(matcher, gatekeeper, resolver, execStore, client, sink, log)

	cleaner, err := retention.NewCleaner(store, retention.Config{
		Schedule:             cfg.RetentionSchedule,
		ExecutionRetention:   cfg.ExecutionRetention,
		ChatHistoryRetention: cfg.ChatHistoryRetention,
	}, log)
	if err != nil {
		log.Errorw("failed to build retention cleaner", "error", err)
		return exitRuntimeError
	}

	apiHandler := api.NewHandler(store, sched, log)
	router := apiHandler.Router()
	if cfg.MetricsEnabled {
		router.Handle(cfg.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Infow("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("http server error", "error", err)
		}
	}()

	// Separate contexts give an ordered shutdown: producers first, then
	// the dispatcher drains, then the API.
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	retentionCtx, cancelRetention := context.WithCancel(context.Background())

	// Seed the schedule from stored timer automations.
	if err := seedSchedule(schedulerCtx, store, sched); err != nil {
		log.Errorw("failed to seed schedule", "error", err)
		cancelScheduler()
		cancelDispatcher()
		cancelRetention()
		return exitRuntimeError
	}

	var schedulerWg, dispatcherWg, retentionWg sync.WaitGroup

	schedulerWg.Add(1)
	go func() {
		defer schedulerWg.Done()
		sched.Run(schedulerCtx)
	}()

	dispatcherWg.Add(1)
	go func() {
		defer dispatcherWg.Done()
		disp.Run(dispatcherCtx, occurrences.Channel())
	}()

	retentionWg.Add(1)
	go func() {
		defer retentionWg.Done()
		cleaner.Run(retentionCtx)
	}()

	// The overlay channel is the outbound boundary; drain it until the
	// dispatcher stops producing.
	overlayDone := make(chan struct{})
	go func() {
		defer close(overlayDone)
		for msg := range overlay.Channel() {
			log.Debugw("overlay message", "type", msg.Type)
		}
	}()

	log.Infow("vtftk started", "http", cfg.HTTPAddr, "database", cfg.DatabasePath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	log.Infow("shutting down", "signal", received.String())

	// Producers stop first so the occurrence queue stops filling.
	cancelScheduler()
	schedulerWg.Wait()

	cancelRetention()
	retentionWg.Wait()

	// Closing the inbound bus lets the dispatcher drain buffered
	// occurrences before its loop returns.
	occurrences.Close()
	dispatcherWg.Wait()
	cancelDispatcher()

	overlay.Close()
	<-overlayDone

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http server shutdown error", "error", err)
	}

	log.Infow("vtftk stopped")
	return exitSuccess
}

// seedSchedule loads enabled timer automations into the scheduler.
func seedSchedule(ctx context.Context, store *sqlite.Store, sched *scheduler.Scheduler) error {
	events, err := store.ListEvents(ctx)
	if err != nil {
		return err
	}

	var tasks []scheduler.Task
	for _, event := range events {
		trigger := event.Config.Trigger
		if !event.Enabled || trigger.Type != domain.TriggerTypeTimer || trigger.IntervalSeconds <= 0 {
			continue
		}
		tasks = append(tasks, scheduler.Task{
			EventID:         event.ID,
			IntervalSeconds: trigger.IntervalSeconds,
		})
	}
	sched.UpdateSchedule(ctx, tasks)
	return nil
}

func runValidate() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("vtftk version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
