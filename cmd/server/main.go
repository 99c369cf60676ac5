package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gentlecut/internal/api"
	"gentlecut/internal/availability"
	"gentlecut/internal/booking"
	"gentlecut/internal/calendar"
	"gentlecut/internal/config"
	"gentlecut/internal/database"
	"gentlecut/internal/events"
	"gentlecut/internal/ledger"
	"gentlecut/internal/metrics"
	"gentlecut/internal/model"
	"gentlecut/internal/schedule"
	"gentlecut/internal/service"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("GENTLECUT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := schedule.NewStore()
	led := ledger.New()
	bus := events.NewBus()

	if err := restoreState(ctx, db, store, led, cfg, &logger); err != nil {
		logger.Fatal().Err(err).Msg("restore state error")
	}

	resolver := availability.NewResolver(store, led)

	var slots api.SlotProvider = api.DirectProvider{Resolver: resolver}
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache := availability.NewCache(resolver, rdb, cfg.RedisTTL(), &logger)
		cache.BindBus(bus)
		slots = cache
		logger.Info().Str("addr", cfg.Redis.Address).Msg("availability cache enabled")
	}

	bookings := service.NewBookingService(led, db, bus, &logger, cfg.BookingMinAdvance(), cfg.BookingMaxAdvance())
	schedules := service.NewScheduleService(store, db, bus, &logger)

	// Interactive booking flow sessions, swept periodically.
	sessions := booking.NewSessionStore(30 * time.Minute)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := sessions.Cleanup(); removed > 0 {
					logger.Debug().Int("removed", removed).Msg("expired flow sessions removed")
				}
			}
		}
	}()

	flow := booking.NewFlow(store, resolver, bookings, &logger)

	server := api.NewHTTPServer(api.Config{
		Port:           cfg.Server.Port,
		APIKey:         cfg.Server.APIKey,
		RateLimitRPS:   cfg.Booking.RateLimitRPS,
		RateLimitBurst: cfg.Booking.RateLimitBurst,
	}, bookings, schedules, slots, calendar.NewGenerator(store), db, flow, sessions, &logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxShutdown)
	}()

	logger.Info().Msg("booking server started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

// restoreState rebuilds the in-memory engine from sqlite. Barbers
// without a persisted schedule get the configured default pattern.
func restoreState(ctx context.Context, db *database.DB, store *schedule.Store, led *ledger.Ledger, cfg *config.Config, logger *zerolog.Logger) error {
	barbers, err := db.ListBarbers(ctx)
	if err != nil {
		return fmt.Errorf("load barbers: %w", err)
	}
	scheds, err := db.LoadSchedules(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	for _, b := range barbers {
		sched, ok := scheds[b.ID]
		if !ok {
			if err := store.Register(b.ID, defaultPattern(cfg)); err != nil {
				return fmt.Errorf("register barber %d: %w", b.ID, err)
			}
			continue
		}
		if err := store.Restore(b.ID, sched); err != nil {
			return fmt.Errorf("restore barber %d: %w", b.ID, err)
		}
	}

	bookings, err := db.LoadBookings(ctx)
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}
	if err := led.Restore(bookings); err != nil {
		return fmt.Errorf("restore bookings: %w", err)
	}

	logger.Info().
		Int("barbers", len(barbers)).
		Int("bookings", len(bookings)).
		Msg("state restored")
	return nil
}

func defaultPattern(cfg *config.Config) model.WeeklyPattern {
	pattern := model.WeeklyPattern{
		WorkingDays:  cfg.Defaults.WorkingDays,
		DefaultSlots: cfg.Defaults.Slots,
	}
	if len(pattern.WorkingDays) == 0 {
		pattern.WorkingDays = []int{6, 0, 1, 2, 3, 4} // closed on Fridays
	}
	if len(pattern.DefaultSlots) == 0 {
		pattern.DefaultSlots = []string{"10:00", "11:00", "12:00", "14:00", "15:00", "16:00", "17:00"}
	}
	return pattern
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
