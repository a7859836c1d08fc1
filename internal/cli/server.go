package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"learnworld-service/internal/app"
	"learnworld-service/internal/config"
	"learnworld-service/internal/infra/memory"
	pgstore "learnworld-service/internal/infra/postgres"
	redisstore "learnworld-service/internal/infra/redis"
	"learnworld-service/internal/logger"
	"learnworld-service/internal/metrics"
	transport "learnworld-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progression server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
	}

	var loader memory.LessonLoader = memory.NewStaticLessonLoader(sampleLessons())
	if pool != nil {
		loader = pgstore.NewLessonLoader(pool)
	}

	lessonTTL := config.TTLDuration(cfg.Lessons.TTL, 10*time.Minute)
	var lessons app.LessonRepository
	if redisClient != nil {
		lessons = redisstore.NewLessonRepository(redisClient, loader, lessonTTL)
	} else {
		lessons = memory.NewLessonRepository(loader, lessonTTL)
	}

	users, err := userStore(cfg.Store.Users, redisClient, pool)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service := app.NewProgressService(users, lessons,
		app.WithLogger(log.With("component", "progress")),
		app.WithMetrics(metrics.New(reg)),
		app.WithLiveBoardSize(cfg.Leaderboard.LiveSize),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/ws", transport.NewWSHandler(service, log.With("component", "ws")).ServeWS)
	transport.NewHandler(service, cfg.Leaderboard, log.With("component", "http")).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting learnworld service", "port", finalPort, "users", storeName(cfg.Store.Users))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func userStore(kind string, client *redis.Client, pool *pgxpool.Pool) (app.UserRepository, error) {
	switch storeName(kind) {
	case "memory":
		return memory.NewUserStore(), nil
	case "redis":
		if client == nil {
			return nil, errors.New("store.users is redis but redis.addr is empty")
		}
		return redisstore.NewUserStore(client), nil
	case "postgres":
		if pool == nil {
			return nil, errors.New("store.users is postgres but postgres.url is empty")
		}
		return pgstore.NewUserStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown user store %q", kind)
	}
}

func storeName(kind string) string {
	if kind == "" {
		return "memory"
	}
	return kind
}
