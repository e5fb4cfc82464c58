package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/auth"
	"academy-quiz-service/internal/config"
	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/infra/file"
	"academy-quiz-service/internal/infra/memory"
	"academy-quiz-service/internal/infra/postgres"
	redisstore "academy-quiz-service/internal/infra/redis"
	"academy-quiz-service/internal/logging"
	transport "academy-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 12*time.Hour)

	var pool *pgxpool.Pool
	var db *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = postgres.OpenBun(cfg.Postgres.URL)
		defer db.Close()
	}

	disciplines := disciplinesFrom(cfg)
	catalog := app.NewCatalog(disciplines)

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	switch {
	case cfg.Bank.Dir != "":
		loader = file.NewBankLoader(cfg.Bank.Dir, disciplines)
	case pool != nil:
		loader = postgres.NewBankLoader(pool)
	default:
		log.Warn("no bank directory or postgres configured, serving the built-in sample bank")
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks app.BankRepository
	if redisClient != nil {
		banks = redisstore.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var coordinatorStore app.CoordinatorRepository = memory.NewCoordinatorStore()
	var authStore auth.Repository = memory.NewAuthStore()
	if redisClient != nil {
		coordinatorStore = redisstore.NewCoordinatorStore(redisClient, redisTTL)
		authStore = redisstore.NewAuthStore(redisClient)
	}

	var leaderboardStore app.LeaderboardRepository
	switch cfg.LeaderboardStore() {
	case "postgres":
		if db == nil {
			return fmt.Errorf("leaderboard store postgres requires postgres.url")
		}
		leaderboardStore = postgres.NewLeaderboardStore(db)
	case "redis":
		if redisClient == nil {
			return fmt.Errorf("leaderboard store redis requires redis.addr")
		}
		leaderboardStore = redisstore.NewLeaderboardStore(redisClient)
	default:
		leaderboardStore = memory.NewLeaderboardStore()
	}

	coordinator := app.NewCoordinator(coordinatorStore, app.CoordinatorConfig{
		PINTTL:       config.TTLDuration(cfg.Session.PINTTL, 4*time.Hour),
		PollInterval: config.TTLDuration(cfg.Session.PollInterval, time.Second),
		StaleAfter:   config.TTLDuration(cfg.Session.StaleAfter, 0),
	}, log)
	leaderboard := app.NewLeaderboardService(leaderboardStore, log)
	service := app.NewQuizService(catalog, banks, coordinator, leaderboard, app.QuizConfig{
		QuestionBudget: config.TTLDuration(cfg.Quiz.QuestionBudget, app.DefaultQuestionBudget),
		IdleAfter:      config.TTLDuration(cfg.Quiz.IdleAfter, 30*time.Minute),
	}, log)
	defer service.Close()

	gate := auth.NewGate(authStore, auth.Config{
		Username:        cfg.Auth.Username,
		Password:        cfg.Auth.Password,
		MaxAttempts:     cfg.Auth.MaxAttempts,
		LockoutDuration: config.TTLDuration(cfg.Auth.Lockout, 15*time.Minute),
		SessionTimeout:  config.TTLDuration(cfg.Auth.SessionTimeout, 30*time.Minute),
		SessionMode:     auth.SessionMode(cfg.Auth.SessionMode),
		TOTPSkew:        cfg.Auth.TOTPSkew,
		Issuer:          cfg.Auth.Issuer,
		AccessLogLimit:  cfg.Auth.AccessLogLimit,
	}, log)
	if err := gate.Init(ctx); err != nil {
		return err
	}

	api := transport.NewAPIHandler(service, coordinator, leaderboard, gate, log)
	if err := api.TrustProxies(cfg.Server.TrustedProxies); err != nil {
		return err
	}
	ws := transport.NewWSHandler(service, coordinator, log)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(api, ws, log),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": finalPort, "leaderboard": cfg.LeaderboardStore()}).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks serves a tiny bank for every default discipline when no
// storage is configured.
func sampleBanks() map[string]domain.QuestionBank {
	banks := make(map[string]domain.QuestionBank)
	for _, d := range app.DefaultDisciplines() {
		banks[d.ID] = domain.QuestionBank{
			QuizTitle: d.FullName + " sample",
			Creator:   "Academy",
			Module:    d.Name,
			Questions: []domain.Question{
				{ID: 1, Question: "Which level is this discipline taught at?", Options: []string{"LASM 1", d.Level, "None"}, CorrectAnswer: 1},
				{ID: 2, Question: "How long does each question last?", Options: []string{"60 seconds", "30 seconds", "No limit"}, CorrectAnswer: 0},
			},
		}
	}
	return banks
}
