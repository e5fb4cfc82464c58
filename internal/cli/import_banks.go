package cli

import (
	"context"
	"fmt"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/config"
	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/infra/file"
	"academy-quiz-service/internal/infra/postgres"
	redisstore "academy-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewImportBanksCmd copies question bank files into Postgres.
func NewImportBanksCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import-banks",
		Short: "Validate question bank files and store them in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Bank.Dir
			}
			return importBanks(cmd.Context(), cfg, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory with quiz_data_{id}.json files (defaults to bank.dir)")
	return cmd
}

func importBanks(ctx context.Context, cfg config.Config, dir string) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if dir == "" {
		return fmt.Errorf("bank directory not configured")
	}
	log := newLogger(cfg)

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	disciplines := disciplinesFrom(cfg)
	files := file.NewBankLoader(dir, disciplines)
	store := postgres.NewBankLoader(pool)

	// running servers share the Redis bank cache; drop stale copies
	var cache *redisstore.BankRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		cache = redisstore.NewBankRepository(client, store, 0)
	}
	for _, d := range disciplines {
		bank, err := files.LoadBank(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("discipline %s: %w", d.ID, err)
		}
		if err := store.SaveBank(ctx, d.ID, bank); err != nil {
			return fmt.Errorf("discipline %s: %w", d.ID, err)
		}
		if cache != nil {
			if err := cache.Invalidate(ctx, d.ID); err != nil {
				log.WithError(err).WithField("discipline", d.ID).Warn("bank cache invalidation failed")
			}
		}
		log.WithField("discipline", d.ID).WithField("questions", len(bank.Questions)).Info("question bank imported")
	}
	return nil
}

func disciplinesFrom(cfg config.Config) []domain.Discipline {
	if len(cfg.Disciplines) > 0 {
		return cfg.Disciplines
	}
	return app.DefaultDisciplines()
}
