package cli

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/infra/memory"
	"trivia-quiz/internal/infra/opentdb"
	pgstore "trivia-quiz/internal/infra/postgres"
	redisstore "trivia-quiz/internal/infra/redis"
)

const redisNamespace = "quiz:kv:"

// buildService picks the keyspace backend (Redis, then Postgres, then memory) and
// wires the provider, category cache and machine registry around it.
func buildService(ctx context.Context, cfg config.Config) (*app.QuizService, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, pool.Close)
	}

	var kv app.KeyValueStore
	switch {
	case redisClient != nil:
		kv = redisstore.NewKVStore(redisClient, redisNamespace, redisTTL)
		log.Printf("profiles stored in redis at %s", cfg.Redis.Addr)
	case pool != nil:
		kv = pgstore.NewKVStore(pool)
		log.Printf("profiles stored in postgres")
	default:
		kv = memory.NewKVStore()
		log.Printf("profiles stored in memory")
	}

	trivia := opentdb.NewClient(cfg.Trivia.BaseURL, config.TTLDuration(cfg.Trivia.Timeout, 10*time.Second))
	categoriesTTL := config.TTLDuration(cfg.Trivia.CategoriesTTL, 6*time.Hour)
	var categories app.CategoryProvider
	if redisClient != nil {
		categories = redisstore.NewCategoryCache(redisClient, trivia, categoriesTTL)
	} else {
		categories = memory.NewCategoryCache(trivia, categoriesTTL)
	}

	sessionTTL := config.TTLDuration(cfg.Session.TTL, app.DefaultSessionTTL)
	factory := func(profileID string) *app.Machine {
		return app.NewMachine(app.NewProfileStore(kv, profileID, sessionTTL), trivia)
	}
	var machines app.MachineRepository
	if redisClient != nil {
		machines = redisstore.NewMachineRegistry(redisClient, factory, redisTTL)
	} else {
		machines = memory.NewMachineRegistry(factory)
	}

	return app.NewQuizService(machines, categories, kv, sessionTTL), cleanup, nil
}
