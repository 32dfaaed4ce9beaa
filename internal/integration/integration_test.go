package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"
	pgstore "trivia-quiz/internal/infra/postgres"
	pgmigrations "trivia-quiz/internal/infra/postgres/migrations"
	infraredis "trivia-quiz/internal/infra/redis"
)

func TestPostgresKeyspaceSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateKeyspace(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	kv := pgstore.NewKVStore(pool)
	provider := sampleProvider()
	newService := func() *app.QuizService {
		registry := memory.NewMachineRegistry(func(profileID string) *app.Machine {
			return app.NewMachine(app.NewProfileStore(kv, profileID, app.DefaultSessionTTL), provider)
		})
		return app.NewQuizService(registry, provider, kv, app.DefaultSessionTTL)
	}

	first := newService()
	playFirstQuestion(t, ctx, first, "p1")
	first.Leave(ctx, "p1")

	// A fresh process sees the same session and in-flight quiz.
	second := newService()
	st, err := second.Join(ctx, "p1")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if st.Page != domain.PageSetup || st.Username != "alice" || !st.ResumePrompt {
		t.Fatalf("expected resumable setup, got %+v", st)
	}
	st, err = second.Dispatch(ctx, "p1", app.Resume{})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if st.Page != domain.PageQuiz || st.CurrentIndex != 1 || len(st.Answers) != 1 {
		t.Fatalf("expected quiz resumed at question 2, got %+v", st)
	}
	st, err = second.Dispatch(ctx, "p1", app.SubmitAnswer{Answer: "6"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if st.Page != domain.PageResults || st.Result.CorrectAnswers != 2 {
		t.Fatalf("expected two correct answers, got %+v", st.Result)
	}

	stats, err := second.Stats(ctx, "p1", "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalQuizzes != 1 || stats.BestScore != 100 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRedisKeyspaceAndRegistry(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	kv := infraredis.NewKVStore(redisClient, "quiz:kv:", time.Hour)
	provider := sampleProvider()
	registry := infraredis.NewMachineRegistry(redisClient, func(profileID string) *app.Machine {
		return app.NewMachine(app.NewProfileStore(kv, profileID, app.DefaultSessionTTL), provider)
	}, time.Hour)
	categories := infraredis.NewCategoryCache(redisClient, provider, time.Hour)
	service := app.NewQuizService(registry, categories, kv, app.DefaultSessionTTL)

	playFirstQuestion(t, ctx, service, "p1")

	n, err := redisClient.Exists(ctx, "quiz:kv:profile:p1:quizProgress", "quiz:kv:profile:p1:session").Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected session and progress in redis, found %d keys", n)
	}

	cats, err := service.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 1 || cats[0].ID != 9 {
		t.Fatalf("unexpected categories %+v", cats)
	}
}

// playFirstQuestion logs alice in, starts a two-question quiz and answers the first correctly.
func playFirstQuestion(t *testing.T, ctx context.Context, service *app.QuizService, profileID string) {
	t.Helper()
	if _, err := service.Join(ctx, profileID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.Dispatch(ctx, profileID, app.Login{Username: "alice"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	settings := domain.QuizSettings{Amount: 2, Type: domain.TypeMultiple, TimeLimit: 300}
	if _, err := service.Dispatch(ctx, profileID, app.StartQuiz{Settings: settings}); err != nil {
		t.Fatalf("start: %v", err)
	}
	st, err := service.Dispatch(ctx, profileID, app.SubmitAnswer{Answer: "4"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if st.CurrentIndex != 1 {
		t.Fatalf("expected to advance to question 2, got index %d", st.CurrentIndex)
	}
}

func sampleProvider() *memory.StaticProvider {
	return memory.NewStaticProvider([]domain.Question{
		{Type: domain.TypeMultiple, Difficulty: "easy", Question: "What is 2 + 2?", CorrectAnswer: "4", IncorrectAnswers: []string{"3", "5", "22"}},
		{Type: domain.TypeMultiple, Difficulty: "easy", Question: "What is 3 + 3?", CorrectAnswer: "6", IncorrectAnswers: []string{"5", "7", "33"}},
	}, []domain.Category{{ID: 9, Name: "General Knowledge"}})
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	hostPort, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	return fmt.Sprintf("postgres://quiz:quizpass@%s/quizdb?sslmode=disable", hostPort), cleanup
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	hostPort, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	return "redis://" + hostPort, cleanup
}

// startContainer runs req and returns host:port of its first exposed port.
func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) (string, func()) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("%s host: %v", req.Image, err)
	}
	port, err := container.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	if err != nil {
		t.Fatalf("%s port: %v", req.Image, err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func migrateKeyspace(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
