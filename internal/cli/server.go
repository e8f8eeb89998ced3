package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"trivia-attempt-service/internal/app"
	"trivia-attempt-service/internal/config"
	"trivia-attempt-service/internal/domain"
	"trivia-attempt-service/internal/infra/memory"
	pgstore "trivia-attempt-service/internal/infra/postgres"
	rediscache "trivia-attempt-service/internal/infra/redis"
	"trivia-attempt-service/internal/topics"
	transport "trivia-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the attempt service",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	var (
		quizzes   app.QuizStore
		attempts  app.AttemptStore
		questions app.QuestionSource
		topicSrc  topics.TopicSource
		standings app.StandingsSource
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		store := pgstore.NewStore(db)
		quizzes, attempts, questions, topicSrc = store, store, store, store

		// Standings aggregation runs on a dedicated pgx pool.
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		standings = pgstore.NewStandingsReader(pool)
	} else {
		log.Printf("postgres not configured, using in-memory store with demo data")
		store := memory.NewStore()
		seedDemoData(store)
		quizzes, attempts, questions, topicSrc, standings = store, store, store, store, store
	}

	var cache app.StandingsCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = rediscache.NewLeaderboardCache(client, config.TTLDuration(cfg.Leaderboard.CacheTTL, time.Minute))
	}

	resolver := topics.NewResolver(topicSrc, config.TTLDuration(cfg.Topics.CacheTTL, 10*time.Minute))
	attemptSvc := app.NewAttemptService(quizzes, attempts, questions, resolver)
	leaderboardSvc := app.NewLeaderboardService(standings, cache, resolver, config.TTLDuration(cfg.Leaderboard.RefreshInterval, 10*time.Second))

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	go leaderboardSvc.Run(refreshCtx)

	handler := transport.NewHandler(attemptSvc, leaderboardSvc, transport.HeaderAuth{Header: cfg.Auth.UserHeader})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting attempt service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedDemoData fills the in-memory store with a small playable quiz.
func seedDemoData(store *memory.Store) {
	name := "Demo Player"
	store.PutUser(&domain.User{ID: "demo-user", Name: &name})
	store.PutTopic(&domain.Topic{ID: "science", Name: "Science"})

	hint := "Think of the chemical symbol Au."
	explanation := "Aurum is Latin for gold, hence the symbol Au."
	store.PutQuestion(&domain.Question{
		ID:           "demo-q1",
		TopicID:      "science",
		QuestionText: "Which element has the chemical symbol Au?",
		Difficulty:   "EASY",
		Hint:         &hint,
		Explanation:  &explanation,
		Answers: []*domain.Answer{
			{ID: "demo-q1-a", QuestionID: "demo-q1", AnswerText: "Gold", IsCorrect: true, DisplayOrder: 1},
			{ID: "demo-q1-b", QuestionID: "demo-q1", AnswerText: "Silver", DisplayOrder: 2},
			{ID: "demo-q1-c", QuestionID: "demo-q1", AnswerText: "Aluminium", DisplayOrder: 3},
		},
	})
	store.PutQuestion(&domain.Question{
		ID:           "demo-q2",
		TopicID:      "science",
		QuestionText: "How many planets orbit the Sun?",
		Difficulty:   "EASY",
		Answers: []*domain.Answer{
			{ID: "demo-q2-a", QuestionID: "demo-q2", AnswerText: "8", IsCorrect: true, DisplayOrder: 1},
			{ID: "demo-q2-b", QuestionID: "demo-q2", AnswerText: "9", DisplayOrder: 2},
		},
	})
	store.PutQuiz(&domain.Quiz{
		ID:                 "demo-quiz",
		Title:              "Science Warmup",
		Slug:               "science-warmup",
		Status:             domain.QuizPublished,
		IsPublished:        true,
		SelectionMode:      domain.SelectionFixed,
		AttemptResetPeriod: domain.ResetNever,
		PassingScore:       50,
		ShowHints:          true,
		Pool: []*domain.QuizQuestionPool{
			{ID: "demo-p1", QuizID: "demo-quiz", QuestionID: "demo-q1", Order: 1, Points: 1},
			{ID: "demo-p2", QuizID: "demo-quiz", QuestionID: "demo-q2", Order: 2, Points: 1},
		},
	})
}
