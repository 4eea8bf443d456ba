package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-session-service/internal/app"
	"exam-session-service/internal/config"
	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
	pgstore "exam-session-service/internal/infra/postgres"
	"exam-session-service/internal/infra/provider"
	redisstore "exam-session-service/internal/infra/redis"
	"exam-session-service/internal/logger"
	"exam-session-service/internal/metrics"
	"exam-session-service/internal/render"
	transport "exam-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam server",
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
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 3*time.Hour)

	var pool *pgxpool.Pool
	var results app.ResultRecorder = memory.NewResultStore()
	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateDB(ctx, db, log); err != nil {
			return err
		}
		results = pgstore.NewResultStore(db)

		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	} else if redisClient != nil {
		results = redisstore.NewResultStore(redisClient, config.TTLDuration(cfg.Exam.ResultTTL, 7*24*time.Hour))
	}

	var loader app.QuestionProvider
	switch {
	case pool != nil:
		loader = pgstore.NewQuestionLoader(pool)
		log.Info().Msg("question papers from postgres")
	case cfg.Provider.BaseURL != "":
		loader = provider.NewHTTPProvider(cfg.Provider.BaseURL, config.TTLDuration(cfg.Provider.Timeout, 10*time.Second))
		log.Info().Str("base_url", cfg.Provider.BaseURL).Msg("question papers from provider")
	default:
		loader = memory.NewStaticQuestionLoader(samplePapers())
		log.Warn().Msg("no question source configured, serving sample papers")
	}

	paperTTL := config.TTLDuration(cfg.Exam.PaperTTL, 10*time.Minute)
	var questions app.QuestionProvider
	if redisClient != nil {
		questions = redisstore.NewQuestionRepository(redisClient, loader, paperTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, paperTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	byType, fallback := cfg.ExamDurations()
	examMetrics := metrics.NewExam()
	service := app.NewExamService(store, questions,
		app.WithResultRecorder(results),
		app.WithRenderer(render.NewMathRenderer()),
		app.WithLogger(log),
		app.WithMetrics(examMetrics),
		app.WithDurations(app.Durations{ByTestType: byType, Default: fallback}),
	)
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("GET /results/{sessionId}", transport.NewResultHandler(service, log))
	mux.Handle("/metrics", examMetrics.Handler())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting exam service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// samplePapers is served when neither postgres nor a provider is configured.
func samplePapers() map[string][]domain.Question {
	topic := []domain.Question{
		{
			Prompt:  "What is 2 + 2?",
			Options: [4]string{"3", "4", "5", "22"},
			Correct: domain.OptionB,
		},
		{
			Prompt:  `Solve <span data-value="x^2 = 9"></span> for positive x.`,
			Options: [4]string{"1", "2", "3", "9"},
			Correct: domain.OptionC,
		},
		{
			Prompt:  "Which gas do plants absorb for photosynthesis?",
			Options: [4]string{"Oxygen", "Nitrogen", "Hydrogen", "Carbon dioxide"},
			Correct: domain.OptionD,
		},
	}
	return map[string][]domain.Question{
		"topic-wise":  topic,
		"full-length": append(append([]domain.Question{}, topic...), topic...),
	}
}
