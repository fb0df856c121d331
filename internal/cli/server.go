package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faceread-quiz-service/internal/app"
	"faceread-quiz-service/internal/config"
	"faceread-quiz-service/internal/infra/filesystem"
	"faceread-quiz-service/internal/infra/memory"
	"faceread-quiz-service/internal/infra/postgres"
	infraredis "faceread-quiz-service/internal/infra/redis"
	transport "faceread-quiz-service/internal/transport/http"
	"faceread-quiz-service/internal/validate"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var preload bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, preload)
		},
	}
	cmd.Flags().BoolVar(&preload, "preload", true, "warm the question cache for every language on start")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string, preload bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg)

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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var source memory.QuestionSource
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		source = postgres.NewQuestionSource(pool)
		log.Info("questions served from postgres")
	case cfg.Questions.Dir != "":
		source = filesystem.NewQuestionSource(cfg.Questions.Dir)
		log.WithField("dir", cfg.Questions.Dir).Info("questions served from files")
	default:
		source = memory.NewStaticQuestionSource(memory.SampleQuestionSets(6))
		log.Warn("no question source configured, serving generated sample questions")
	}
	if redisClient != nil {
		source = infraredis.NewQuestionSource(redisClient, source, redisTTL, log)
	}

	loaderCfg, err := cfg.LoaderConfig()
	if err != nil {
		return err
	}
	questions := memory.NewQuestionRepository(source, loaderCfg, log)

	var store app.SessionRepository
	if redisClient != nil {
		store = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	policy := cfg.SelectionPolicy()
	grades, err := app.NewGradeTable(policy.Total, cfg.GradeCutoffs())
	if err != nil {
		return err
	}
	validator, err := validate.New()
	if err != nil {
		return err
	}
	service := app.NewQuizService(store, questions, app.SessionOptions{
		Selector:        app.NewSelector(policy, log),
		Grades:          grades,
		Dwell:           cfg.Dwell(),
		KeepPoolOnReset: cfg.KeepPoolOnReset(),
		Validator:       validator,
		Logger:          log,
	})

	if preload {
		go warmCache(ctx, service, log)
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(service, transport.RouterOptions{
			CORSOrigins: cfg.Server.CORSOrigins,
			Logger:      log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": finalPort, "questions": policy.Total}).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func warmCache(ctx context.Context, service *app.QuizService, log logrus.FieldLogger) {
	for _, res := range service.Preload(ctx) {
		log.WithFields(logrus.Fields{
			"language":  res.Language,
			"count":     len(res.Questions),
			"load_time": res.LoadTime,
		}).Info("question set preloaded")
	}
}
