package cli

import (
	"context"
	"fmt"

	"faceread-quiz-service/internal/config"
	"faceread-quiz-service/internal/domain"
	"faceread-quiz-service/internal/infra/filesystem"
	"faceread-quiz-service/internal/infra/postgres"
	"faceread-quiz-service/internal/validate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads a question document from disk into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var (
		lang string
		file string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Validate a questions.<lang>.json document and store it in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, config.NewLogger(cfg), lang, file)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "language of the document (ko, en, es)")
	cmd.Flags().StringVar(&file, "file", "", "path to the question document")
	_ = cmd.MarkFlagRequired("lang")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, log logrus.FieldLogger, code, file string) error {
	lang, err := domain.ParseLanguage(code)
	if err != nil {
		return fmt.Errorf("seed %q: %w", code, err)
	}
	questions, err := filesystem.ReadFile(file)
	if err != nil {
		return err
	}
	v, err := validate.New()
	if err != nil {
		return err
	}
	if err := v.Questions(lang, questions); err != nil {
		return err
	}

	db, err := openBun(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.NewSeeder(db).Upsert(ctx, lang, questions); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"language": lang, "count": len(questions)}).Info("question set stored")
	return nil
}
