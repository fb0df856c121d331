package postgres

import (
	"context"
	"fmt"
	"time"

	"faceread-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// QuestionSet is the stored document for one language.
type QuestionSet struct {
	bun.BaseModel `bun:"table:question_sets"`

	Language  string            `bun:"language,pk"`
	Data      []domain.Question `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time         `bun:"updated_at,notnull,default:current_timestamp"`
}

// Seeder writes question documents.
type Seeder struct {
	db *bun.DB
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db}
}

// Upsert replaces the question set stored for lang.
func (s *Seeder) Upsert(ctx context.Context, lang domain.Language, questions []domain.Question) error {
	set := &QuestionSet{Language: string(lang), Data: questions, UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().
		Model(set).
		On("CONFLICT (language) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert question set %s: %w", lang, err)
	}
	return nil
}
