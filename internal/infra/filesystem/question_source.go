package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"faceread-quiz-service/internal/domain"
)

// QuestionSource reads per-language documents named questions.<lang>.json.
type QuestionSource struct {
	fsys fs.FS
}

// NewQuestionSource serves documents from dir.
func NewQuestionSource(dir string) *QuestionSource {
	return &QuestionSource{fsys: os.DirFS(dir)}
}

// NewQuestionSourceFS serves documents from fsys.
func NewQuestionSourceFS(fsys fs.FS) *QuestionSource {
	return &QuestionSource{fsys: fsys}
}

// FileName is the document name for lang.
func FileName(lang domain.Language) string {
	return "questions." + string(lang) + ".json"
}

func (s *QuestionSource) LoadQuestions(ctx context.Context, lang domain.Language) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := fs.ReadFile(s.fsys, FileName(lang))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuestionSetNotFound, FileName(lang))
	}
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return DecodeQuestions(raw)
}

// DecodeQuestions parses a question document.
func DecodeQuestions(raw []byte) ([]domain.Question, error) {
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return questions, nil
}

// ReadFile parses the question document at path.
func ReadFile(path string) ([]domain.Question, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return DecodeQuestions(raw)
}
