package app

import (
	"context"

	"faceread-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	Len() int
}

// CacheAdmin exposes the question cache to operators.
type CacheAdmin interface {
	CacheStatus() []domain.CacheEntry
	Invalidate()
	InvalidateLanguage(lang domain.Language)
	PreloadAll(ctx context.Context) []domain.LoadResult
}

// CachingQuestionRepository is a question repository with an inspectable cache.
type CachingQuestionRepository interface {
	QuestionRepository
	CacheAdmin
}

// QuizService creates and tracks quiz sessions.
type QuizService struct {
	sessions  SessionRepository
	questions CachingQuestionRepository
	opts      SessionOptions
	log       logrus.FieldLogger
}

func NewQuizService(store SessionRepository, questions CachingQuestionRepository, opts SessionOptions) *QuizService {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &QuizService{sessions: store, questions: questions, opts: opts, log: opts.Logger}
}

// Open creates a new session on the intro step.
func (s *QuizService) Open(_ context.Context) *Session {
	session := NewSession(uuid.NewString(), s.questions, s.opts)
	s.sessions.Put(session)
	s.log.WithFields(logrus.Fields{"session": session.ID(), "live": s.sessions.Len()}).Info("session opened")
	return session
}

// Get returns a live session.
func (s *QuizService) Get(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close tears a session down and forgets it.
func (s *QuizService) Close(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
	s.log.WithField("session", sessionID).Info("session closed")
}

// CacheStatus lists the cached question sets.
func (s *QuizService) CacheStatus() []domain.CacheEntry {
	return s.questions.CacheStatus()
}

// InvalidateCache drops one language, or every language when lang is empty.
func (s *QuizService) InvalidateCache(lang domain.Language) {
	if lang == "" {
		s.questions.Invalidate()
		return
	}
	s.questions.InvalidateLanguage(lang)
}

// Preload warms the cache for every supported language.
func (s *QuizService) Preload(ctx context.Context) []domain.LoadResult {
	return s.questions.PreloadAll(ctx)
}
