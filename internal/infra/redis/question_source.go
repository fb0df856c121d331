package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"faceread-quiz-service/internal/domain"
	"faceread-quiz-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const loadTimeout = 30 * time.Second

// QuestionSource shares question documents between service instances.
// Each language is cached as one JSON value:
//
//	SET questions:{lang} <document> EX <ttl>
//
// and loaded from the wrapped source on a miss.
type QuestionSource struct {
	client *redis.Client
	source memory.QuestionSource
	ttl    time.Duration
	log    logrus.FieldLogger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionSource(client *redis.Client, source memory.QuestionSource, ttl time.Duration, log logrus.FieldLogger) *QuestionSource {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QuestionSource{
		client: client,
		source: source,
		ttl:    ttl,
		log:    log.WithField("component", "redis_question_cache"),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *QuestionSource) LoadQuestions(ctx context.Context, lang domain.Language) ([]domain.Question, error) {
	if questions, ok := s.cached(ctx, lang); ok {
		return questions, nil
	}

	ch := s.sf.DoChan(string(lang), func() (interface{}, error) {
		// The load outlives the caller that started it; later callers share it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		// Re-check cache in case another goroutine filled it.
		if questions, ok := s.cached(loadCtx, lang); ok {
			return questions, nil
		}

		questions, err := s.source.LoadQuestions(loadCtx, lang)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		if err := s.client.Set(loadCtx, Key(lang), data, s.ttlWithJitter()).Err(); err != nil {
			// the document is still served, only sharing is lost
			s.log.WithError(err).WithField("language", lang).Warn("failed to cache questions in redis")
		}
		return questions, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Question), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate removes the shared copy for lang.
func (s *QuestionSource) Invalidate(ctx context.Context, lang domain.Language) error {
	return s.client.Del(ctx, Key(lang)).Err()
}

// Key is the Redis key holding lang's question document.
func Key(lang domain.Language) string {
	return "questions:" + string(lang)
}

func (s *QuestionSource) cached(ctx context.Context, lang domain.Language) ([]domain.Question, bool) {
	raw, err := s.client.Get(ctx, Key(lang)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).WithField("language", lang).Warn("redis read failed")
		}
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		s.log.WithError(err).WithField("language", lang).Warn("dropping undecodable cached questions")
		return nil, false
	}
	return questions, true
}

func (s *QuestionSource) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
