package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"faceread-quiz-service/internal/domain"
	"faceread-quiz-service/internal/validate"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// QuestionSource fetches a language's question set from a backing store.
type QuestionSource interface {
	LoadQuestions(ctx context.Context, lang domain.Language) ([]domain.Question, error)
}

// SharedCache is implemented by sources that keep their own copy of a
// question set, such as the Redis source. Invalidations are passed on.
type SharedCache interface {
	Invalidate(ctx context.Context, lang domain.Language) error
}

// LoaderConfig tunes caching, retries and the fallback language.
type LoaderConfig struct {
	CacheEnabled     bool
	FallbackLanguage domain.Language
	// MaxRetries is the total number of fetch attempts per load.
	MaxRetries   int
	RetryBackoff time.Duration
	// TTL of cached sets; zero keeps them until invalidated.
	TTL time.Duration
	// FetchTimeout bounds a shared fetch. The fetch is detached from the
	// caller that started it so other waiters are not cut off by its cancel.
	FetchTimeout time.Duration
}

// DefaultLoaderConfig caches forever, falls back to Korean and tries three times.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		CacheEnabled:     true,
		FallbackLanguage: domain.LanguageKorean,
		MaxRetries:       3,
		RetryBackoff:     100 * time.Millisecond,
		FetchTimeout:     defaultFetchTimeout,
	}
}

const defaultFetchTimeout = 30 * time.Second

// QuestionRepository caches validated question sets per language and
// coalesces concurrent loads of the same language into one fetch.
type QuestionRepository struct {
	source    QuestionSource
	cfg       LoaderConfig
	validator *validate.Validator
	log       logrus.FieldLogger
	clock     func() time.Time
	sf        singleflight.Group
	rndMu     sync.Mutex
	rnd       *rand.Rand

	mu    sync.RWMutex
	cache map[domain.Language]cachedSet
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(source QuestionSource, cfg LoaderConfig, log logrus.FieldLogger) *QuestionRepository {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.FallbackLanguage == "" {
		cfg.FallbackLanguage = domain.LanguageKorean
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	return &QuestionRepository{
		source:    source,
		cfg:       cfg,
		validator: validate.MustNew(),
		log:       log.WithField("component", "question_repository"),
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:     make(map[domain.Language]cachedSet),
	}
}

// Load returns the question set for lang. If lang cannot be loaded it is
// replaced by the fallback language; the result's Language says which set
// was actually served.
func (r *QuestionRepository) Load(ctx context.Context, lang domain.Language) (domain.LoadResult, error) {
	start := r.clock()

	if questions, ok := r.cached(lang); ok {
		return domain.LoadResult{
			Questions: questions,
			Language:  lang,
			FromCache: true,
			LoadTime:  r.clock().Sub(start),
		}, nil
	}

	ch := r.sf.DoChan(string(lang), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := r.cached(lang); ok {
			return questions, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.FetchTimeout)
		defer cancel()
		questions, err := r.fetch(fetchCtx, lang)
		if err != nil {
			return nil, err
		}
		if r.cfg.CacheEnabled {
			entry := cachedSet{questions: questions}
			if ttl := r.ttlWithJitter(); ttl > 0 {
				entry.expiresAt = r.clock().Add(ttl)
			}
			r.mu.Lock()
			r.cache[lang] = entry
			r.mu.Unlock()
		}
		return questions, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return domain.LoadResult{}, fmt.Errorf("%w for language %s: %w", domain.ErrLoadFailed, lang, ctx.Err())
	}
	result, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		if lang != r.cfg.FallbackLanguage && ctx.Err() == nil && !timedOut(err) {
			r.log.WithError(err).WithFields(logrus.Fields{
				"language": lang,
				"fallback": r.cfg.FallbackLanguage,
			}).Warn("falling back to default question language")
			return r.Load(ctx, r.cfg.FallbackLanguage)
		}
		return domain.LoadResult{}, fmt.Errorf("%w for language %s: %w", domain.ErrLoadFailed, lang, err)
	}

	questions := result.([]domain.Question)
	elapsed := r.clock().Sub(start)
	r.log.WithFields(logrus.Fields{
		"language": lang,
		"count":    len(questions),
		"elapsed":  elapsed,
		"shared":   shared,
	}).Debug("questions loaded")
	return domain.LoadResult{
		Questions: questions,
		Language:  lang,
		LoadTime:  elapsed,
	}, nil
}

// fetch reads and validates a set, retrying source errors with a constant
// backoff. Structural errors are not retried.
func (r *QuestionRepository) fetch(ctx context.Context, lang domain.Language) ([]domain.Question, error) {
	var questions []domain.Question
	attempt := 0
	operation := func() error {
		attempt++
		loaded, err := r.source.LoadQuestions(ctx, lang)
		if err != nil {
			if errors.Is(err, domain.ErrStructural) || errors.Is(err, domain.ErrQuestionSetNotFound) {
				return backoff.Permanent(err)
			}
			r.log.WithError(err).WithFields(logrus.Fields{
				"language": lang,
				"attempt":  attempt,
			}).Debug("question fetch failed")
			return err
		}
		if err := r.validator.Questions(lang, loaded); err != nil {
			return backoff.Permanent(err)
		}
		questions = loaded
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.RetryBackoff), uint64(r.cfg.MaxRetries-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *QuestionRepository) cached(lang domain.Language) ([]domain.Question, bool) {
	if !r.cfg.CacheEnabled {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[lang]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return entry.questions, true
}

// CacheStatus lists cached languages and their question counts.
func (r *QuestionRepository) CacheStatus() []domain.CacheEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]domain.CacheEntry, 0, len(r.cache))
	for lang, set := range r.cache {
		entries = append(entries, domain.CacheEntry{Language: lang, Count: len(set.questions)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Language < entries[j].Language })
	return entries
}

// Invalidate drops every cached set.
func (r *QuestionRepository) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[domain.Language]cachedSet)
	r.mu.Unlock()
	r.invalidateShared(domain.SupportedLanguages()...)
	r.log.Info("question cache cleared")
}

// InvalidateLanguage drops the cached set for lang.
func (r *QuestionRepository) InvalidateLanguage(lang domain.Language) {
	r.mu.Lock()
	delete(r.cache, lang)
	r.mu.Unlock()
	r.invalidateShared(lang)
	r.log.WithField("language", lang).Info("question cache cleared for language")
}

func (r *QuestionRepository) invalidateShared(langs ...domain.Language) {
	shared, ok := r.source.(SharedCache)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, lang := range langs {
		if err := shared.Invalidate(ctx, lang); err != nil {
			r.log.WithError(err).WithField("language", lang).Warn("failed to invalidate shared question cache")
		}
	}
}

// Preload loads each language concurrently and returns the successful
// results in the order given. Failed languages are logged and skipped.
func (r *QuestionRepository) Preload(ctx context.Context, langs ...domain.Language) []domain.LoadResult {
	results := make([]*domain.LoadResult, len(langs))
	var wg sync.WaitGroup
	for i, lang := range langs {
		wg.Add(1)
		go func(i int, lang domain.Language) {
			defer wg.Done()
			res, err := r.Load(ctx, lang)
			if err != nil {
				r.log.WithError(err).WithField("language", lang).Warn("preload failed")
				return
			}
			results[i] = &res
		}(i, lang)
	}
	wg.Wait()

	out := make([]domain.LoadResult, 0, len(langs))
	for _, res := range results {
		if res != nil {
			out = append(out, *res)
		}
	}
	return out
}

// PreloadAll preloads every supported language.
func (r *QuestionRepository) PreloadAll(ctx context.Context) []domain.LoadResult {
	return r.Preload(ctx, domain.SupportedLanguages()...)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.cfg.TTL <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.cfg.TTL) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.cfg.TTL + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionSource is a source backed by an in-memory map (useful for tests/demos).
type StaticQuestionSource struct {
	sets map[domain.Language][]domain.Question
}

func NewStaticQuestionSource(sets map[domain.Language][]domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{sets: sets}
}

func (s *StaticQuestionSource) LoadQuestions(_ context.Context, lang domain.Language) ([]domain.Question, error) {
	if questions, ok := s.sets[lang]; ok {
		return questions, nil
	}
	return nil, domain.ErrQuestionSetNotFound
}

// timedOut reports whether err came from an expired or cancelled fetch
// rather than from the source itself.
func timedOut(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
