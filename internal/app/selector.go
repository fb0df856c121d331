package app

import (
	"math/rand"
	"sync"
	"time"

	"faceread-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// Quota is the number of questions drawn from one kind in standard mode.
type Quota struct {
	Kind  domain.Kind `yaml:"kind"`
	Count int         `yaml:"count"`
}

// SelectionPolicy fixes the session length and the standard-mode kind mix.
type SelectionPolicy struct {
	Total  int
	Quotas []Quota
}

// ClassicPolicy is the three-kind, ten-question mix.
func ClassicPolicy() SelectionPolicy {
	return SelectionPolicy{
		Total: 10,
		Quotas: []Quota{
			{Kind: domain.KindFaceToText, Count: 4},
			{Kind: domain.KindTextToFace, Count: 3},
			{Kind: domain.KindEyesToText, Count: 3},
		},
	}
}

// CurrentPolicy draws fifteen face-to-text questions.
func CurrentPolicy() SelectionPolicy {
	return SelectionPolicy{
		Total:  15,
		Quotas: []Quota{{Kind: domain.KindFaceToText, Count: 15}},
	}
}

// Selector draws the ordered question list for a session.
type Selector struct {
	policy SelectionPolicy
	log    logrus.FieldLogger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSelector(policy SelectionPolicy, log logrus.FieldLogger) *Selector {
	return NewSelectorWithRand(policy, log, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSelectorWithRand is used by tests that need a reproducible draw.
func NewSelectorWithRand(policy SelectionPolicy, log logrus.FieldLogger, rnd *rand.Rand) *Selector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Selector{policy: policy, log: log, rnd: rnd}
}

// Policy returns the selector's policy.
func (s *Selector) Policy() SelectionPolicy {
	return s.policy
}

// Select returns at most policy.Total distinct questions from pool.
//
// In standard mode every kind is shuffled on its own and cut to its quota;
// quotas the pool cannot fill are topped up from the leftovers of all kinds,
// and the result is shuffled again so kinds are interleaved. In integrated
// mode the whole pool is shuffled and truncated.
func (s *Selector) Select(pool []domain.Question, mode domain.Mode) []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool = distinct(pool)
	var selected []domain.Question
	switch mode {
	case domain.ModeIntegrated:
		selected = truncate(s.shuffle(pool), s.policy.Total)
	default:
		selected = s.selectStandard(pool)
	}

	if len(selected) < s.policy.Total {
		s.log.WithFields(logrus.Fields{
			"mode":     mode,
			"selected": len(selected),
			"total":    s.policy.Total,
		}).Warn("candidate pool too small, session will be shorter")
	}
	return selected
}

func (s *Selector) selectStandard(pool []domain.Question) []domain.Question {
	byKind := make(map[domain.Kind][]domain.Question)
	for _, q := range pool {
		byKind[q.Kind()] = append(byKind[q.Kind()], q)
	}

	selected := make([]domain.Question, 0, s.policy.Total)
	var leftovers []domain.Question
	for _, quota := range s.policy.Quotas {
		part := s.shuffle(byKind[quota.Kind])
		n := min(quota.Count, len(part))
		selected = append(selected, part[:n]...)
		leftovers = append(leftovers, part[n:]...)
		delete(byKind, quota.Kind)
	}
	for _, rest := range byKind {
		leftovers = append(leftovers, rest...)
	}

	if missing := s.policy.Total - len(selected); missing > 0 && len(leftovers) > 0 {
		selected = append(selected, truncate(s.shuffle(leftovers), missing)...)
	}
	return truncate(s.shuffle(selected), s.policy.Total)
}

// shuffle returns a uniformly permuted copy of in.
func (s *Selector) shuffle(in []domain.Question) []domain.Question {
	out := append([]domain.Question(nil), in...)
	s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func truncate(in []domain.Question, n int) []domain.Question {
	if n < 0 || len(in) <= n {
		return in
	}
	return in[:n]
}

// distinct keeps the first question for every id.
func distinct(pool []domain.Question) []domain.Question {
	seen := make(map[string]struct{}, len(pool))
	out := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
