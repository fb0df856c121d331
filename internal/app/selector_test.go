package app_test

import (
	"math/rand"
	"strings"
	"testing"

	"faceread-quiz-service/internal/app"
	"faceread-quiz-service/internal/domain"
	"faceread-quiz-service/internal/infra/memory"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestSelectStandardHonorsQuotas(t *testing.T) {
	selector := newSelector(app.ClassicPolicy(), 1)
	pool := memory.SampleQuestions(domain.LanguageEnglish, 6)

	selected := selector.Select(pool, domain.ModeStandard)
	if len(selected) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(selected))
	}
	assertDistinct(t, selected)

	counts := countKinds(selected)
	if counts[domain.KindFaceToText] != 4 || counts[domain.KindTextToFace] != 3 || counts[domain.KindEyesToText] != 3 {
		t.Fatalf("unexpected kind mix %v", counts)
	}
}

func TestSelectCurrentPolicy(t *testing.T) {
	selector := newSelector(app.CurrentPolicy(), 2)
	pool := memory.SampleQuestions(domain.LanguageKorean, 20)

	selected := selector.Select(pool, domain.ModeStandard)
	if len(selected) != 15 {
		t.Fatalf("expected 15 questions, got %d", len(selected))
	}
	if counts := countKinds(selected); counts[domain.KindFaceToText] != 15 {
		t.Fatalf("expected face2text only, got %v", counts)
	}
}

func TestSelectPadsUnderfilledQuota(t *testing.T) {
	selector := newSelector(app.ClassicPolicy(), 3)
	var pool []domain.Question
	for _, q := range memory.SampleQuestions(domain.LanguageEnglish, 8) {
		// only one eyes2text question available
		if q.Kind() == domain.KindEyesToText && q.ID != "eyes2text-00" {
			continue
		}
		pool = append(pool, q)
	}

	selected := selector.Select(pool, domain.ModeStandard)
	if len(selected) != 10 {
		t.Fatalf("expected padding up to 10, got %d", len(selected))
	}
	assertDistinct(t, selected)
	if counts := countKinds(selected); counts[domain.KindEyesToText] != 1 {
		t.Fatalf("expected the single eyes question, got %v", counts)
	}
}

func TestSelectShortPoolGivesShorterSession(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	selector := app.NewSelectorWithRand(app.ClassicPolicy(), logger, rand.New(rand.NewSource(4)))
	pool := memory.SampleQuestions(domain.LanguageEnglish, 2)

	selected := selector.Select(pool, domain.ModeStandard)
	if len(selected) != 6 {
		t.Fatalf("expected all 6 candidates, got %d", len(selected))
	}
	if entry := hook.LastEntry(); entry == nil || !strings.Contains(entry.Message, "too small") {
		t.Fatalf("expected short pool warning")
	}
}

func TestSelectDropsDuplicateIDs(t *testing.T) {
	selector := newSelector(app.ClassicPolicy(), 5)
	pool := memory.SampleQuestions(domain.LanguageEnglish, 4)
	pool = append(pool, pool...)

	selected := selector.Select(pool, domain.ModeIntegrated)
	if len(selected) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(selected))
	}
	assertDistinct(t, selected)
}

func TestSelectIsRandomized(t *testing.T) {
	selector := app.NewSelector(app.ClassicPolicy(), nil)
	pool := memory.SampleQuestions(domain.LanguageEnglish, 10)

	orders := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		ids := make([]string, 0, 10)
		for _, q := range selector.Select(pool, domain.ModeIntegrated) {
			ids = append(ids, q.ID)
		}
		orders[strings.Join(ids, ",")] = struct{}{}
	}
	if len(orders) < 2 {
		t.Fatalf("expected different draws over 20 runs")
	}
}

func newSelector(policy app.SelectionPolicy, seed int64) *app.Selector {
	logger, _ := logtest.NewNullLogger()
	return app.NewSelectorWithRand(policy, logger, rand.New(rand.NewSource(seed)))
}

func countKinds(questions []domain.Question) map[domain.Kind]int {
	counts := make(map[domain.Kind]int)
	for _, q := range questions {
		counts[q.Kind()]++
	}
	return counts
}

func assertDistinct(t *testing.T, questions []domain.Question) {
	t.Helper()
	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		if seen[q.ID] {
			t.Fatalf("question %s selected twice", q.ID)
		}
		seen[q.ID] = true
	}
}
