package app

import (
	"fmt"

	"faceread-quiz-service/internal/domain"
)

// GradeCutoffs are the percentages of the total a score must reach per tier.
type GradeCutoffs struct {
	Master int `yaml:"master"`
	Expert int `yaml:"expert"`
	Rookie int `yaml:"rookie"`
}

// DefaultGradeCutoffs gives 9/6/3 on a ten-question session.
func DefaultGradeCutoffs() GradeCutoffs {
	return GradeCutoffs{Master: 90, Expert: 60, Rookie: 30}
}

type gradeStep struct {
	min   int
	grade domain.Grade
}

// GradeTable maps a score to a grade. Steps are ordered from the best tier
// down and the last one starts at zero, so every score in [0, total] has
// exactly one grade.
type GradeTable struct {
	total int
	steps []gradeStep
}

// NewGradeTable scales cutoffs to total questions, rounding minimums up.
func NewGradeTable(total int, cutoffs GradeCutoffs) (GradeTable, error) {
	if total < 0 {
		return GradeTable{}, fmt.Errorf("grade table: negative total %d", total)
	}
	if !(100 >= cutoffs.Master && cutoffs.Master >= cutoffs.Expert &&
		cutoffs.Expert >= cutoffs.Rookie && cutoffs.Rookie >= 0) {
		return GradeTable{}, fmt.Errorf("grade table: cutoffs must be descending within 0..100, got %+v", cutoffs)
	}
	minScore := func(pct int) int {
		return (total*pct + 99) / 100
	}
	return GradeTable{
		total: total,
		steps: []gradeStep{
			{min: minScore(cutoffs.Master), grade: domain.GradeMaster},
			{min: minScore(cutoffs.Expert), grade: domain.GradeExpert},
			{min: minScore(cutoffs.Rookie), grade: domain.GradeRookie},
			{min: 0, grade: domain.GradeNovice},
		},
	}, nil
}

// MustGradeTable panics on invalid cutoffs.
func MustGradeTable(total int, cutoffs GradeCutoffs) GradeTable {
	t, err := NewGradeTable(total, cutoffs)
	if err != nil {
		panic(err)
	}
	return t
}

// Grade returns the tier for score.
func (t GradeTable) Grade(score int) domain.Grade {
	for _, s := range t.steps {
		if score >= s.min {
			return s.grade
		}
	}
	return domain.GradeNovice
}

// MinScore returns the lowest score that earns grade.
func (t GradeTable) MinScore(grade domain.Grade) (int, bool) {
	for _, s := range t.steps {
		if s.grade == grade {
			return s.min, true
		}
	}
	return 0, false
}

// ComputeResult summarizes answers. It trusts the records to be well formed.
func ComputeResult(answers []domain.AnswerRecord, totalQuestions int, table GradeTable) domain.QuizResult {
	correct := domain.CountCorrect(answers)
	incorrect := make([]domain.AnswerRecord, 0, len(answers)-correct)
	for _, a := range answers {
		if !a.IsCorrect {
			incorrect = append(incorrect, a)
		}
	}
	return domain.QuizResult{
		Score:            correct,
		TotalQuestions:   totalQuestions,
		Grade:            table.Grade(correct),
		Answers:          append([]domain.AnswerRecord(nil), answers...),
		CorrectCount:     correct,
		IncorrectAnswers: incorrect,
	}
}
