package app

import "faceread-quiz-service/internal/domain"

// Command is a state transition request applied by Reduce.
type Command interface {
	Name() string
}

type (
	// LoadStarted marks a question load as in flight.
	LoadStarted struct{}
	// LoadSucceeded replaces the candidate pool.
	LoadSucceeded struct {
		Language domain.Language
		Pool     []domain.Question
	}
	// LoadFailed records a displayable load error.
	LoadFailed struct {
		Message string
	}
	// QuizStarted begins an attempt over an already selected question list.
	QuizStarted struct {
		Mode      domain.Mode
		Language  domain.Language
		Questions []domain.Question
	}
	// AnswerRecorded appends the answer to the current question.
	AnswerRecorded struct {
		Answer domain.AnswerRecord
	}
	// QuestionAdvanced moves past the answered question at From.
	QuestionAdvanced struct {
		From int
	}
	// QuizFinished ends the attempt after the last question at From was answered.
	QuizFinished struct {
		From int
	}
	// QuizReset abandons the attempt and returns to defaults.
	QuizReset struct {
		KeepPool bool
	}
	// QuizRestarted goes from the result back to the intro for a replay.
	QuizRestarted struct{}
	// NicknameSet stores an already validated nickname.
	NicknameSet struct {
		Nickname string
	}
	// StepSet moves to Step when the transition is allowed.
	StepSet struct {
		Step domain.Step
	}
)

func (LoadStarted) Name() string      { return "LOAD_QUESTIONS_START" }
func (LoadSucceeded) Name() string    { return "LOAD_QUESTIONS_SUCCESS" }
func (LoadFailed) Name() string       { return "LOAD_QUESTIONS_ERROR" }
func (QuizStarted) Name() string      { return "START_QUIZ" }
func (AnswerRecorded) Name() string   { return "SUBMIT_ANSWER" }
func (QuestionAdvanced) Name() string { return "NEXT_QUESTION" }
func (QuizFinished) Name() string     { return "FINISH_QUIZ" }
func (QuizReset) Name() string        { return "RESET_QUIZ" }
func (QuizRestarted) Name() string    { return "RESTART_QUIZ" }
func (NicknameSet) Name() string      { return "SET_NICKNAME" }
func (StepSet) Name() string          { return "SET_STEP" }

// Reduce applies cmd to s and reports whether it was applied. Commands that
// are not valid in the current state leave s untouched. Reduce never mutates
// the slices of s in place.
func Reduce(s domain.State, cmd Command) (domain.State, bool) {
	switch c := cmd.(type) {
	case LoadStarted:
		s.IsLoading = true
		s.Error = ""
		return s, true

	case LoadSucceeded:
		s.Pool = c.Pool
		s.PoolLanguage = c.Language
		s.IsLoading = false
		s.Error = ""
		return s, true

	case LoadFailed:
		s.IsLoading = false
		s.Error = c.Message
		return s, true

	case QuizStarted:
		if s.Step != domain.StepIntro || len(c.Questions) == 0 {
			return s, false
		}
		s.Mode = c.Mode
		s.Language = c.Language
		s.Questions = c.Questions
		s.CurrentIndex = 0
		s.Answers = nil
		s.Score = 0
		s.IsQuizStarted = true
		s.IsQuizFinished = false
		s.Step = domain.StepQuiz
		return s, true

	case AnswerRecorded:
		current, ok := s.CurrentQuestion()
		if !ok || s.Step != domain.StepQuiz || s.AwaitingAdvance() {
			return s, false
		}
		if c.Answer.QuestionID != current.ID || s.Answered(current.ID) {
			return s, false
		}
		answers := make([]domain.AnswerRecord, len(s.Answers), len(s.Answers)+1)
		copy(answers, s.Answers)
		s.Answers = append(answers, c.Answer)
		s.Score = domain.CountCorrect(s.Answers)
		return s, true

	case QuestionAdvanced:
		if !s.AwaitingAdvance() || c.From != s.CurrentIndex || c.From >= len(s.Questions)-1 {
			return s, false
		}
		s.CurrentIndex++
		return s, true

	case QuizFinished:
		if !s.AwaitingAdvance() || c.From != s.CurrentIndex || c.From != len(s.Questions)-1 {
			return s, false
		}
		s.CurrentIndex = len(s.Questions)
		s.IsQuizFinished = true
		s.Step = domain.StepResult
		return s, true

	case QuizReset:
		next := domain.InitialState()
		if c.KeepPool {
			next.Pool = s.Pool
			next.PoolLanguage = s.PoolLanguage
		}
		next.IsLoading = s.IsLoading
		next.Error = s.Error
		return next, true

	case QuizRestarted:
		if s.Step != domain.StepResult {
			return s, false
		}
		next := domain.InitialState()
		next.Mode = s.Mode
		next.Language = s.Language
		next.Nickname = s.Nickname
		next.Pool = s.Pool
		next.PoolLanguage = s.PoolLanguage
		return next, true

	case NicknameSet:
		s.Nickname = c.Nickname
		return s, true

	case StepSet:
		if !stepAllowed(s, c.Step) {
			return s, false
		}
		s.Step = c.Step
		return s, true
	}
	return s, false
}

// stepAllowed covers the transitions a caller may request directly:
// quiz or result back to intro, intro into an unfinished selection, and
// quiz to result once the attempt is finished.
func stepAllowed(s domain.State, to domain.Step) bool {
	switch {
	case s.Step == to:
		return false
	case to == domain.StepIntro:
		return true
	case s.Step == domain.StepIntro && to == domain.StepQuiz:
		return len(s.Questions) > 0 && !s.IsQuizFinished
	case s.Step == domain.StepQuiz && to == domain.StepResult:
		return s.IsQuizFinished
	}
	return false
}
