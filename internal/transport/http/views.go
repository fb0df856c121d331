package http

import (
	"faceread-quiz-service/internal/app"
	"faceread-quiz-service/internal/domain"
)

type questionView struct {
	ID          string                     `json:"id"`
	Type        domain.Kind                `json:"type"`
	Image       string                     `json:"image,omitempty"`
	EmotionKey  string                     `json:"emotionKey,omitempty"`
	Choices     []domain.Choice            `json:"choices"`
	Correct     string                     `json:"correctAnswer,omitempty"`
	Explanation map[domain.Language]string `json:"explanation,omitempty"`
}

type stateView struct {
	SessionID       string                `json:"sessionId"`
	Step            domain.Step           `json:"step"`
	Mode            domain.Mode           `json:"mode"`
	Language        domain.Language       `json:"language"`
	PoolLanguage    domain.Language       `json:"poolLanguage,omitempty"`
	PoolSize        int                   `json:"poolSize"`
	Nickname        string                `json:"nickname"`
	CurrentIndex    int                   `json:"currentIndex"`
	TotalQuestions  int                   `json:"totalQuestions"`
	Score           int                   `json:"score"`
	Progress        float64               `json:"progress"`
	IsLoading       bool                  `json:"isLoading"`
	Error           string                `json:"error,omitempty"`
	IsQuizStarted   bool                  `json:"isQuizStarted"`
	IsQuizFinished  bool                  `json:"isQuizFinished"`
	CurrentQuestion *questionView         `json:"currentQuestion,omitempty"`
	Answers         []domain.AnswerRecord `json:"answers"`
	Result          *domain.QuizResult    `json:"result,omitempty"`
}

// newStateView renders a snapshot for the client. The correct answer of the
// current question is only revealed once that question has been answered.
func newStateView(sessionID string, s domain.State, grades func(domain.State) (domain.QuizResult, bool)) stateView {
	view := stateView{
		SessionID:      sessionID,
		Step:           s.Step,
		Mode:           s.Mode,
		Language:       s.Language,
		PoolLanguage:   s.PoolLanguage,
		PoolSize:       len(s.Pool),
		Nickname:       s.Nickname,
		CurrentIndex:   s.CurrentIndex,
		TotalQuestions: len(s.Questions),
		Score:          s.Score,
		Progress:       s.Progress(),
		IsLoading:      s.IsLoading,
		Error:          s.Error,
		IsQuizStarted:  s.IsQuizStarted,
		IsQuizFinished: s.IsQuizFinished,
		Answers:        s.Answers,
	}
	if view.Answers == nil {
		view.Answers = []domain.AnswerRecord{}
	}
	if q, ok := s.CurrentQuestion(); ok {
		qv := newQuestionView(q, s.Answered(q.ID))
		view.CurrentQuestion = &qv
	}
	if result, ok := grades(s); ok {
		view.Result = &result
	}
	return view
}

func newQuestionView(q domain.Question, reveal bool) questionView {
	view := questionView{ID: q.ID, Type: q.Kind(), Choices: q.Choices}
	switch p := q.Prompt.(type) {
	case domain.FacePrompt:
		view.Image = p.Image
	case domain.TextPrompt:
		view.EmotionKey = p.EmotionKey
	case domain.EyesPrompt:
		view.Image = p.Image
		view.EmotionKey = p.EmotionKey
	}
	if reveal {
		view.Correct = q.CorrectChoiceID
		view.Explanation = q.Explanation
	}
	return view
}

// resultFor adapts a session's grade table to newStateView.
func resultFor(session *app.Session) func(domain.State) (domain.QuizResult, bool) {
	return func(s domain.State) (domain.QuizResult, bool) {
		if !s.IsQuizFinished {
			return domain.QuizResult{}, false
		}
		return session.ResultFor(s), true
	}
}
