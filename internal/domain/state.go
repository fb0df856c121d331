package domain

// State is the authoritative state of one quiz session.
// Pool holds every candidate question for PoolLanguage; Questions is the
// selection made for the current attempt.
type State struct {
	Step           Step           `json:"step"`
	Mode           Mode           `json:"mode"`
	Language       Language       `json:"language"`
	PoolLanguage   Language       `json:"poolLanguage,omitempty"`
	Pool           []Question     `json:"-"`
	Questions      []Question     `json:"questions"`
	CurrentIndex   int            `json:"currentIndex"`
	Answers        []AnswerRecord `json:"answers"`
	Score          int            `json:"score"`
	Nickname       string         `json:"nickname"`
	IsLoading      bool           `json:"isLoading"`
	Error          string         `json:"error,omitempty"`
	IsQuizStarted  bool           `json:"isQuizStarted"`
	IsQuizFinished bool           `json:"isQuizFinished"`
}

// InitialState is the state of a freshly created session.
func InitialState() State {
	return State{
		Step:     StepIntro,
		Mode:     ModeStandard,
		Language: LanguageKorean,
	}
}

// CurrentQuestion returns the question at CurrentIndex, if any.
func (s State) CurrentQuestion() (Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// AwaitingAdvance reports whether the current question has been answered
// but the session has not moved past it yet.
func (s State) AwaitingAdvance() bool {
	return s.Step == StepQuiz && len(s.Answers) > s.CurrentIndex
}

// Answered reports whether questionID already has an answer record.
func (s State) Answered(questionID string) bool {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// Progress is the answered share of the session in percent.
func (s State) Progress() float64 {
	if len(s.Questions) == 0 {
		return 0
	}
	return float64(len(s.Answers)) / float64(len(s.Questions)) * 100
}

// Clone returns a copy whose slices can be handed to other goroutines.
func (s State) Clone() State {
	out := s
	out.Pool = append([]Question(nil), s.Pool...)
	out.Questions = append([]Question(nil), s.Questions...)
	out.Answers = append([]AnswerRecord(nil), s.Answers...)
	return out
}

// CountCorrect counts the correct records in answers.
func CountCorrect(answers []AnswerRecord) int {
	n := 0
	for _, a := range answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}
