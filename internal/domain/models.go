package domain

import "time"

// Language is a supported question-set language code.
type Language string

const (
	LanguageKorean  Language = "ko"
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
)

// SupportedLanguages lists every language a question set can be published in.
func SupportedLanguages() []Language {
	return []Language{LanguageKorean, LanguageEnglish, LanguageSpanish}
}

// ParseLanguage returns the language for code or ErrUnsupportedLanguage.
func ParseLanguage(code string) (Language, error) {
	for _, lang := range SupportedLanguages() {
		if string(lang) == code {
			return lang, nil
		}
	}
	return "", ErrUnsupportedLanguage
}

// Mode selects how a session's questions are drawn from the candidate pool.
type Mode string

const (
	ModeStandard   Mode = "standard"
	ModeIntegrated Mode = "integrated"
)

// Step is the coarse screen a session is on.
type Step string

const (
	StepIntro  Step = "intro"
	StepQuiz   Step = "quiz"
	StepResult Step = "result"
)

// Grade is the tier label derived from a final score.
type Grade string

const (
	GradeMaster Grade = "master"
	GradeExpert Grade = "expert"
	GradeRookie Grade = "rookie"
	GradeNovice Grade = "novice"
)

// Choice is one of the four answers offered by a question.
type Choice struct {
	ID    string `json:"id" validate:"required"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// AnswerRecord is the immutable outcome of answering one question.
type AnswerRecord struct {
	QuestionID       string        `json:"questionId"`
	SelectedChoiceID string        `json:"selectedAnswerId"`
	CorrectChoiceID  string        `json:"correctAnswerId"`
	IsCorrect        bool          `json:"isCorrect"`
	TimeSpent        time.Duration `json:"timeSpent"`
}

// QuizResult is derived from a finished session; it is never stored.
type QuizResult struct {
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"totalQuestions"`
	Grade            Grade          `json:"grade"`
	Answers          []AnswerRecord `json:"answers"`
	CorrectCount     int            `json:"correctAnswers"`
	IncorrectAnswers []AnswerRecord `json:"incorrectAnswers"`
}

// LoadResult is what the question repository hands back for a language.
type LoadResult struct {
	Questions []Question
	Language  Language
	FromCache bool
	LoadTime  time.Duration
}

// CacheEntry describes one cached question set.
type CacheEntry struct {
	Language Language `json:"language"`
	Count    int      `json:"count"`
}
