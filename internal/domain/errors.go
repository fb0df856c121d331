package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuestionSetNotFound indicates a source has no questions for a language.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrUnsupportedLanguage indicates a language code outside the supported set.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrLoadFailed is returned when questions could not be loaded even after fallback.
	ErrLoadFailed = errors.New("failed to load questions")
	// ErrStructural indicates loaded questions violate the question invariants.
	ErrStructural = errors.New("invalid question structure")
	// ErrUnknownKind indicates a question type outside the supported set.
	ErrUnknownKind = errors.New("unknown question type")
)
