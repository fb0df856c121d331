package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseLanguage(t *testing.T) {
	if lang, err := ParseLanguage("es"); err != nil || lang != LanguageSpanish {
		t.Fatalf("expected es, got %q err=%v", lang, err)
	}
	if _, err := ParseLanguage("fr"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected unsupported language, got %v", err)
	}
}

func TestStateHelpers(t *testing.T) {
	s := InitialState()
	if _, ok := s.CurrentQuestion(); ok {
		t.Fatalf("expected no current question on intro")
	}
	if s.Progress() != 0 {
		t.Fatalf("expected zero progress without questions")
	}

	s.Step = StepQuiz
	s.Questions = []Question{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	s.Answers = []AnswerRecord{{QuestionID: "a", IsCorrect: true}}
	if !s.AwaitingAdvance() || !s.Answered("a") || s.Answered("b") {
		t.Fatalf("unexpected answer bookkeeping")
	}
	if s.Progress() != 25 {
		t.Fatalf("expected 25%% progress, got %v", s.Progress())
	}

	clone := s.Clone()
	clone.Answers[0].IsCorrect = false
	if !s.Answers[0].IsCorrect {
		t.Fatalf("clone shares answers with the original")
	}
}

func TestQuestionDocumentKinds(t *testing.T) {
	raw := `[
		{"id":"f","type":"face2text","image":"f.webp","choices":[],"correctAnswer":"happy"},
		{"id":"t","type":"text2face","emotionKey":"sad","choices":[],"correctAnswer":"sad"},
		{"id":"e","type":"eyes2text","image":"e.webp","emotionKey":"angry","choices":[],"correctAnswer":"angry"}
	]`
	var questions []Question
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p, ok := questions[0].Prompt.(FacePrompt); !ok || p.Image != "f.webp" {
		t.Fatalf("unexpected face prompt %#v", questions[0].Prompt)
	}
	if p, ok := questions[1].Prompt.(TextPrompt); !ok || p.EmotionKey != "sad" {
		t.Fatalf("unexpected text prompt %#v", questions[1].Prompt)
	}
	if p, ok := questions[2].Prompt.(EyesPrompt); !ok || p.EmotionKey != "angry" || p.Image != "e.webp" {
		t.Fatalf("unexpected eyes prompt %#v", questions[2].Prompt)
	}

	err := json.Unmarshal([]byte(`{"id":"x","type":"voice2text"}`), &Question{})
	if !errors.Is(err, ErrStructural) || !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind to be structural, got %v", err)
	}
}
