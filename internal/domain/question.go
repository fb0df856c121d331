package domain

import (
	"encoding/json"
	"fmt"
)

// Kind is the presentation variant of a question.
type Kind string

const (
	// KindFaceToText shows a face and asks for the emotion label.
	KindFaceToText Kind = "face2text"
	// KindTextToFace shows an emotion label and asks for the matching face.
	KindTextToFace Kind = "text2face"
	// KindEyesToText shows only the eye region and asks for the emotion label.
	KindEyesToText Kind = "eyes2text"
)

// SupportedKinds lists the kinds a loaded question may carry.
func SupportedKinds() []Kind {
	return []Kind{KindFaceToText, KindTextToFace, KindEyesToText}
}

// Prompt is the kind-specific content shown to the player.
type Prompt interface {
	Kind() Kind
}

// FacePrompt shows a full face image.
type FacePrompt struct {
	Image string
}

func (FacePrompt) Kind() Kind { return KindFaceToText }

// TextPrompt names an emotion; the choices carry the images.
type TextPrompt struct {
	EmotionKey string
}

func (TextPrompt) Kind() Kind { return KindTextToFace }

// EyesPrompt shows a cropped eye-region image with its emotion key.
type EyesPrompt struct {
	Image      string
	EmotionKey string
}

func (EyesPrompt) Kind() Kind { return KindEyesToText }

// Question is a single multiple-choice quiz item.
type Question struct {
	ID              string              `json:"id" validate:"required"`
	Prompt          Prompt              `json:"-" validate:"-"`
	Choices         []Choice            `json:"choices" validate:"len=4,unique=ID,dive"`
	CorrectChoiceID string              `json:"correctAnswer" validate:"required"`
	Explanation     map[Language]string `json:"explanation,omitempty" validate:"-"`
}

// Kind reports the question's kind, or "" when it has no prompt.
func (q Question) Kind() Kind {
	if q.Prompt == nil {
		return ""
	}
	return q.Prompt.Kind()
}

// HasChoice reports whether id is one of the question's choices.
func (q Question) HasChoice(id string) bool {
	for _, c := range q.Choices {
		if c.ID == id {
			return true
		}
	}
	return false
}

// questionDoc is the per-language document shape of a question.
type questionDoc struct {
	ID            string              `json:"id"`
	Type          Kind                `json:"type"`
	Image         string              `json:"image,omitempty"`
	EmotionKey    string              `json:"emotionKey,omitempty"`
	Choices       []Choice            `json:"choices"`
	CorrectAnswer string              `json:"correctAnswer"`
	Explanation   map[Language]string `json:"explanation,omitempty"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	doc := questionDoc{
		ID:            q.ID,
		Type:          q.Kind(),
		Choices:       q.Choices,
		CorrectAnswer: q.CorrectChoiceID,
		Explanation:   q.Explanation,
	}
	switch p := q.Prompt.(type) {
	case FacePrompt:
		doc.Image = p.Image
	case TextPrompt:
		doc.EmotionKey = p.EmotionKey
	case EyesPrompt:
		doc.Image = p.Image
		doc.EmotionKey = p.EmotionKey
	}
	return json.Marshal(doc)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var doc questionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var prompt Prompt
	switch doc.Type {
	case KindFaceToText:
		prompt = FacePrompt{Image: doc.Image}
	case KindTextToFace:
		prompt = TextPrompt{EmotionKey: doc.EmotionKey}
	case KindEyesToText:
		prompt = EyesPrompt{Image: doc.Image, EmotionKey: doc.EmotionKey}
	default:
		return fmt.Errorf("%w: %w %q in question %q", ErrStructural, ErrUnknownKind, doc.Type, doc.ID)
	}
	*q = Question{
		ID:              doc.ID,
		Prompt:          prompt,
		Choices:         doc.Choices,
		CorrectChoiceID: doc.CorrectAnswer,
		Explanation:     doc.Explanation,
	}
	return nil
}
