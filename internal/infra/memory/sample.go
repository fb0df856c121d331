package memory

import (
	"fmt"

	"faceread-quiz-service/internal/domain"
)

var emotions = []string{"happy", "sad", "angry", "surprised", "fearful", "disgusted"}

var emotionLabels = map[domain.Language]map[string]string{
	domain.LanguageKorean: {
		"happy": "기쁨", "sad": "슬픔", "angry": "화남",
		"surprised": "놀람", "fearful": "두려움", "disgusted": "혐오",
	},
	domain.LanguageEnglish: {
		"happy": "Happy", "sad": "Sad", "angry": "Angry",
		"surprised": "Surprised", "fearful": "Fearful", "disgusted": "Disgusted",
	},
	domain.LanguageSpanish: {
		"happy": "Feliz", "sad": "Triste", "angry": "Enojado",
		"surprised": "Sorprendido", "fearful": "Asustado", "disgusted": "Asqueado",
	},
}

// SampleQuestionSets builds perKind questions of every kind for every
// supported language. It backs the demo server when no source is configured.
func SampleQuestionSets(perKind int) map[domain.Language][]domain.Question {
	sets := make(map[domain.Language][]domain.Question, len(emotionLabels))
	for _, lang := range domain.SupportedLanguages() {
		sets[lang] = SampleQuestions(lang, perKind)
	}
	return sets
}

// SampleQuestions builds perKind questions of every kind in lang.
func SampleQuestions(lang domain.Language, perKind int) []domain.Question {
	labels := emotionLabels[lang]
	questions := make([]domain.Question, 0, perKind*len(domain.SupportedKinds()))
	for _, kind := range domain.SupportedKinds() {
		for i := 0; i < perKind; i++ {
			choices := make([]domain.Choice, 4)
			for c := range choices {
				emotion := emotions[(i+c)%len(emotions)]
				choices[c] = domain.Choice{ID: emotion, Text: labels[emotion]}
				if kind == domain.KindTextToFace {
					choices[c].Image = fmt.Sprintf("/images/faces/%s-%02d.webp", emotion, i)
				}
			}
			correct := choices[i%4].ID
			image := fmt.Sprintf("/images/%s/%s-%02d.webp", kind, correct, i)

			var prompt domain.Prompt
			switch kind {
			case domain.KindFaceToText:
				prompt = domain.FacePrompt{Image: image}
			case domain.KindTextToFace:
				prompt = domain.TextPrompt{EmotionKey: correct}
			case domain.KindEyesToText:
				prompt = domain.EyesPrompt{Image: image, EmotionKey: correct}
			}

			questions = append(questions, domain.Question{
				ID:              fmt.Sprintf("%s-%02d", kind, i),
				Prompt:          prompt,
				Choices:         choices,
				CorrectChoiceID: correct,
				Explanation: map[domain.Language]string{
					lang: fmt.Sprintf("%s: %s", labels[correct], correct),
				},
			})
		}
	}
	return questions
}
