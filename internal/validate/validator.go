package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"faceread-quiz-service/internal/domain"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9\x{AC00}-\x{D7A3}]{1,10}$`)

// Validator checks question sets and player input.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// StructuralError lists the invariant violations found in a question set.
type StructuralError struct {
	Language domain.Language
	Fields   map[string]string
}

func (e *StructuralError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("invalid questions for %s: %s", e.Language, strings.Join(parts, "; "))
}

func (e *StructuralError) Unwrap() error {
	return domain.ErrStructural
}

// New builds a Validator with English messages and the nickname, kind and
// choice rules registered.
func New() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	trans, found := uni.GetTranslator("en")
	if !found {
		return nil, fmt.Errorf("english translator not found")
	}
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("register default translations: %w", err)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.RegisterValidation("nickname", func(fl validator.FieldLevel) bool {
		return nicknamePattern.MatchString(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register nickname validation: %w", err)
	}
	v.RegisterStructValidation(questionStructLevel, domain.Question{})

	messages := []struct{ tag, text string }{
		{"kind", "{0} must be one of face2text, text2face or eyes2text"},
		{"choice", "{0} must match one of the choice ids"},
		{"nickname", "{0} must be 1-10 letters, digits or Hangul syllables"},
	}
	for _, m := range messages {
		if err := registerTranslation(v, trans, m.tag, m.text); err != nil {
			return nil, fmt.Errorf("register %s translation: %w", m.tag, err)
		}
	}

	return &Validator{validate: v, trans: trans}, nil
}

// MustNew is New for package-level and constructor use; it panics if the
// built-in rules cannot be registered.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Nickname reports whether value is an acceptable player nickname.
func (v *Validator) Nickname(value string) bool {
	return v.validate.Var(value, "nickname") == nil
}

// Questions validates a loaded question set. Every question must carry an
// id, a supported kind, exactly four uniquely identified choices and a
// correct answer among those choices; ids must be unique across the set.
func (v *Validator) Questions(lang domain.Language, questions []domain.Question) error {
	fields := make(map[string]string)
	if len(questions) == 0 {
		fields["questions"] = "no questions found"
		return &StructuralError{Language: lang, Fields: fields}
	}

	seen := make(map[string]int, len(questions))
	for i, q := range questions {
		label := fmt.Sprintf("[%d]", i)
		if q.ID != "" {
			label = q.ID
			if prev, dup := seen[q.ID]; dup {
				fields[label+".id"] = fmt.Sprintf("duplicates question [%d]", prev)
			}
			seen[q.ID] = i
		}

		err := v.validate.Struct(q)
		if err == nil {
			continue
		}
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate question %s: %w", label, err)
		}
		for _, fe := range errs {
			fields[label+"."+fieldPath(fe)] = fe.Translate(v.trans)
		}
	}

	if len(fields) > 0 {
		return &StructuralError{Language: lang, Fields: fields}
	}
	return nil
}

func questionStructLevel(sl validator.StructLevel) {
	q := sl.Current().Interface().(domain.Question)

	supported := false
	for _, k := range domain.SupportedKinds() {
		if q.Kind() == k {
			supported = true
			break
		}
	}
	if !supported {
		sl.ReportError(string(q.Kind()), "type", "Prompt", "kind", "")
	}

	if q.CorrectChoiceID != "" && !q.HasChoice(q.CorrectChoiceID) {
		sl.ReportError(q.CorrectChoiceID, "correctAnswer", "CorrectChoiceID", "choice", "")
	}
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string) error {
	return v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return t
		},
	)
}
