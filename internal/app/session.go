package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"faceread-quiz-service/internal/domain"
	"faceread-quiz-service/internal/validate"
	"github.com/sirupsen/logrus"
)

// DefaultDwell is how long an answered question stays on screen before the
// session moves on.
const DefaultDwell = 1200 * time.Millisecond

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("quiz session closed")

// QuestionRepository loads the candidate pool for a language.
type QuestionRepository interface {
	Load(ctx context.Context, lang domain.Language) (domain.LoadResult, error)
}

// SessionOptions configures a Session. Zero values fall back to defaults,
// except Dwell where zero means answers advance immediately.
type SessionOptions struct {
	Selector        *Selector
	Grades          GradeTable
	Dwell           time.Duration
	KeepPoolOnReset bool
	Validator       *validate.Validator
	Logger          logrus.FieldLogger
	Clock           func() time.Time
}

// DefaultSessionOptions uses the ten-question classic policy.
func DefaultSessionOptions() SessionOptions {
	policy := ClassicPolicy()
	return SessionOptions{
		Selector:        NewSelector(policy, nil),
		Grades:          MustGradeTable(policy.Total, DefaultGradeCutoffs()),
		Dwell:           DefaultDwell,
		KeepPoolOnReset: true,
	}
}

// Session owns the state of one quiz attempt. All mutations go through
// Reduce while holding mu; the only other writer is the dwell timer, which
// is tied to the epoch it was scheduled in.
type Session struct {
	id        string
	createdAt time.Time
	questions QuestionRepository
	selector  *Selector
	grades    GradeTable
	dwell     time.Duration
	keepPool  bool
	validator *validate.Validator
	log       logrus.FieldLogger
	now       func() time.Time

	mu          sync.Mutex
	state       domain.State
	epoch       uint64
	loadSeq     uint64
	timer       *time.Timer
	shownAt     time.Time
	closed      bool
	subscribers map[chan domain.State]struct{}
}

func NewSession(id string, questions QuestionRepository, opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Selector == nil {
		opts.Selector = NewSelector(ClassicPolicy(), opts.Logger)
	}
	if opts.Grades.steps == nil {
		opts.Grades = MustGradeTable(opts.Selector.Policy().Total, DefaultGradeCutoffs())
	}
	if opts.Validator == nil {
		opts.Validator = validate.MustNew()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Session{
		id:          id,
		createdAt:   opts.Clock(),
		questions:   questions,
		selector:    opts.Selector,
		grades:      opts.Grades,
		dwell:       opts.Dwell,
		keepPool:    opts.KeepPoolOnReset,
		validator:   opts.Validator,
		log:         opts.Logger.WithField("session", id),
		now:         opts.Clock,
		state:       domain.InitialState(),
		subscribers: make(map[chan domain.State]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LoadQuestions fetches the candidate pool for lang. Failures are stored in
// the state's Error field as well as returned. A result that arrives after
// the session was closed, after a newer load began, or after ctx was
// canceled is discarded.
func (s *Session) LoadQuestions(ctx context.Context, lang domain.Language) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.loadSeq++
	seq := s.loadSeq
	s.dispatchLocked(LoadStarted{})
	s.mu.Unlock()

	result, err := s.questions.Load(ctx, lang)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.WithField("language", lang).Debug("discarding question load for closed session")
		return ErrSessionClosed
	}
	if seq != s.loadSeq {
		s.log.WithField("language", lang).Debug("discarding superseded question load")
		return context.Canceled
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.dispatchLocked(LoadFailed{Message: "question loading was canceled"})
		return ctxErr
	}
	if err != nil {
		s.log.WithError(err).WithField("language", lang).Error("failed to load questions")
		s.dispatchLocked(LoadFailed{Message: err.Error()})
		return err
	}
	if result.Language != lang {
		s.log.WithFields(logrus.Fields{
			"requested": lang,
			"loaded":    result.Language,
		}).Warn("question pool served in fallback language")
	}
	s.dispatchLocked(LoadSucceeded{Language: result.Language, Pool: result.Questions})
	return nil
}

// Start selects the session's questions from the loaded pool and enters the
// quiz step. It is a logged no-op when the pool is empty, the mode is
// unknown or the session is not on the intro step.
func (s *Session) Start(mode domain.Mode, lang domain.Language) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if mode != domain.ModeStandard && mode != domain.ModeIntegrated {
		s.log.WithField("mode", mode).Warn("start ignored: unknown mode")
		return false
	}
	if len(s.state.Pool) == 0 {
		s.log.Warn("start ignored: no questions loaded")
		return false
	}
	if s.state.PoolLanguage != lang {
		s.log.WithFields(logrus.Fields{
			"language": lang,
			"pool":     s.state.PoolLanguage,
		}).Warn("starting with a pool loaded for another language")
	}

	selected := s.selector.Select(s.state.Pool, mode)
	if !s.dispatchLocked(QuizStarted{Mode: mode, Language: lang, Questions: selected}) {
		return false
	}
	s.epoch++
	s.stopTimerLocked()
	s.shownAt = s.now()
	return true
}

// SubmitAnswer records choiceID as the answer to the current question and
// schedules the move to the next question or the result. Submissions for
// any other question, repeated submissions and unknown choices are rejected
// without touching the state.
func (s *Session) SubmitAnswer(questionID, choiceID string) (domain.AnswerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.AnswerRecord{}, false
	}

	fields := logrus.Fields{"question": questionID, "choice": choiceID}
	current, ok := s.state.CurrentQuestion()
	if !ok || s.state.Step != domain.StepQuiz {
		s.log.WithFields(fields).Warn("answer ignored: no current question")
		return domain.AnswerRecord{}, false
	}
	if current.ID != questionID {
		fields["current"] = current.ID
		s.log.WithFields(fields).Warn("answer ignored: not the current question")
		return domain.AnswerRecord{}, false
	}
	if s.state.AwaitingAdvance() || s.state.Answered(questionID) {
		s.log.WithFields(fields).Warn("answer ignored: question already answered")
		return domain.AnswerRecord{}, false
	}
	if !current.HasChoice(choiceID) {
		s.log.WithFields(fields).Warn("answer ignored: unknown choice")
		return domain.AnswerRecord{}, false
	}

	record := domain.AnswerRecord{
		QuestionID:       questionID,
		SelectedChoiceID: choiceID,
		CorrectChoiceID:  current.CorrectChoiceID,
		IsCorrect:        choiceID == current.CorrectChoiceID,
		TimeSpent:        s.now().Sub(s.shownAt),
	}
	if !s.dispatchLocked(AnswerRecorded{Answer: record}) {
		return domain.AnswerRecord{}, false
	}

	if next, ok := s.pendingAdvanceLocked(); ok {
		s.scheduleLocked(next)
	}
	return record, true
}

// pendingAdvanceLocked returns the move past the current question once it
// has been answered.
func (s *Session) pendingAdvanceLocked() (Command, bool) {
	if !s.state.AwaitingAdvance() {
		return nil, false
	}
	index := s.state.CurrentIndex
	if index == len(s.state.Questions)-1 {
		return QuizFinished{From: index}, true
	}
	return QuestionAdvanced{From: index}, true
}

// SetNickname stores value if it is 1-10 letters, digits or Hangul syllables.
func (s *Session) SetNickname(value string) bool {
	if !s.validator.Nickname(value) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.dispatchLocked(NicknameSet{Nickname: value})
}

// ResetQuiz abandons the attempt and cancels any pending advance. The
// candidate pool survives only when the session keeps pools on reset.
func (s *Session) ResetQuiz() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.epoch++
	s.stopTimerLocked()
	s.dispatchLocked(QuizReset{KeepPool: s.keepPool})
}

// Restart returns a finished session to the intro step keeping the
// nickname, mode, language and pool for another attempt.
func (s *Session) Restart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if !s.dispatchLocked(QuizRestarted{}) {
		return false
	}
	s.epoch++
	s.stopTimerLocked()
	return true
}

// SetStep requests a direct step change; see Reduce for allowed moves.
// Leaving the quiz cancels a pending advance; resuming onto an answered
// question schedules it again.
func (s *Session) SetStep(step domain.Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if !s.dispatchLocked(StepSet{Step: step}) {
		return false
	}
	switch step {
	case domain.StepIntro:
		s.epoch++
		s.stopTimerLocked()
	case domain.StepQuiz:
		if cmd, ok := s.pendingAdvanceLocked(); ok {
			s.scheduleLocked(cmd)
		} else {
			s.shownAt = s.now()
		}
	}
	return true
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// CurrentQuestion returns the question being shown, if any.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentQuestion()
}

// Progress returns the answered share of the attempt in percent.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Progress()
}

// Result computes the result once the attempt is finished.
func (s *Session) Result() (domain.QuizResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsQuizFinished {
		return domain.QuizResult{}, false
	}
	return ComputeResult(s.state.Answers, len(s.state.Questions), s.grades), true
}

// ResultFor computes the result of a snapshot taken from this session.
func (s *Session) ResultFor(state domain.State) domain.QuizResult {
	return ComputeResult(state.Answers, len(state.Questions), s.grades)
}

// Subscribe returns a channel receiving a snapshot after every applied
// command. The caller must invoke the returned cancel function.
func (s *Session) Subscribe() (<-chan domain.State, func()) {
	ch := make(chan domain.State, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.state.Clone()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops pending timers and subscriptions. Later calls are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.epoch++
	s.stopTimerLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) scheduleLocked(cmd Command) {
	if s.dwell <= 0 {
		s.advanceLocked(cmd)
		return
	}
	s.stopTimerLocked()
	epoch := s.epoch
	s.timer = time.AfterFunc(s.dwell, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || epoch != s.epoch {
			return
		}
		s.timer = nil
		s.advanceLocked(cmd)
	})
}

func (s *Session) advanceLocked(cmd Command) {
	if s.dispatchLocked(cmd) {
		if _, ok := cmd.(QuestionAdvanced); ok {
			s.shownAt = s.now()
		}
	}
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) dispatchLocked(cmd Command) bool {
	next, applied := Reduce(s.state, cmd)
	entry := s.log.WithFields(logrus.Fields{"command": cmd.Name(), "step": s.state.Step})
	if !applied {
		entry.Warn("command ignored in current state")
		return false
	}
	entry.Debug("command applied")
	s.state = next
	s.broadcastLocked()
	return true
}

func (s *Session) broadcastLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snapshot := s.state.Clone()
	for ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
			// drop the oldest queued snapshot so a slow reader never blocks the session
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
