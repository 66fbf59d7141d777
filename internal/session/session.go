package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/ndthang/quizdeck/internal/draft"
	"github.com/ndthang/quizdeck/internal/dto"
	"github.com/ndthang/quizdeck/internal/model"
)

// State identifies the phase of an attempt session.
type State string

const (
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateError      State = "error"
)

// autoSubmitTimeout bounds the submit call fired by countdown expiry, which
// has no caller-provided context.
const autoSubmitTimeout = 30 * time.Second

// AttemptAPI is the slice of the quiz API the session depends on.
type AttemptAPI interface {
	LoadAttempt(ctx context.Context, attemptID uint) (*dto.AttemptDetailDTO, error)
	SubmitAttempt(ctx context.Context, attemptID uint, req dto.QuizSubmitDTO) error
}

// SubmitResult tells the caller where to go after a successful submission.
type SubmitResult struct {
	AttemptID   uint
	ResultsPath string
}

// AttemptSession drives one quiz attempt from load to submission: it loads
// the attempt, tracks per-question answers, persists a draft on every edit,
// and submits exactly once, whether the trigger was the user or the clock.
//
// All state transitions are serialized by one mutex; the submission-in-flight
// flag is the only extra concurrency control, guarding against a manual
// submit racing the countdown.
type AttemptSession struct {
	api    AttemptAPI
	drafts draft.Store

	mu        sync.Mutex
	state     State
	quizID    uint
	attemptID uint
	quiz      model.Quiz
	questions []model.Question
	byID      map[uint]model.Question
	answers   map[uint]model.AnswerValue
	cursor    int
	submitted bool
	inFlight  bool
	countdown *Countdown
}

func New(api AttemptAPI, drafts draft.Store) *AttemptSession {
	return &AttemptSession{
		api:    api,
		drafts: drafts,
		state:  StateLoading,
	}
}

// Open loads the attempt. A draft saved for this attempt id seeds the answer
// set before the API responds, so a reload mid-attempt recovers every
// persisted edit; otherwise every question starts unanswered. If the server
// already marks the attempt submitted, the session opens directly in
// StateSubmitted and rejects further edits.
func (s *AttemptSession) Open(ctx context.Context, quizID, attemptID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateLoading, StateError:
		// Initial open, or an explicit retry after a failed load.
	default:
		return fmt.Errorf("session already open (state %s)", s.state)
	}

	if quizID == 0 || attemptID == 0 {
		s.state = StateError
		return ErrInvalidSession
	}
	s.quizID = quizID
	s.attemptID = attemptID

	saved, found, err := s.drafts.Load(ctx, attemptID)
	if err != nil {
		// Draft recovery is best effort; a broken cache must not block the attempt.
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Failed to read draft, starting clean")
		found = false
	}

	detail, err := s.api.LoadAttempt(ctx, attemptID)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Failed to load attempt")
		s.state = StateError
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	var quiz model.Quiz
	if err := copier.Copy(&quiz, &detail.Quiz); err != nil {
		s.state = StateError
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	s.quiz = quiz
	s.questions = quiz.Questions
	s.byID = make(map[uint]model.Question, len(s.questions))
	s.answers = make(map[uint]model.AnswerValue, len(s.questions))
	for _, q := range s.questions {
		s.byID[q.ID] = q
		value := model.Unanswered()
		if found {
			// The draft is trusted over the server default: it is exactly what
			// survives a reload mid-attempt. Entries for questions no longer in
			// the quiz are dropped.
			decoded, err := model.DecodeAnswer(q.QuestionType, saved[q.ID])
			if err != nil {
				log.Warn().Err(err).Uint("questionID", q.ID).Msg("Ignoring undecodable draft answer")
			} else {
				value = decoded
			}
		}
		s.answers[q.ID] = value
	}
	s.cursor = 0
	s.submitted = detail.Submitted
	if s.submitted {
		s.state = StateSubmitted
	} else {
		s.state = StateReady
	}

	log.Info().
		Uint("attemptID", attemptID).
		Str("quiz", quiz.Title).
		Int("questions", len(s.questions)).
		Bool("submitted", s.submitted).
		Bool("draftRestored", found).
		Msg("Attempt session opened")
	return nil
}

// SetAnswer records the answer for one question and write-through persists
// the whole answer set, so a reload loses at most the in-flight edit.
func (s *AttemptSession) SetAnswer(ctx context.Context, questionID uint, value model.AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return ErrAttemptClosed
	}
	if s.state != StateReady {
		return fmt.Errorf("cannot edit answers while %s", s.state)
	}
	q, ok := s.byID[questionID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownQuestion, questionID)
	}
	if !value.ValidFor(q.QuestionType) {
		return fmt.Errorf("%w: question %d is %s", ErrAnswerMismatch, questionID, q.QuestionType)
	}

	s.answers[questionID] = value
	if err := s.drafts.Save(ctx, s.attemptID, s.draftLocked()); err != nil {
		// The in-memory edit stands; only its durability is degraded.
		log.Warn().Err(err).Uint("attemptID", s.attemptID).Msg("Failed to persist draft")
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Next moves the cursor forward. At the last question it is a no-op.
func (s *AttemptSession) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < len(s.questions)-1 {
		s.cursor++
	}
}

// Prev moves the cursor back. At the first question it is a no-op.
func (s *AttemptSession) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor > 0 {
		s.cursor--
	}
}

// RequestSubmit submits the answered questions. auto marks a timer-driven
// submission, which is allowed to send an empty answer list; a manual submit
// with nothing answered is rejected with ErrEmptySubmission before any API
// call. A duplicate call while a submission is in flight is dropped and
// returns (nil, nil). On success the draft is deleted and the returned result
// points at the results view.
func (s *AttemptSession) RequestSubmit(ctx context.Context, auto bool) (*SubmitResult, error) {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, nil
	}
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("cannot submit while %s", state)
	}

	payload := s.payloadLocked()
	if len(payload) == 0 && !auto {
		s.mu.Unlock()
		return nil, ErrEmptySubmission
	}

	s.inFlight = true
	s.state = StateSubmitting
	attemptID := s.attemptID
	s.mu.Unlock()

	err := s.api.SubmitAttempt(ctx, attemptID, dto.QuizSubmitDTO{Answers: payload})

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		// Recoverable: back to Ready, draft untouched, user may retry.
		s.state = StateReady
		s.mu.Unlock()
		log.Error().Err(err).Uint("attemptID", attemptID).Bool("auto", auto).Msg("Quiz submission failed")
		return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	s.submitted = true
	s.state = StateSubmitted
	if s.countdown != nil {
		s.countdown.Stop()
	}
	s.mu.Unlock()

	if err := s.drafts.Delete(ctx, attemptID); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Failed to clear draft after submission")
	}
	log.Info().Uint("attemptID", attemptID).Bool("auto", auto).Msg("Quiz submitted")
	return &SubmitResult{
		AttemptID:   attemptID,
		ResultsPath: fmt.Sprintf("/results/%d", attemptID),
	}, nil
}

// StartCountdown arms the quiz countdown. On expiry the session submits
// automatically with whatever answers exist at that moment, even none; done,
// when non-nil, receives the outcome. Arming an already-submitted session or
// re-arming is a no-op.
func (s *AttemptSession) StartCountdown(d time.Duration, done func(*SubmitResult, error)) *Countdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || s.countdown != nil {
		return s.countdown
	}
	s.countdown = NewCountdown(d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), autoSubmitTimeout)
		defer cancel()
		res, err := s.RequestSubmit(ctx, true)
		if err != nil && !errors.Is(err, ErrAlreadySubmitted) {
			log.Error().Err(err).Uint("attemptID", s.AttemptID()).Msg("Auto-submit on expiry failed")
		}
		if done != nil {
			done(res, err)
		}
	})
	return s.countdown
}

// QuizDuration is the countdown length declared by the quiz.
func (s *AttemptSession) QuizDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.quiz.DurationMinutes) * time.Minute
}

// Remaining returns the time left on the countdown, or zero when none is armed.
func (s *AttemptSession) Remaining() time.Duration {
	s.mu.Lock()
	cd := s.countdown
	s.mu.Unlock()
	if cd == nil {
		return 0
	}
	return cd.Remaining()
}

func (s *AttemptSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *AttemptSession) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

func (s *AttemptSession) AttemptID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptID
}

func (s *AttemptSession) Quiz() model.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz
}

// Current returns the question under the cursor and its zero-based index.
func (s *AttemptSession) Current() (model.Question, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return model.Question{}, 0
	}
	return s.questions[s.cursor], s.cursor
}

func (s *AttemptSession) QuestionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions)
}

// Answer returns the recorded answer for a question.
func (s *AttemptSession) Answer(questionID uint) (model.AnswerValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[questionID]
	return a, ok
}

// Answers returns a copy of the full answer set.
func (s *AttemptSession) Answers() map[uint]model.AnswerValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint]model.AnswerValue, len(s.answers))
	for id, a := range s.answers {
		out[id] = a
	}
	return out
}

// draftLocked serializes the current answer set into the draft wire format.
// Unanswered questions are written as null.
func (s *AttemptSession) draftLocked() draft.Answers {
	out := make(draft.Answers, len(s.answers))
	for id, a := range s.answers {
		raw, err := a.MarshalJSON()
		if err != nil {
			continue
		}
		out[id] = raw
	}
	return out
}

// payloadLocked builds the submission entries in question order, skipping
// everything still unanswered.
func (s *AttemptSession) payloadLocked() []dto.SubmitAnswerDTO {
	out := make([]dto.SubmitAnswerDTO, 0, len(s.questions))
	for _, q := range s.questions {
		a := s.answers[q.ID]
		if !a.Answered() {
			continue
		}
		entry := dto.SubmitAnswerDTO{Question: q.ID}
		switch a.Kind() {
		case model.AnswerSingleChoice:
			entry.SelectedOption = a.OptionID()
		case model.AnswerTrueFalse:
			entry.SelectedOption = a.Bool()
		case model.AnswerText:
			text := a.Text()
			entry.AnswerText = &text
		case model.AnswerCode:
			code := a.Text()
			entry.CodeSubmitted = &code
		}
		out = append(out, entry)
	}
	return out
}
