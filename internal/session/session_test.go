package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ndthang/quizdeck/internal/draft"
	"github.com/ndthang/quizdeck/internal/dto"
	"github.com/ndthang/quizdeck/internal/model"
)

// fakeAPI implements AttemptAPI with scriptable failures and an optional
// blocking submit, for exercising the in-flight guard.
type fakeAPI struct {
	mu          sync.Mutex
	detail      dto.AttemptDetailDTO
	loadErr     error
	submitErr   error
	loadCalls   int
	submitCalls int
	submissions []dto.QuizSubmitDTO

	// When set, SubmitAttempt signals submitEntered and parks until
	// submitRelease is closed.
	submitEntered chan struct{}
	submitRelease chan struct{}
}

func (f *fakeAPI) LoadAttempt(_ context.Context, _ uint) (*dto.AttemptDetailDTO, error) {
	f.mu.Lock()
	f.loadCalls++
	detail := f.detail
	err := f.loadErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (f *fakeAPI) SubmitAttempt(_ context.Context, _ uint, req dto.QuizSubmitDTO) error {
	f.mu.Lock()
	f.submitCalls++
	entered := f.submitEntered
	release := f.submitRelease
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submissions = append(f.submissions, req)
	return nil
}

func (f *fakeAPI) calls() (load, submit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls, f.submitCalls
}

func threeQuestionQuiz() dto.AttemptDetailDTO {
	return dto.AttemptDetailDTO{
		ID:        42,
		Submitted: false,
		Quiz: dto.QuizDTO{
			ID:              7,
			Title:           "Sample Quiz",
			DurationMinutes: 1,
			Questions: []dto.QuestionDTO{
				{
					ID:           10,
					Text:         "Pick one",
					QuestionType: "mcq",
					Order:        1,
					Options: []dto.OptionDTO{
						{ID: 100, ChoiceText: "first"},
						{ID: 101, ChoiceText: "second"},
					},
				},
				{ID: 11, Text: "Yes or no", QuestionType: "tf", Order: 2},
				{ID: 12, Text: "Say something", QuestionType: "text", Order: 3},
			},
		},
	}
}

func newTestSession(t *testing.T, api *fakeAPI) (*AttemptSession, draft.Store) {
	t.Helper()
	store, err := draft.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return New(api, store), store
}

func TestOpenInitializesAnswers(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, _ := newTestSession(t, api)

	require.NoError(t, sess.Open(context.Background(), 7, 42))
	require.Equal(t, StateReady, sess.State())
	require.False(t, sess.Submitted())

	answers := sess.Answers()
	require.Len(t, answers, 3)
	for _, id := range []uint{10, 11, 12} {
		a, ok := answers[id]
		require.True(t, ok)
		require.Equal(t, model.AnswerUnanswered, a.Kind())
	}

	q, idx := sess.Current()
	require.Equal(t, uint(10), q.ID)
	require.Equal(t, 0, idx)
}

func TestOpenMissingIDs(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, _ := newTestSession(t, api)

	err := sess.Open(context.Background(), 0, 42)
	require.ErrorIs(t, err, ErrInvalidSession)
	require.Equal(t, StateError, sess.State())

	loads, _ := api.calls()
	require.Zero(t, loads, "Open must not contact the API without both ids")
}

func TestOpenLoadFailureThenRetry(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz(), loadErr: errors.New("connection refused")}
	sess, _ := newTestSession(t, api)

	err := sess.Open(context.Background(), 7, 42)
	require.ErrorIs(t, err, ErrLoadFailed)
	require.Equal(t, StateError, sess.State())

	// Explicit retry from Error succeeds once the network is back.
	api.mu.Lock()
	api.loadErr = nil
	api.mu.Unlock()
	require.NoError(t, sess.Open(context.Background(), 7, 42))
	require.Equal(t, StateReady, sess.State())
}

func TestOpenAlreadySubmittedAttempt(t *testing.T) {
	detail := threeQuestionQuiz()
	detail.Submitted = true
	api := &fakeAPI{detail: detail}
	sess, _ := newTestSession(t, api)

	require.NoError(t, sess.Open(context.Background(), 7, 42))
	require.Equal(t, StateSubmitted, sess.State())
	require.True(t, sess.Submitted())

	err := sess.SetAnswer(context.Background(), 10, model.SingleChoice(100))
	require.ErrorIs(t, err, ErrAttemptClosed)

	res, err := sess.RequestSubmit(context.Background(), false)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.Nil(t, res)

	_, submits := api.calls()
	require.Zero(t, submits)
}

func TestSetAnswerWriteThrough(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, store := newTestSession(t, api)
	ctx := context.Background()
	require.NoError(t, sess.Open(ctx, 7, 42))

	steps := []struct {
		questionID uint
		value      model.AnswerValue
	}{
		{10, model.SingleChoice(101)},
		{11, model.TrueFalse(false)},
		{12, model.TextAnswer("len")},
		{10, model.SingleChoice(100)}, // edit over an existing answer
	}
	for _, step := range steps {
		require.NoError(t, sess.SetAnswer(ctx, step.questionID, step.value))

		saved, ok, err := store.Load(ctx, 42)
		require.NoError(t, err)
		require.True(t, ok)

		// The durable draft must equal the in-memory answer set after every edit.
		inMemory := sess.Answers()
		require.Len(t, saved, len(inMemory))
		for id, want := range inMemory {
			wantRaw, err := json.Marshal(want)
			require.NoError(t, err)
			require.JSONEq(t, string(wantRaw), string(saved[id]))
		}
	}
}

func TestSetAnswerUnknownQuestion(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, _ := newTestSession(t, api)
	require.NoError(t, sess.Open(context.Background(), 7, 42))

	err := sess.SetAnswer(context.Background(), 999, model.TextAnswer("nope"))
	require.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestSetAnswerTypeMismatch(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, _ := newTestSession(t, api)
	require.NoError(t, sess.Open(context.Background(), 7, 42))

	err := sess.SetAnswer(context.Background(), 10, model.TextAnswer("not an option id"))
	require.ErrorIs(t, err, ErrAnswerMismatch)

	// Clearing an answer is always legal.
	require.NoError(t, sess.SetAnswer(context.Background(), 10, model.Unanswered()))
}

func TestDraftRestoreOnReopen(t *testing.T) {
	detail := threeQuestionQuiz()
	detail.Quiz.Questions = append(detail.Quiz.Questions,
		dto.QuestionDTO{ID: 13, Text: "Write code", QuestionType: "code", Order: 4})
	api := &fakeAPI{detail: detail}
	ctx := context.Background()

	store, err := draft.NewFileStore(t.TempDir())
	require.NoError(t, err)

	first := New(api, store)
	require.NoError(t, first.Open(ctx, 7, 42))
	require.NoError(t, first.SetAnswer(ctx, 10, model.SingleChoice(101)))
	require.NoError(t, first.SetAnswer(ctx, 11, model.TrueFalse(true)))
	require.NoError(t, first.SetAnswer(ctx, 13, model.CodeAnswer("func reverse(s string) string { return s }")))

	// A new session instance, same store: simulates the page reload.
	second := New(api, store)
	require.NoError(t, second.Open(ctx, 7, 42))

	restored := second.Answers()
	require.Equal(t, model.SingleChoice(101), restored[10])
	require.Equal(t, model.TrueFalse(true), restored[11])
	require.Equal(t, model.Unanswered(), restored[12])
	require.Equal(t, model.CodeAnswer("func reverse(s string) string { return s }"), restored[13])
}

func TestNavigateClampsAtBounds(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, _ := newTestSession(t, api)
	require.NoError(t, sess.Open(context.Background(), 7, 42))

	sess.Prev() // already at the first question
	_, idx := sess.Current()
	require.Equal(t, 0, idx)

	sess.Next()
	sess.Next()
	sess.Next() // past the end
	sess.Next()
	_, idx = sess.Current()
	require.Equal(t, 2, idx)
}

func TestManualEmptySubmissionBlockedAutoAllowed(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, store := newTestSession(t, api)
	ctx := context.Background()
	require.NoError(t, sess.Open(ctx, 7, 42))

	res, err := sess.RequestSubmit(ctx, false)
	require.ErrorIs(t, err, ErrEmptySubmission)
	require.Nil(t, res)
	_, submits := api.calls()
	require.Zero(t, submits, "manual empty submit must make no API call")
	require.Equal(t, StateReady, sess.State())

	// The deadline overrides the "answer something" rule.
	res, err = sess.RequestSubmit(ctx, true)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, StateSubmitted, sess.State())

	_, submits = api.calls()
	require.Equal(t, 1, submits)
	require.NotNil(t, api.submissions[0].Answers)
	require.Empty(t, api.submissions[0].Answers)

	_, ok, err := store.Load(ctx, 42)
	require.NoError(t, err)
	require.False(t, ok, "draft must be cleared after submission")
}

func TestSubmitFiltersUnanswered(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, store := newTestSession(t, api)
	ctx := context.Background()
	require.NoError(t, sess.Open(ctx, 7, 42))

	require.NoError(t, sess.SetAnswer(ctx, 10, model.SingleChoice(100)))
	require.NoError(t, sess.SetAnswer(ctx, 12, model.TextAnswer("hello")))
	// Q11 left unanswered on purpose.

	res, err := sess.RequestSubmit(ctx, false)
	require.NoError(t, err)
	require.Equal(t, "/results/42", res.ResultsPath)
	require.Equal(t, StateSubmitted, sess.State())

	require.Len(t, api.submissions, 1)
	answers := api.submissions[0].Answers
	require.Len(t, answers, 2)

	require.Equal(t, uint(10), answers[0].Question)
	require.Equal(t, uint(100), answers[0].SelectedOption)
	require.Nil(t, answers[0].AnswerText)

	require.Equal(t, uint(12), answers[1].Question)
	require.Nil(t, answers[1].SelectedOption)
	require.NotNil(t, answers[1].AnswerText)
	require.Equal(t, "hello", *answers[1].AnswerText)

	_, ok, err := store.Load(ctx, 42)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEmptyTextCountsAsUnanswered(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, _ := newTestSession(t, api)
	ctx := context.Background()
	require.NoError(t, sess.Open(ctx, 7, 42))

	require.NoError(t, sess.SetAnswer(ctx, 12, model.TextAnswer("")))
	_, err := sess.RequestSubmit(ctx, false)
	require.ErrorIs(t, err, ErrEmptySubmission)
}

func TestDoubleSubmitSingleAPICall(t *testing.T) {
	api := &fakeAPI{
		detail:        threeQuestionQuiz(),
		submitEntered: make(chan struct{}),
		submitRelease: make(chan struct{}),
	}
	sess, _ := newTestSession(t, api)
	ctx := context.Background()
	require.NoError(t, sess.Open(ctx, 7, 42))
	require.NoError(t, sess.SetAnswer(ctx, 11, model.TrueFalse(true)))

	firstDone := make(chan error, 1)
	go func() {
		_, err := sess.RequestSubmit(ctx, false)
		firstDone <- err
	}()

	// Wait until the first submit is in flight, then race a second one.
	<-api.submitEntered
	res, err := sess.RequestSubmit(ctx, false)
	require.NoError(t, err)
	require.Nil(t, res, "duplicate submit while in flight is dropped silently")

	close(api.submitRelease)
	require.NoError(t, <-firstDone)
	require.True(t, sess.Submitted())

	_, submits := api.calls()
	require.Equal(t, 1, submits)

	// A third submit after completion reports the duplicate explicitly.
	_, err = sess.RequestSubmit(ctx, false)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	_, submits = api.calls()
	require.Equal(t, 1, submits)
}

func TestSubmitFailureIsRecoverable(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz(), submitErr: errors.New("gateway timeout")}
	sess, store := newTestSession(t, api)
	ctx := context.Background()
	require.NoError(t, sess.Open(ctx, 7, 42))
	require.NoError(t, sess.SetAnswer(ctx, 10, model.SingleChoice(100)))

	res, err := sess.RequestSubmit(ctx, false)
	require.ErrorIs(t, err, ErrSubmitFailed)
	require.Nil(t, res)
	require.Equal(t, StateReady, sess.State())
	require.False(t, sess.Submitted())

	// The draft survives a failed submit.
	_, ok, loadErr := store.Load(ctx, 42)
	require.NoError(t, loadErr)
	require.True(t, ok)

	// Edits and a retry still work.
	require.NoError(t, sess.SetAnswer(ctx, 12, model.TextAnswer("retry")))
	api.mu.Lock()
	api.submitErr = nil
	api.mu.Unlock()

	res, err = sess.RequestSubmit(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, StateSubmitted, sess.State())
}

func TestAutoSubmitOnCountdownExpiry(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, _ := newTestSession(t, api)
	ctx := context.Background()
	require.NoError(t, sess.Open(ctx, 7, 42))
	require.NoError(t, sess.SetAnswer(ctx, 11, model.TrueFalse(false)))

	done := make(chan struct{})
	var result *SubmitResult
	var submitErr error
	sess.StartCountdown(20*time.Millisecond, func(res *SubmitResult, err error) {
		result, submitErr = res, err
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never fired")
	}

	require.NoError(t, submitErr)
	require.NotNil(t, result)
	require.True(t, sess.Submitted())

	_, submits := api.calls()
	require.Equal(t, 1, submits)
	require.Len(t, api.submissions, 1)
	require.Len(t, api.submissions[0].Answers, 1)
	require.Equal(t, false, api.submissions[0].Answers[0].SelectedOption)
}

func TestManualSubmitBeatsCountdown(t *testing.T) {
	api := &fakeAPI{detail: threeQuestionQuiz()}
	sess, _ := newTestSession(t, api)
	ctx := context.Background()
	require.NoError(t, sess.Open(ctx, 7, 42))
	require.NoError(t, sess.SetAnswer(ctx, 10, model.SingleChoice(101)))

	expired := make(chan struct{})
	sess.StartCountdown(30*time.Millisecond, func(*SubmitResult, error) {
		close(expired)
	})

	res, err := sess.RequestSubmit(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, res)

	// Give a stale expiry every chance to fire a duplicate; it must not.
	select {
	case <-expired:
	case <-time.After(200 * time.Millisecond):
	}
	_, submits := api.calls()
	require.Equal(t, 1, submits)
}
