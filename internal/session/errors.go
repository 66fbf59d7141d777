package session

import "errors"

var (
	// ErrInvalidSession means Open was called without a quiz or attempt id.
	// Terminal: there is nothing to retry.
	ErrInvalidSession = errors.New("quiz or attempt id missing")

	// ErrLoadFailed wraps any failure to fetch the attempt from the API. The
	// session enters StateError; reopening is the only way back.
	ErrLoadFailed = errors.New("failed to load quiz details")

	// ErrUnknownQuestion means an edit referenced a question that is not part
	// of the loaded quiz. A wiring bug in the caller, not a network problem.
	ErrUnknownQuestion = errors.New("question is not part of this quiz")

	// ErrAnswerMismatch means the answer variant does not fit the question's
	// declared type, e.g. a text answer for an mcq question.
	ErrAnswerMismatch = errors.New("answer value does not match question type")

	// ErrAttemptClosed means an edit was attempted after submission.
	ErrAttemptClosed = errors.New("attempt already closed")

	// ErrAlreadySubmitted flags a duplicate submit request. Informational; the
	// session state is unchanged.
	ErrAlreadySubmitted = errors.New("quiz already submitted")

	// ErrEmptySubmission rejects a manual submit with no answered questions.
	// Auto-submission on timer expiry bypasses this check.
	ErrEmptySubmission = errors.New("please answer at least one question before submitting")

	// ErrSubmitFailed wraps an API or network failure during submit. The
	// session stays in StateReady and the draft is preserved, so the user can
	// edit and retry.
	ErrSubmitFailed = errors.New("failed to submit quiz")
)
