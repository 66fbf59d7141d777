package devserver

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ndthang/quizdeck/internal/api"
	"github.com/ndthang/quizdeck/internal/draft"
	"github.com/ndthang/quizdeck/internal/dto"
	"github.com/ndthang/quizdeck/internal/model"
	"github.com/ndthang/quizdeck/internal/session"
)

// Drives the dev server through the real client and session, end to end:
// login, load, answer, submit, idempotent reopen.
func TestDevServerFullAttempt(t *testing.T) {
	srv := NewServer()
	ts := httptest.NewServer(NewEngine(srv))
	defer ts.Close()

	ctx := context.Background()
	creds := api.NewMemoryCredentials("", "")
	client := api.NewClient(ts.URL+"/api", creds)

	pair, err := client.Login(ctx, "student", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	creds.SetTokens(pair.Access, pair.Refresh)

	store, err := draft.NewFileStore(t.TempDir())
	require.NoError(t, err)

	sess := session.New(client, store)
	require.NoError(t, sess.Open(ctx, 1, 77))
	require.Equal(t, session.StateReady, sess.State())
	require.Equal(t, "Go Fundamentals", sess.Quiz().Title)
	require.Equal(t, 4, sess.QuestionCount())

	require.NoError(t, sess.SetAnswer(ctx, 1, model.SingleChoice(2)))
	require.NoError(t, sess.SetAnswer(ctx, 2, model.TrueFalse(false)))
	require.NoError(t, sess.SetAnswer(ctx, 3, model.TextAnswer("len")))

	res, err := sess.RequestSubmit(ctx, false)
	require.NoError(t, err)
	require.Equal(t, "/results/77", res.ResultsPath)

	answers, submitted := srv.Submission(77)
	require.True(t, submitted)
	require.Len(t, answers, 3)

	// Reopening a finished attempt starts directly in Submitted.
	reopened := session.New(client, store)
	require.NoError(t, reopened.Open(ctx, 1, 77))
	require.Equal(t, session.StateSubmitted, reopened.State())
}

// An access token invalidated by a later refresh must be renewed
// transparently by the client's auth transport.
func TestDevServerTokenRefreshFlow(t *testing.T) {
	srv := NewServer()
	ts := httptest.NewServer(NewEngine(srv))
	defer ts.Close()

	ctx := context.Background()
	creds := api.NewMemoryCredentials("", "")
	client := api.NewClient(ts.URL+"/api", creds)

	pair, err := client.Login(ctx, "student", "secret")
	require.NoError(t, err)
	creds.SetTokens(pair.Access, pair.Refresh)

	// Stale the stored access token; the refresh token stays valid.
	creds.SetAccessToken("expired-token")

	detail, err := client.LoadAttempt(ctx, 5)
	require.NoError(t, err)
	require.False(t, detail.Submitted)
	require.NotEqual(t, "expired-token", creds.AccessToken())
}

func TestDevServerRejectsDoubleSubmit(t *testing.T) {
	srv := NewServer()
	ts := httptest.NewServer(NewEngine(srv))
	defer ts.Close()

	ctx := context.Background()
	creds := api.NewMemoryCredentials("", "")
	client := api.NewClient(ts.URL+"/api", creds)

	pair, err := client.Login(ctx, "student", "secret")
	require.NoError(t, err)
	creds.SetTokens(pair.Access, pair.Refresh)

	require.NoError(t, client.SubmitAttempt(ctx, 3, dto.QuizSubmitDTO{Answers: []dto.SubmitAnswerDTO{}}))

	err = client.SubmitAttempt(ctx, 3, dto.QuizSubmitDTO{Answers: []dto.SubmitAnswerDTO{}})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 400, apiErr.StatusCode)
	require.Equal(t, "Quiz already submitted.", apiErr.Detail)
}
