package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"github.com/ndthang/quizdeck/config"
	"github.com/ndthang/quizdeck/internal/api"
	"github.com/ndthang/quizdeck/internal/draft"
	"github.com/ndthang/quizdeck/internal/logger"
	"github.com/ndthang/quizdeck/internal/model"
	"github.com/ndthang/quizdeck/internal/session"
)

func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			newCredentialStore,
			newAPIClient,
			newDraftStore,
			newSession,
		),
		fx.Invoke(runQuiz),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

func newCredentialStore(cfg *config.Config) (api.CredentialStore, error) {
	return api.NewFileCredentials(cfg.API.TokenFile)
}

func newAPIClient(cfg *config.Config, creds api.CredentialStore) *api.Client {
	return api.NewClient(cfg.API.BaseURL, creds,
		api.WithTimeout(time.Duration(cfg.API.TimeoutSeconds)*time.Second))
}

func newDraftStore(cfg *config.Config) (draft.Store, error) {
	switch cfg.Draft.Backend {
	case "redis":
		store := draft.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis draft store unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		return store, nil
	case "", "file":
		return draft.NewFileStore(cfg.Draft.Dir)
	default:
		return nil, fmt.Errorf("unknown draft backend %q", cfg.Draft.Backend)
	}
}

func newSession(client *api.Client, drafts draft.Store) *session.AttemptSession {
	return session.New(client, drafts)
}

func runQuiz(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	client *api.Client,
	creds api.CredentialStore,
	sess *session.AttemptSession,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := takeQuiz(cfg, client, creds, sess); err != nil {
					log.Error().Err(err).Msg("Quiz run failed")
				}
				if err := shutdowner.Shutdown(); err != nil {
					log.Error().Err(err).Msg("Shutdown failed")
				}
			}()
			return nil
		},
	})
}

func takeQuiz(cfg *config.Config, client *api.Client, creds api.CredentialStore, sess *session.AttemptSession) error {
	ctx := context.Background()

	if creds.AccessToken() == "" && creds.RefreshToken() == "" {
		if cfg.Auth.Username == "" {
			return errors.New("no stored tokens; set QUIZ_USERNAME and QUIZ_PASSWORD to log in")
		}
		pair, err := client.Login(ctx, cfg.Auth.Username, cfg.Auth.Password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		creds.SetTokens(pair.Access, pair.Refresh)
	}

	if err := sess.Open(ctx, cfg.Attempt.QuizID, cfg.Attempt.AttemptID); err != nil {
		return err
	}

	quiz := sess.Quiz()
	fmt.Printf("%s: %d questions, %d minutes\n", quiz.Title, sess.QuestionCount(), quiz.DurationMinutes)
	if sess.Submitted() {
		fmt.Printf("This attempt is already submitted. Results: /results/%d\n", sess.AttemptID())
		return nil
	}
	fmt.Println(`Commands: "a <answer>" answer, "n" next, "p" previous, "submit", "quit"`)

	expired := make(chan struct{})
	sess.StartCountdown(sess.QuizDuration(), func(res *session.SubmitResult, err error) {
		if err != nil {
			fmt.Printf("\nTime is up, but auto-submit failed: %v\n", err)
		} else if res != nil {
			fmt.Printf("\nTime is up. Quiz submitted automatically. Results: %s\n", res.ResultsPath)
		}
		close(expired)
	})

	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
		close(input)
	}()

	for {
		if sess.Submitted() {
			return nil
		}
		printQuestion(sess)
		fmt.Print("> ")

		select {
		case <-expired:
			return nil
		case line, ok := <-input:
			if !ok {
				fmt.Println("\nInput closed; your draft is saved, reopen the attempt to continue.")
				return nil
			}
			done, err := handleCommand(ctx, sess, strings.TrimSpace(line))
			if err != nil {
				fmt.Println(err)
			}
			if done {
				return nil
			}
		}
	}
}

func handleCommand(ctx context.Context, sess *session.AttemptSession, line string) (done bool, err error) {
	switch {
	case line == "":
		return false, nil
	case line == "n" || line == "next":
		sess.Next()
		return false, nil
	case line == "p" || line == "prev":
		sess.Prev()
		return false, nil
	case line == "quit":
		fmt.Println("Draft saved; reopen the attempt to continue.")
		return true, nil
	case line == "submit":
		res, err := sess.RequestSubmit(ctx, false)
		if err != nil {
			return false, err
		}
		if res != nil {
			fmt.Printf("Quiz submitted. Results: %s\n", res.ResultsPath)
			return true, nil
		}
		return false, nil
	case strings.HasPrefix(line, "a "):
		q, _ := sess.Current()
		value, err := parseAnswer(q, strings.TrimSpace(line[2:]))
		if err != nil {
			return false, err
		}
		return false, sess.SetAnswer(ctx, q.ID, value)
	default:
		return false, fmt.Errorf("unknown command %q", line)
	}
}

func parseAnswer(q model.Question, raw string) (model.AnswerValue, error) {
	switch q.QuestionType {
	case model.QuestionTypeMCQ:
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return model.Unanswered(), fmt.Errorf("expected an option id, got %q", raw)
		}
		return model.SingleChoice(uint(id)), nil
	case model.QuestionTypeTF:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return model.Unanswered(), fmt.Errorf("expected true or false, got %q", raw)
		}
		return model.TrueFalse(v), nil
	case model.QuestionTypeText:
		return model.TextAnswer(raw), nil
	case model.QuestionTypeCode:
		return model.CodeAnswer(raw), nil
	default:
		return model.Unanswered(), fmt.Errorf("unsupported question type %q", q.QuestionType)
	}
}

func printQuestion(sess *session.AttemptSession) {
	q, idx := sess.Current()
	fmt.Printf("\n[%s left] Q %d of %d: %s\n",
		session.FormatRemaining(sess.Remaining()), idx+1, sess.QuestionCount(), q.Text)
	for _, opt := range q.Options {
		fmt.Printf("  %d) %s\n", opt.ID, opt.ChoiceText)
	}
	if a, ok := sess.Answer(q.ID); ok && a.Answered() {
		switch a.Kind() {
		case model.AnswerSingleChoice:
			fmt.Printf("  current answer: option %d\n", a.OptionID())
		case model.AnswerTrueFalse:
			fmt.Printf("  current answer: %t\n", a.Bool())
		default:
			fmt.Printf("  current answer: %s\n", a.Text())
		}
	}
}
