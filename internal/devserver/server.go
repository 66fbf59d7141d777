package devserver

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ndthang/quizdeck/internal/dto"
)

// Server is an in-memory stand-in for the quiz API, good enough to point the
// CLI at during development: it issues tokens, serves a fixture quiz and
// records submissions. Attempts are created lazily on first load, so any
// attempt id works.
type Server struct {
	mu       sync.Mutex
	quiz     dto.QuizDTO
	attempts map[uint]*attemptRecord
	access   string
	refresh  string
	tokenSeq int
}

type attemptRecord struct {
	Submitted bool
	Answers   []dto.SubmitAnswerDTO
}

func NewServer() *Server {
	return &Server{
		quiz:     fixtureQuiz(),
		attempts: make(map[uint]*attemptRecord),
		refresh:  "dev-refresh-token",
	}
}

// IssueTokens accepts any credentials and hands out a fresh token pair.
func (s *Server) IssueTokens(ctx *gin.Context) {
	var req dto.LoginRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorDTO{Detail: "Invalid login payload"})
		return
	}
	s.mu.Lock()
	s.tokenSeq++
	s.access = fmt.Sprintf("dev-access-%d", s.tokenSeq)
	access := s.access
	refresh := s.refresh
	s.mu.Unlock()

	log.Info().Str("username", req.Username).Msg("Issued dev token pair")
	ctx.JSON(http.StatusOK, dto.TokenPairDTO{Access: access, Refresh: refresh})
}

// RefreshToken rotates the access token when the refresh token matches.
func (s *Server) RefreshToken(ctx *gin.Context) {
	var req dto.TokenRefreshRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorDTO{Detail: "Invalid refresh payload"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Refresh != s.refresh {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorDTO{Detail: "Token is invalid or expired", Code: "token_not_valid"})
		return
	}
	s.tokenSeq++
	s.access = fmt.Sprintf("dev-access-%d", s.tokenSeq)
	ctx.JSON(http.StatusOK, dto.TokenRefreshResponseDTO{Access: s.access})
}

// GetAttempt returns the attempt state with the fixture quiz.
func (s *Server) GetAttempt(ctx *gin.Context) {
	attemptID, ok := s.authorizedAttempt(ctx)
	if !ok {
		return
	}
	s.mu.Lock()
	rec := s.record(attemptID)
	resp := dto.AttemptDetailDTO{ID: attemptID, Submitted: rec.Submitted, Quiz: s.quiz}
	s.mu.Unlock()
	ctx.JSON(http.StatusOK, resp)
}

// SubmitAttempt records the answers and marks the attempt submitted.
func (s *Server) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := s.authorizedAttempt(ctx)
	if !ok {
		return
	}
	var req dto.QuizSubmitDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorDTO{Detail: "Invalid submission payload"})
		return
	}
	s.mu.Lock()
	rec := s.record(attemptID)
	if rec.Submitted {
		s.mu.Unlock()
		ctx.JSON(http.StatusBadRequest, dto.ErrorDTO{Detail: "Quiz already submitted."})
		return
	}
	rec.Submitted = true
	rec.Answers = req.Answers
	s.mu.Unlock()

	log.Info().Uint("attemptID", attemptID).Int("answers", len(req.Answers)).Msg("Recorded quiz submission")
	ctx.JSON(http.StatusOK, gin.H{"detail": "Quiz submitted."})
}

// Submission exposes what an attempt recorded, for tests.
func (s *Server) Submission(attemptID uint) (answers []dto.SubmitAnswerDTO, submitted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(attemptID)
	return rec.Answers, rec.Submitted
}

// record returns the attempt record, creating it on first use. Callers hold mu.
func (s *Server) record(attemptID uint) *attemptRecord {
	rec, ok := s.attempts[attemptID]
	if !ok {
		rec = &attemptRecord{}
		s.attempts[attemptID] = rec
	}
	return rec
}

// authorizedAttempt checks the bearer token and parses the attempt id. The
// stale-token 401 carries code "token_not_valid" so clients exercise their
// refresh path against this server exactly as against the real one.
func (s *Server) authorizedAttempt(ctx *gin.Context) (uint, bool) {
	s.mu.Lock()
	access := s.access
	s.mu.Unlock()
	if access == "" || ctx.GetHeader("Authorization") != "Bearer "+access {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorDTO{Detail: "Given token not valid for any token type", Code: "token_not_valid"})
		return 0, false
	}
	raw := ctx.Param("attempt_id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorDTO{Detail: "Invalid attempt id"})
		return 0, false
	}
	return uint(id), true
}

func fixtureQuiz() dto.QuizDTO {
	return dto.QuizDTO{
		ID:              1,
		Title:           "Go Fundamentals",
		Description:     "A short practice quiz served by the dev server.",
		DurationMinutes: 10,
		Questions: []dto.QuestionDTO{
			{
				ID:           1,
				Text:         "Which keyword declares a new variable with inferred type?",
				QuestionType: "mcq",
				Points:       1,
				Order:        1,
				Options: []dto.OptionDTO{
					{ID: 1, ChoiceText: "var"},
					{ID: 2, ChoiceText: ":="},
					{ID: 3, ChoiceText: "let"},
					{ID: 4, ChoiceText: "def"},
				},
			},
			{
				ID:           2,
				Text:         "A nil map can be written to without panicking.",
				QuestionType: "tf",
				Points:       1,
				Order:        2,
			},
			{
				ID:           3,
				Text:         "Name the builtin that returns the length of a slice.",
				QuestionType: "text",
				Points:       1,
				Order:        3,
			},
			{
				ID:           4,
				Text:         "Write a function that reverses a string.",
				QuestionType: "code",
				Points:       3,
				Order:        4,
			},
		},
	}
}
