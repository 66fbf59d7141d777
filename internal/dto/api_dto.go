package dto

// OptionDTO mirrors one selectable choice of an mcq question.
type OptionDTO struct {
	ID         uint   `json:"id"`
	ChoiceText string `json:"choice_text"`
}

// QuestionDTO is a question as served by the quiz API.
type QuestionDTO struct {
	ID           uint        `json:"id"`
	Text         string      `json:"text"`
	QuestionType string      `json:"question_type"`
	Points       uint        `json:"points"`
	Options      []OptionDTO `json:"options,omitempty"`
	Order        uint        `json:"order"`
}

// QuizDTO carries quiz metadata with the full ordered question list.
type QuizDTO struct {
	ID              uint          `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	DurationMinutes uint          `json:"duration_minutes"`
	Questions       []QuestionDTO `json:"questions"`
}

// AttemptDetailDTO is the response of GET /quizzes/student-quizzes/{id}/.
type AttemptDetailDTO struct {
	ID        uint    `json:"id"`
	Submitted bool    `json:"submitted"`
	Quiz      QuizDTO `json:"quiz"`
}

// SubmitAnswerDTO is one entry of the submit payload. SelectedOption carries
// an option id for mcq questions and a bool for true/false ones; text and code
// answers use their dedicated fields.
type SubmitAnswerDTO struct {
	Question       uint    `json:"question"`
	SelectedOption any     `json:"selected_option,omitempty"`
	AnswerText     *string `json:"answer_text,omitempty"`
	CodeSubmitted  *string `json:"code_submitted,omitempty"`
}

// QuizSubmitDTO is the request body of POST /quizzes/student-quizzes/{id}/submit/.
type QuizSubmitDTO struct {
	Answers []SubmitAnswerDTO `json:"answers"`
}

// TokenPairDTO is the response of POST /users/token/.
type TokenPairDTO struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginRequestDTO is the request body of POST /users/token/.
type LoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenRefreshRequestDTO is the request body of POST /users/token/refresh/.
type TokenRefreshRequestDTO struct {
	Refresh string `json:"refresh"`
}

// TokenRefreshResponseDTO is the refresh endpoint's success response.
type TokenRefreshResponseDTO struct {
	Access string `json:"access"`
}

// ErrorDTO is the API's error envelope. Code distinguishes token expiry
// ("token_not_valid") from other failures.
type ErrorDTO struct {
	Detail string `json:"detail,omitempty"`
	Code   string `json:"code,omitempty"`
}
