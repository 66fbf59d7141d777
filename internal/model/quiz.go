package model

// Question types as delivered by the quiz API.
const (
	QuestionTypeMCQ  = "mcq"
	QuestionTypeTF   = "tf"
	QuestionTypeText = "text"
	QuestionTypeCode = "code"
)

// Option is one selectable choice of an mcq question.
type Option struct {
	ID         uint   `json:"id"`
	ChoiceText string `json:"choice_text"`
}

// Question is immutable once loaded for an attempt.
type Question struct {
	ID           uint     `json:"id"`
	Text         string   `json:"text"`
	QuestionType string   `json:"question_type"`
	Points       uint     `json:"points"`
	Options      []Option `json:"options,omitempty"`
	Order        uint     `json:"order"`
}

// Quiz carries the metadata and ordered question list for one quiz. The
// question order is kept exactly as delivered, since the server may shuffle
// questions per attempt.
type Quiz struct {
	ID              uint       `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	DurationMinutes uint       `json:"duration_minutes"`
	Questions       []Question `json:"questions"`
}
