package model

import (
	"encoding/json"
	"fmt"
)

// AnswerKind discriminates the legal shapes of an answer value.
type AnswerKind int

const (
	AnswerUnanswered AnswerKind = iota
	AnswerSingleChoice
	AnswerTrueFalse
	AnswerText
	AnswerCode
)

// AnswerValue is a tagged union: exactly one variant is active, selected by
// Kind. The zero value is Unanswered.
type AnswerValue struct {
	kind   AnswerKind
	option uint
	flag   bool
	text   string
}

// Unanswered is the distinguished "no answer yet" value.
func Unanswered() AnswerValue { return AnswerValue{} }

// SingleChoice answers an mcq question with the id of the chosen option.
func SingleChoice(optionID uint) AnswerValue {
	return AnswerValue{kind: AnswerSingleChoice, option: optionID}
}

// TrueFalse answers a true/false question.
func TrueFalse(v bool) AnswerValue {
	return AnswerValue{kind: AnswerTrueFalse, flag: v}
}

// TextAnswer answers a free-text question.
func TextAnswer(s string) AnswerValue {
	return AnswerValue{kind: AnswerText, text: s}
}

// CodeAnswer answers a coding question with submitted source code.
func CodeAnswer(src string) AnswerValue {
	return AnswerValue{kind: AnswerCode, text: src}
}

func (a AnswerValue) Kind() AnswerKind { return a.kind }

// OptionID is meaningful only when Kind is AnswerSingleChoice.
func (a AnswerValue) OptionID() uint { return a.option }

// Bool is meaningful only when Kind is AnswerTrueFalse.
func (a AnswerValue) Bool() bool { return a.flag }

// Text holds the free-text or code body, depending on Kind.
func (a AnswerValue) Text() string { return a.text }

// Answered reports whether the value would be included in a submission.
// An empty text or code answer counts as unanswered: a deliberately blank
// text answer is indistinguishable from a skipped one.
func (a AnswerValue) Answered() bool {
	switch a.kind {
	case AnswerSingleChoice, AnswerTrueFalse:
		return true
	case AnswerText, AnswerCode:
		return a.text != ""
	default:
		return false
	}
}

// ValidFor reports whether this variant is legal for the given question type.
// Unanswered is legal everywhere so callers can clear an answer.
func (a AnswerValue) ValidFor(questionType string) bool {
	switch a.kind {
	case AnswerUnanswered:
		return true
	case AnswerSingleChoice:
		return questionType == QuestionTypeMCQ
	case AnswerTrueFalse:
		return questionType == QuestionTypeTF
	case AnswerText:
		return questionType == QuestionTypeText
	case AnswerCode:
		return questionType == QuestionTypeCode
	}
	return false
}

// MarshalJSON writes the raw draft representation: the option id as a number,
// true/false as a bool, text and code as strings, unanswered as null. Other
// clients of the quiz service persist the same document shape, so drafts are
// interchangeable between them.
func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerSingleChoice:
		return json.Marshal(a.option)
	case AnswerTrueFalse:
		return json.Marshal(a.flag)
	case AnswerText, AnswerCode:
		return json.Marshal(a.text)
	default:
		return []byte("null"), nil
	}
}

// DecodeAnswer reconstructs an AnswerValue from its raw draft representation.
// The question's declared type decides which variant is legal: the same JSON
// string is a text answer for a text question and a code answer for a code
// question.
func DecodeAnswer(questionType string, raw json.RawMessage) (AnswerValue, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Unanswered(), nil
	}
	switch questionType {
	case QuestionTypeMCQ:
		var id uint
		if err := json.Unmarshal(raw, &id); err != nil {
			return Unanswered(), fmt.Errorf("invalid option id %s: %w", raw, err)
		}
		return SingleChoice(id), nil
	case QuestionTypeTF:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return Unanswered(), fmt.Errorf("invalid true/false answer %s: %w", raw, err)
		}
		return TrueFalse(v), nil
	case QuestionTypeText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Unanswered(), fmt.Errorf("invalid text answer %s: %w", raw, err)
		}
		return TextAnswer(s), nil
	case QuestionTypeCode:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Unanswered(), fmt.Errorf("invalid code answer %s: %w", raw, err)
		}
		return CodeAnswer(s), nil
	default:
		return Unanswered(), fmt.Errorf("unknown question type %q", questionType)
	}
}
