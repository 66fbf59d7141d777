package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnswerValueVariants(t *testing.T) {
	require.False(t, Unanswered().Answered())
	require.True(t, SingleChoice(3).Answered())
	require.True(t, TrueFalse(false).Answered(), "an explicit false is an answer")
	require.True(t, TextAnswer("x").Answered())
	require.False(t, TextAnswer("").Answered(), "blank text is indistinguishable from skipped")
	require.False(t, CodeAnswer("").Answered())

	require.True(t, SingleChoice(3).ValidFor(QuestionTypeMCQ))
	require.False(t, SingleChoice(3).ValidFor(QuestionTypeTF))
	require.True(t, TrueFalse(true).ValidFor(QuestionTypeTF))
	require.False(t, TextAnswer("x").ValidFor(QuestionTypeCode))
	require.True(t, CodeAnswer("x").ValidFor(QuestionTypeCode))
	require.True(t, Unanswered().ValidFor(QuestionTypeMCQ), "clearing is always legal")
}

func TestAnswerValueDraftFormat(t *testing.T) {
	// The draft wire format is the raw scalar value, not an object.
	cases := []struct {
		value AnswerValue
		raw   string
	}{
		{SingleChoice(7), `7`},
		{TrueFalse(true), `true`},
		{TrueFalse(false), `false`},
		{TextAnswer("hello"), `"hello"`},
		{CodeAnswer("print(1)"), `"print(1)"`},
		{Unanswered(), `null`},
	}
	for _, c := range cases {
		data, err := json.Marshal(c.value)
		require.NoError(t, err)
		require.JSONEq(t, c.raw, string(data))
	}
}

func TestDecodeAnswerUsesQuestionType(t *testing.T) {
	a, err := DecodeAnswer(QuestionTypeMCQ, json.RawMessage(`5`))
	require.NoError(t, err)
	require.Equal(t, SingleChoice(5), a)

	a, err = DecodeAnswer(QuestionTypeTF, json.RawMessage(`false`))
	require.NoError(t, err)
	require.Equal(t, TrueFalse(false), a)

	// The same raw string resolves by declared type.
	a, err = DecodeAnswer(QuestionTypeText, json.RawMessage(`"x"`))
	require.NoError(t, err)
	require.Equal(t, AnswerText, a.Kind())

	a, err = DecodeAnswer(QuestionTypeCode, json.RawMessage(`"x"`))
	require.NoError(t, err)
	require.Equal(t, AnswerCode, a.Kind())

	a, err = DecodeAnswer(QuestionTypeMCQ, nil)
	require.NoError(t, err)
	require.Equal(t, Unanswered(), a)

	a, err = DecodeAnswer(QuestionTypeTF, json.RawMessage(`null`))
	require.NoError(t, err)
	require.Equal(t, Unanswered(), a)

	_, err = DecodeAnswer(QuestionTypeMCQ, json.RawMessage(`"not a number"`))
	require.Error(t, err)

	_, err = DecodeAnswer("riddle", json.RawMessage(`1`))
	require.Error(t, err)
}
