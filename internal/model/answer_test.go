package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerUnmarshalNumber(t *testing.T) {
	var a Answer
	require.NoError(t, json.Unmarshal([]byte(`2`), &a))
	assert.Equal(t, ChoiceAnswer(2), a)
}

func TestAnswerUnmarshalString(t *testing.T) {
	var a Answer
	require.NoError(t, json.Unmarshal([]byte(`"mitochondria"`), &a))
	assert.Equal(t, TextAnswer("mitochondria"), a)
}

func TestAnswerStringDigitStaysText(t *testing.T) {
	// "1" 是文本，不是选项下标
	var a Answer
	require.NoError(t, json.Unmarshal([]byte(`"1"`), &a))
	assert.Equal(t, AnswerText, a.Kind)
	assert.Equal(t, "1", a.Text)
	assert.NotEqual(t, ChoiceAnswer(1), a)
}

func TestAnswerUnmarshalNull(t *testing.T) {
	var a Answer
	require.NoError(t, json.Unmarshal([]byte(`null`), &a))
	assert.True(t, a.IsZero())
}

func TestAnswerUnmarshalRejectsOtherTypes(t *testing.T) {
	cases := []string{`true`, `[1]`, `{"v":1}`, `1.5`}
	for _, raw := range cases {
		var a Answer
		assert.Error(t, json.Unmarshal([]byte(raw), &a), "input: %s", raw)
	}
}

func TestAnswerMarshalRoundTrip(t *testing.T) {
	choice, err := json.Marshal(ChoiceAnswer(3))
	require.NoError(t, err)
	assert.Equal(t, `3`, string(choice))

	text, err := json.Marshal(TextAnswer("osmosis"))
	require.NoError(t, err)
	assert.Equal(t, `"osmosis"`, string(text))
}

func TestAnswerSetJSONRoundTrip(t *testing.T) {
	set := AnswerSet{
		"q1": ChoiceAnswer(0),
		"q2": TextAnswer("water cycle"),
	}

	data, err := json.Marshal(set)
	require.NoError(t, err)

	var decoded AnswerSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, set, decoded)
}

func TestAnswerSetCloneIsIndependent(t *testing.T) {
	set := AnswerSet{"q1": ChoiceAnswer(1)}
	clone := set.Clone()
	clone["q1"] = TextAnswer("changed")

	assert.Equal(t, ChoiceAnswer(1), set["q1"])
}
