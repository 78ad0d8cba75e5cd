package service

import (
	"cbt_portal_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeGeneratedFiltersMalformedQuestions(t *testing.T) {
	generated := []generatedQuestion{
		{QuestionType: "multiple-choice", QuestionText: "valid mc",
			Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: intPtr(1)},
		// 选项不足 4 个
		{QuestionType: "multiple-choice", QuestionText: "three options",
			Options: []string{"a", "b", "c"}, CorrectAnswerIndex: intPtr(0)},
		// 下标越界
		{QuestionType: "multiple-choice", QuestionText: "bad index",
			Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: intPtr(4)},
		// 缺少答案下标
		{QuestionType: "multiple-choice", QuestionText: "no index",
			Options: []string{"a", "b", "c", "d"}},
		{QuestionType: "short-answer", QuestionText: "valid sa", ModelAnswer: "ref"},
		// 缺少参考答案
		{QuestionType: "short-answer", QuestionText: "no model answer"},
		// 未知题型
		{QuestionType: "essay", QuestionText: "unknown type"},
		// 空题干
		{QuestionType: "short-answer", ModelAnswer: "ref"},
	}

	out := sanitizeGenerated(generated)

	require.Len(t, out, 2)
	assert.Equal(t, "valid mc", out[0].QuestionText)
	assert.Equal(t, model.MultipleChoice, out[0].QuestionType)
	assert.Equal(t, "valid sa", out[1].QuestionText)
	assert.Equal(t, model.ShortAnswer, out[1].QuestionType)
}

func TestBuildQuestionsAssignsPositions(t *testing.T) {
	inputs := []QuestionInput{
		{QuestionType: model.MultipleChoice, QuestionText: "q0",
			Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: intPtr(2)},
		{QuestionType: model.ShortAnswer, QuestionText: "q1", ModelAnswer: "ref"},
	}

	questions := buildQuestions("test-1", inputs)

	require.Len(t, questions, 2)
	assert.Equal(t, 0, questions[0].Position)
	assert.Equal(t, 1, questions[1].Position)
	assert.Equal(t, "test-1", questions[0].TestID)
	assert.Equal(t, []string{"a", "b", "c", "d"}, questions[0].OptionList())
	require.NotNil(t, questions[0].CorrectAnswerIndex)
	assert.Equal(t, 2, *questions[0].CorrectAnswerIndex)
	// 简答题不携带选项字段
	assert.Empty(t, questions[1].OptionList())
}
