package service

import (
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/pkg/logger"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	logger.Log = zap.NewNop()
}

// fakeJudge 按预设脚本返回判卷结果，并记录收到的学生答案
type fakeJudge struct {
	verdicts map[string]bool
	failFor  map[string]bool
	calls    []string
}

func (f *fakeJudge) Judge(ctx context.Context, questionText, modelAnswer, studentAnswer string) (bool, string, error) {
	f.calls = append(f.calls, studentAnswer)
	if f.failFor[studentAnswer] {
		return false, "", errors.New("upstream unavailable")
	}
	return f.verdicts[studentAnswer], "checked", nil
}

func intPtr(i int) *int { return &i }

func mcQuestion(id string, pos int, correct int) model.Question {
	return model.Question{
		UUIDBase:           model.UUIDBase{ID: id},
		Position:           pos,
		QuestionType:       model.MultipleChoice,
		QuestionText:       "mc " + id,
		CorrectAnswerIndex: intPtr(correct),
	}
}

func saQuestion(id string, pos int) model.Question {
	return model.Question{
		UUIDBase:     model.UUIDBase{ID: id},
		Position:     pos,
		QuestionType: model.ShortAnswer,
		QuestionText: "sa " + id,
		ModelAnswer:  "reference",
	}
}

func TestGradeMultipleChoice(t *testing.T) {
	judge := &fakeJudge{}
	svc := &GradingService{Judge: judge}

	questions := []model.Question{
		mcQuestion("q1", 0, 2),
		mcQuestion("q2", 1, 0),
	}
	answers := model.AnswerSet{
		"q1": model.ChoiceAnswer(2),
		"q2": model.ChoiceAnswer(1),
	}

	result := svc.Grade(context.Background(), questions, answers)

	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].IsCorrect)
	assert.False(t, result.Results[1].IsCorrect)
	assert.Equal(t, 50.0, result.Score)
	assert.Empty(t, judge.calls, "objective questions must not hit the judge")
}

func TestGradeTextAnswerNeverMatchesChoiceIndex(t *testing.T) {
	judge := &fakeJudge{}
	svc := &GradingService{Judge: judge}

	questions := []model.Question{mcQuestion("q1", 0, 1)}
	// 文本 "1" 不等于下标 1
	answers := model.AnswerSet{"q1": model.TextAnswer("1")}

	result := svc.Grade(context.Background(), questions, answers)

	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].IsCorrect)
	assert.Equal(t, 0.0, result.Score)
}

func TestGradeUnansweredSkipsJudge(t *testing.T) {
	judge := &fakeJudge{}
	svc := &GradingService{Judge: judge}

	questions := []model.Question{
		saQuestion("q1", 0),
		mcQuestion("q2", 1, 0),
	}

	result := svc.Grade(context.Background(), questions, model.AnswerSet{})

	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.False(t, r.IsCorrect)
	}
	assert.Equal(t, "No answer submitted.", result.Results[0].Feedback)
	assert.Equal(t, "No answer submitted.", result.Results[1].Feedback)
	assert.Empty(t, judge.calls)
}

func TestGradeShortAnswerViaJudge(t *testing.T) {
	judge := &fakeJudge{verdicts: map[string]bool{"photosynthesis": true}}
	svc := &GradingService{Judge: judge}

	questions := []model.Question{saQuestion("q1", 0)}
	answers := model.AnswerSet{"q1": model.TextAnswer("photosynthesis")}

	result := svc.Grade(context.Background(), questions, answers)

	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].IsCorrect)
	assert.Equal(t, "checked", result.Results[0].Feedback)
	assert.Equal(t, []string{"photosynthesis"}, judge.calls)
	assert.Equal(t, 100.0, result.Score)
}

func TestGradeJudgeFailureContinues(t *testing.T) {
	judge := &fakeJudge{
		verdicts: map[string]bool{"good": true},
		failFor:  map[string]bool{"bad": true},
	}
	svc := &GradingService{Judge: judge}

	questions := []model.Question{
		saQuestion("q1", 0),
		saQuestion("q2", 1),
		mcQuestion("q3", 2, 0),
	}
	answers := model.AnswerSet{
		"q1": model.TextAnswer("bad"),
		"q2": model.TextAnswer("good"),
		"q3": model.ChoiceAnswer(0),
	}

	result := svc.Grade(context.Background(), questions, answers)

	require.Len(t, result.Results, 3)
	assert.False(t, result.Results[0].IsCorrect)
	assert.Equal(t, "Could not automatically grade this answer.", result.Results[0].Feedback)
	// 失败题之后的题目照常判
	assert.True(t, result.Results[1].IsCorrect)
	assert.True(t, result.Results[2].IsCorrect)
	assert.InDelta(t, 100.0*2/3, result.Score, 0.001)
}

func TestGradeResultsFollowQuestionOrder(t *testing.T) {
	judge := &fakeJudge{}
	svc := &GradingService{Judge: judge}

	questions := []model.Question{
		mcQuestion("first", 0, 0),
		mcQuestion("second", 1, 0),
		mcQuestion("third", 2, 0),
	}

	result := svc.Grade(context.Background(), questions, model.AnswerSet{})

	require.Len(t, result.Results, 3)
	assert.Equal(t, "first", result.Results[0].QuestionID)
	assert.Equal(t, "second", result.Results[1].QuestionID)
	assert.Equal(t, "third", result.Results[2].QuestionID)
	assert.Equal(t, 0, result.Results[0].Position)
	assert.Equal(t, 2, result.Results[2].Position)
}

func TestGradeEmptyTestScoresZero(t *testing.T) {
	svc := &GradingService{Judge: &fakeJudge{}}

	result := svc.Grade(context.Background(), nil, model.AnswerSet{})

	assert.Empty(t, result.Results)
	assert.Equal(t, 0.0, result.Score)
}

func TestGradeChoiceAnswerOnShortAnswerQuestion(t *testing.T) {
	judge := &fakeJudge{}
	svc := &GradingService{Judge: judge}

	questions := []model.Question{saQuestion("q1", 0)}
	answers := model.AnswerSet{"q1": model.ChoiceAnswer(0)}

	result := svc.Grade(context.Background(), questions, answers)

	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].IsCorrect)
	assert.Empty(t, judge.calls, "type-mismatched answers are rejected locally")
}
