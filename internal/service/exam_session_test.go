package service

import (
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(questionCount int, durationMinutes int) *ExamSession {
	test := &model.Test{
		UUIDBase:        model.UUIDBase{ID: "test-1"},
		DurationMinutes: durationMinutes,
	}
	questions := make([]model.Question, questionCount)
	for i := range questions {
		questions[i] = model.Question{
			UUIDBase:     model.UUIDBase{ID: string(rune('a' + i))},
			Position:     i,
			QuestionType: model.MultipleChoice,
		}
	}
	return NewExamSession("attempt-1", "student-1", test, questions)
}

func TestTickCountsDown(t *testing.T) {
	s := newTestSession(3, 1) // 60 秒

	assert.False(t, s.Tick())
	assert.Equal(t, 59, s.RemainingSeconds())
}

func TestTickSuspendedDuringViolation(t *testing.T) {
	s := newTestSession(3, 1)

	require.True(t, s.ReportViolation())
	before := s.RemainingSeconds()
	for i := 0; i < 10; i++ {
		assert.False(t, s.Tick())
	}
	assert.Equal(t, before, s.RemainingSeconds(), "lockdown wall time must not be charged")

	s.ResolveViolation()
	s.Tick()
	assert.Equal(t, before-1, s.RemainingSeconds())
}

func TestTickSuspendedDuringSubmission(t *testing.T) {
	s := newTestSession(2, 1)
	require.NoError(t, s.Navigate(1))

	_, err := s.BeginSubmit(false)
	require.NoError(t, err)

	before := s.RemainingSeconds()
	s.Tick()
	assert.Equal(t, before, s.RemainingSeconds())
}

func TestTickSignalsTimeoutUntilSubmitted(t *testing.T) {
	s := newTestSession(2, 1)

	// 耗尽 60 秒后，提交成功之前每个 Tick 都要求强制交卷
	timeouts := 0
	for i := 0; i < 70; i++ {
		if s.Tick() {
			timeouts++
		}
	}
	assert.Equal(t, 11, timeouts)
	assert.Equal(t, 0, s.RemainingSeconds())

	_, err := s.BeginSubmit(true)
	require.NoError(t, err)
	assert.False(t, s.Tick(), "no retry while a submission is in flight")

	s.FinishSubmit(true)
	assert.False(t, s.Tick())
}

func TestTimeoutRearmsAfterFailedSubmit(t *testing.T) {
	s := newTestSession(2, 1)

	for i := 0; i < 60; i++ {
		s.Tick()
	}
	require.Equal(t, 0, s.RemainingSeconds())

	// 强制交卷因落库故障失败
	_, err := s.BeginSubmit(true)
	require.NoError(t, err)
	s.FinishSubmit(false)

	// 下一秒必须再次触发强制交卷，而不是停在可作答状态
	assert.True(t, s.Tick())

	// 超时之后不再接受作答
	assert.ErrorIs(t, s.SetAnswer("a", model.ChoiceAnswer(0)), util.ErrTimeExpired)
}

func TestViolationReportedOnce(t *testing.T) {
	s := newTestSession(2, 1)

	assert.True(t, s.ReportViolation())
	assert.False(t, s.ReportViolation(), "duplicate reports must not re-trigger")
}

func TestNavigateClamps(t *testing.T) {
	s := newTestSession(3, 1)

	require.NoError(t, s.Navigate(99))
	assert.Equal(t, 2, s.Snapshot().CurrentIndex)

	require.NoError(t, s.Navigate(-5))
	assert.Equal(t, 0, s.Snapshot().CurrentIndex)
}

func TestSetAnswerOverwrites(t *testing.T) {
	s := newTestSession(2, 1)

	require.NoError(t, s.SetAnswer("a", model.ChoiceAnswer(0)))
	require.NoError(t, s.SetAnswer("a", model.ChoiceAnswer(3)))

	snap := s.Snapshot()
	assert.Equal(t, model.ChoiceAnswer(3), snap.Answers["a"])
}

func TestSubmitRequiresLastQuestion(t *testing.T) {
	s := newTestSession(3, 1)

	_, err := s.BeginSubmit(false)
	assert.ErrorIs(t, err, util.ErrSubmitNotLastPage)

	require.NoError(t, s.Navigate(2))
	_, err = s.BeginSubmit(false)
	assert.NoError(t, err)
}

func TestForcedSubmitBypassesLastPageCheck(t *testing.T) {
	s := newTestSession(3, 1)

	_, err := s.BeginSubmit(true)
	assert.NoError(t, err)
}

func TestDoubleSubmitRejected(t *testing.T) {
	s := newTestSession(1, 1)

	_, err := s.BeginSubmit(false)
	require.NoError(t, err)

	_, err = s.BeginSubmit(false)
	assert.ErrorIs(t, err, util.ErrSubmitInFlight)
}

func TestFailedSubmitPreservesAnswersAndAllowsRetry(t *testing.T) {
	s := newTestSession(2, 1)
	require.NoError(t, s.SetAnswer("a", model.ChoiceAnswer(1)))
	require.NoError(t, s.SetAnswer("b", model.TextAnswer("essay")))
	require.NoError(t, s.Navigate(1))

	answers, err := s.BeginSubmit(false)
	require.NoError(t, err)
	require.Len(t, answers, 2)

	// 阅卷失败
	s.FinishSubmit(false)
	assert.False(t, s.IsSubmitted())

	snap := s.Snapshot()
	assert.Equal(t, model.ChoiceAnswer(1), snap.Answers["a"])
	assert.Equal(t, model.TextAnswer("essay"), snap.Answers["b"])

	// 可以再次提交
	_, err = s.BeginSubmit(false)
	assert.NoError(t, err)
}

func TestSubmittedIsTerminal(t *testing.T) {
	s := newTestSession(1, 1)

	_, err := s.BeginSubmit(false)
	require.NoError(t, err)
	s.FinishSubmit(true)

	assert.True(t, s.IsSubmitted())
	assert.ErrorIs(t, s.SetAnswer("a", model.ChoiceAnswer(0)), util.ErrAttemptSubmitted)
	assert.ErrorIs(t, s.Navigate(0), util.ErrAttemptSubmitted)
	_, err = s.BeginSubmit(true)
	assert.ErrorIs(t, err, util.ErrAttemptSubmitted)
	assert.False(t, s.Tick())
	assert.False(t, s.ReportViolation())
}

func TestSubmitSnapshotIsIsolated(t *testing.T) {
	s := newTestSession(1, 1)
	require.NoError(t, s.SetAnswer("a", model.ChoiceAnswer(0)))

	answers, err := s.BeginSubmit(false)
	require.NoError(t, err)

	// 修改快照不影响会话内部状态
	answers["a"] = model.ChoiceAnswer(3)
	s.FinishSubmit(false)
	assert.Equal(t, model.ChoiceAnswer(0), s.Snapshot().Answers["a"])
}
