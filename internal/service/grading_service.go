package service

import (
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/internal/repository"
	"cbt_portal_backend/pkg/logger"
	"cbt_portal_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

const (
	feedbackNoAnswer   = "No answer submitted."
	feedbackJudgeError = "Could not automatically grade this answer."
)

// GradingService 阅卷流水线：客观题本地比对，简答题逐题送判卷器。
type GradingService struct {
	TestRepo       *repository.TestRepository
	SubmissionRepo *repository.SubmissionRepository
	Judge          AnswerJudge
}

func NewGradingService(testRepo *repository.TestRepository, submissionRepo *repository.SubmissionRepository, judge AnswerJudge) *GradingService {
	return &GradingService{
		TestRepo:       testRepo,
		SubmissionRepo: submissionRepo,
		Judge:          judge,
	}
}

// GradeResult 阅卷输出，Results 顺序与试卷题目顺序一致
type GradeResult struct {
	Score   float64
	Results []model.SubmissionResult
}

// Grade 对一套答案阅卷。不落库，纯计算；判卷器失败只影响该题，继续判后续题目。
func (s *GradingService) Grade(ctx context.Context, questions []model.Question, answers model.AnswerSet) GradeResult {
	start := time.Now()
	defer func() {
		monitoring.GradingDuration.Observe(time.Since(start).Seconds())
	}()

	results := make([]model.SubmissionResult, 0, len(questions))
	correctCount := 0

	for _, q := range questions {
		res := model.SubmissionResult{
			QuestionID: q.ID,
			Position:   q.Position,
		}

		answer, answered := answers[q.ID]
		if !answered || answer.IsZero() {
			// 未作答直接判错，不消耗判卷配额
			res.IsCorrect = false
			res.Feedback = feedbackNoAnswer
			res.Answer, _ = json.Marshal(nil)
			results = append(results, res)
			continue
		}

		res.Answer, _ = json.Marshal(answer)

		switch q.QuestionType {
		case model.MultipleChoice:
			// 只有选项下标才能判对，文本值（哪怕是 "1"）一律判错
			res.IsCorrect = answer.Kind == model.AnswerChoice &&
				q.CorrectAnswerIndex != nil &&
				answer.Index == *q.CorrectAnswerIndex

		case model.ShortAnswer:
			if answer.Kind != model.AnswerText {
				res.IsCorrect = false
				break
			}
			correct, feedback, err := s.Judge.Judge(ctx, q.QuestionText, q.ModelAnswer, answer.Text)
			if err != nil {
				monitoring.JudgeFailureCounter.Inc()
				logger.Log.Warn("Answer judge failed, marking incorrect",
					zap.String("question_id", q.ID),
					zap.Error(err))
				res.IsCorrect = false
				res.Feedback = feedbackJudgeError
				break
			}
			res.IsCorrect = correct
			res.Feedback = feedback
		}

		if res.IsCorrect {
			correctCount++
		}
		results = append(results, res)
	}

	score := 0.0
	if len(questions) > 0 {
		score = 100 * float64(correctCount) / float64(len(questions))
	}

	return GradeResult{Score: score, Results: results}
}

// GradeAndPersist 阅卷并事务性落库，返回持久化后的提交记录
func (s *GradingService) GradeAndPersist(ctx context.Context, studentID string, test *model.Test, answers model.AnswerSet, attemptID string) (*model.Submission, error) {
	questions, err := s.TestRepo.ListQuestions(test.ID)
	if err != nil {
		return nil, err
	}

	graded := s.Grade(ctx, questions, answers)

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}

	submission := &model.Submission{
		UUIDBase:    model.UUIDBase{ID: model.GenerateUUID()},
		StudentID:   studentID,
		TestID:      test.ID,
		Answers:     answersJSON,
		Score:       graded.Score,
		SubmittedAt: time.Now(),
	}

	if err := s.SubmissionRepo.CreateWithResults(submission, graded.Results, attemptID); err != nil {
		return nil, err
	}

	submission.Results = graded.Results
	logger.Log.Info("Submission graded",
		zap.String("submission_id", submission.ID),
		zap.String("student_id", studentID),
		zap.String("test_id", test.ID),
		zap.Float64("score", graded.Score))

	return submission, nil
}
