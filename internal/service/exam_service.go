package service

import (
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/internal/repository"
	"cbt_portal_backend/internal/util"
	"cbt_portal_backend/pkg/logger"
	"cbt_portal_backend/pkg/monitoring"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExamService 考试流程编排：开考、交卷、成绩查询、重置。
// 会话实时状态由 Hub 持有，本服务负责与数据库之间的衔接。
type ExamService struct {
	TestRepo       *repository.TestRepository
	StudentRepo    *repository.StudentRepository
	SubmissionRepo *repository.SubmissionRepository
	Grading        *GradingService
	Hub            *ExamSessionHub
}

func NewExamService(
	testRepo *repository.TestRepository,
	studentRepo *repository.StudentRepository,
	submissionRepo *repository.SubmissionRepository,
	grading *GradingService,
	hub *ExamSessionHub,
) *ExamService {
	s := &ExamService{
		TestRepo:       testRepo,
		StudentRepo:    studentRepo,
		SubmissionRepo: submissionRepo,
		Grading:        grading,
		Hub:            hub,
	}
	hub.OnSubmit = s.submitSession
	return s
}

// StartExam 开考：校验试卷对该学生可见，建立（或复用）答题记录与内存会话。
// 服务重启后进行中的作答不恢复，学生需要教师重置后重考。
func (s *ExamService) StartExam(studentID, testID string) (*ExamSession, error) {
	student, err := s.StudentRepo.FindByID(studentID)
	if err != nil {
		return nil, util.ErrStudentNotFound
	}

	test, err := s.TestRepo.FindTestByID(testID)
	if err != nil {
		return nil, util.ErrTestNotFound
	}
	if !test.IsPublished || test.ClassID != student.ClassID {
		return nil, util.ErrTestNotPublished
	}

	attempt, err := s.SubmissionRepo.FindAttempt(studentID, testID)
	switch {
	case err == nil:
		if attempt.Status == model.AttemptSubmitted {
			return nil, util.ErrAttemptSubmitted
		}
		// in_progress 且已有内存会话：同一场考试重复进入，复用会话
		if session, ok := s.Hub.GetSession(attempt.ID); ok {
			return session, nil
		}
		// 记录还在但会话已丢失（服务重启过），按新会话重新开始计时
	case errors.Is(err, gorm.ErrRecordNotFound):
		attempt = &model.ExamAttempt{
			UUIDBase:  model.UUIDBase{ID: model.GenerateUUID()},
			StudentID: studentID,
			TestID:    testID,
			Status:    model.AttemptInProgress,
			StartedAt: time.Now(),
		}
		if err := s.SubmissionRepo.CreateAttempt(attempt); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	questions, err := s.TestRepo.ListQuestions(testID)
	if err != nil {
		return nil, err
	}

	session := NewExamSession(attempt.ID, studentID, test, questions)
	session, created := s.Hub.AddSession(session)
	if created {
		logger.Log.Info("Exam session started",
			zap.String("attempt_id", attempt.ID),
			zap.String("student_id", studentID),
			zap.String("test_id", testID))
	}
	return session, nil
}

// ActiveSession 返回学生在该试卷上进行中的会话，供 REST 降级接口使用
func (s *ExamService) ActiveSession(studentID, testID string) (*ExamSession, error) {
	attempt, err := s.SubmissionRepo.FindAttempt(studentID, testID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}
	session, ok := s.Hub.GetSession(attempt.ID)
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	return session, nil
}

// Submit 学生主动交卷（REST 入口），要求当前停留在最后一题
func (s *ExamService) Submit(studentID, testID string) (*model.Submission, error) {
	attempt, err := s.SubmissionRepo.FindAttempt(studentID, testID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}
	session, ok := s.Hub.GetSession(attempt.ID)
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	return s.doSubmit(session, "student", false)
}

// submitSession Hub 回调入口：超时强制交卷或 WS 主动交卷
func (s *ExamService) submitSession(session *ExamSession, trigger string) {
	force := trigger == "timeout"
	if _, err := s.doSubmit(session, trigger, force); err != nil {
		logger.Log.Error("Session submit failed",
			zap.String("attempt_id", session.AttemptID),
			zap.String("trigger", trigger),
			zap.Error(err))
	}
	s.Hub.BroadcastState(session)
}

// doSubmit 统一提交路径：学生交卷与超时强制交卷都走这里。
// 阅卷或落库失败会退出提交态并保留全部答案，允许再次提交。
func (s *ExamService) doSubmit(session *ExamSession, trigger string, force bool) (*model.Submission, error) {
	answers, err := session.BeginSubmit(force)
	if err != nil {
		return nil, err
	}

	submission, err := s.Grading.GradeAndPersist(context.Background(), session.StudentID, session.Test, answers, session.AttemptID)
	if err != nil {
		session.FinishSubmit(false)
		return nil, err
	}

	session.FinishSubmit(true)
	monitoring.ExamSubmissionCounter.WithLabelValues(trigger).Inc()
	s.Hub.RemoveSession(session.AttemptID)
	return submission, nil
}

// GetResult 学生查询自己某张试卷的成绩
func (s *ExamService) GetResult(studentID, testID string) (*model.Submission, error) {
	submission, err := s.SubmissionRepo.FindByStudentAndTest(studentID, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return submission, nil
}

// ListAvailableTests 学生可参加的试卷列表，并标注是否已交卷
type AvailableTest struct {
	model.Test
	Attempted bool `json:"attempted"`
}

func (s *ExamService) ListAvailableTests(studentID, sessionID, term string) ([]AvailableTest, error) {
	student, err := s.StudentRepo.FindByID(studentID)
	if err != nil {
		return nil, util.ErrStudentNotFound
	}

	tests, err := s.TestRepo.ListPublishedForClass(student.ClassID, sessionID, term)
	if err != nil {
		return nil, err
	}

	out := make([]AvailableTest, 0, len(tests))
	for _, t := range tests {
		item := AvailableTest{Test: t}
		if attempt, err := s.SubmissionRepo.FindAttempt(studentID, t.ID); err == nil {
			item.Attempted = attempt.Status == model.AttemptSubmitted
		}
		out = append(out, item)
	}
	return out, nil
}

// AttemptStatus 教师监考视图里的一条答题记录
type AttemptStatus struct {
	model.ExamAttempt
	// 是否有存活的内存会话（学生仍连着或最近还在答题）
	Live             bool `json:"live"`
	RemainingSeconds int  `json:"remainingSeconds,omitempty"`
}

// ListAttempts 教师查看整卷的答题进度：谁已交卷、谁还在答、剩余多少时间
func (s *ExamService) ListAttempts(testID string) ([]AttemptStatus, error) {
	if _, err := s.TestRepo.FindTestByID(testID); err != nil {
		return nil, util.ErrTestNotFound
	}

	attempts, err := s.SubmissionRepo.ListAttemptsByTest(testID)
	if err != nil {
		return nil, err
	}

	out := make([]AttemptStatus, 0, len(attempts))
	for _, a := range attempts {
		status := AttemptStatus{ExamAttempt: a}
		if session, ok := s.Hub.GetSession(a.ID); ok {
			status.Live = true
			status.RemainingSeconds = session.RemainingSeconds()
		}
		out = append(out, status)
	}
	return out, nil
}

// ResetAttempt 教师重置某个学生的答题记录（删除提交），允许重考
func (s *ExamService) ResetAttempt(studentID, testID string) error {
	if attempt, err := s.SubmissionRepo.FindAttempt(studentID, testID); err == nil {
		s.Hub.RemoveSession(attempt.ID)
	}
	err := s.SubmissionRepo.ResetAttempt(studentID, testID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrAttemptNotFound
	}
	return err
}
