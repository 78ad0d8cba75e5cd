package service

import (
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/internal/util"
	"sync"
	"time"
)

// ExamSession 一场进行中考试的内存状态机。所有修改都持锁进行，
// 提交成功后进入终态，任何后续修改都会返回错误。
type ExamSession struct {
	mu sync.Mutex

	AttemptID string
	StudentID string
	Test      *model.Test
	Questions []model.Question

	currentIndex     int
	answers          model.AnswerSet
	remainingSeconds int

	// 退出全屏视为违规：违规期间计时暂停，现实时间不计入答题用时
	lockdownViolated bool
	// 提交进行中：阅卷可能耗时较长，期间计时暂停、拒绝再次提交
	submissionInFlight bool
	submitted          bool

	lastActivity time.Time
	now          func() time.Time
}

func NewExamSession(attemptID, studentID string, test *model.Test, questions []model.Question) *ExamSession {
	s := &ExamSession{
		AttemptID:        attemptID,
		StudentID:        studentID,
		Test:             test,
		Questions:        questions,
		answers:          make(model.AnswerSet),
		remainingSeconds: test.DurationMinutes * 60,
		now:              time.Now,
	}
	s.lastActivity = s.now()
	return s
}

// SessionSnapshot 推送给客户端的会话状态
type SessionSnapshot struct {
	AttemptID          string          `json:"attemptId"`
	CurrentIndex       int             `json:"currentIndex"`
	RemainingSeconds   int             `json:"remainingSeconds"`
	Answers            model.AnswerSet `json:"answers"`
	LockdownViolated   bool            `json:"lockdownViolated"`
	SubmissionInFlight bool            `json:"submissionInFlight"`
	Submitted          bool            `json:"submitted"`
}

func (s *ExamSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		AttemptID:          s.AttemptID,
		CurrentIndex:       s.currentIndex,
		RemainingSeconds:   s.remainingSeconds,
		Answers:            s.answers.Clone(),
		LockdownViolated:   s.lockdownViolated,
		SubmissionInFlight: s.submissionInFlight,
		Submitted:          s.submitted,
	}
}

// Tick 推进一秒。违规、提交中、已交卷期间不扣时。
// 返回 true 表示时间已耗尽、需要强制交卷。提交成功之前每次 Tick 都会
// 继续发信号：一次强制交卷失败（如落库故障）后，下一秒会再次触发重试，
// 会话不会卡在已超时却无人提交的状态。
func (s *ExamSession) Tick() (timedOut bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted || s.submissionInFlight {
		return false
	}
	if s.remainingSeconds <= 0 {
		return true
	}
	if s.lockdownViolated {
		return false
	}
	s.remainingSeconds--
	return s.remainingSeconds == 0
}

// Navigate 跳转到指定题号，越界时收敛到合法范围而不报错
func (s *ExamSession) Navigate(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return util.ErrAttemptSubmitted
	}
	if index < 0 {
		index = 0
	}
	if max := len(s.Questions) - 1; index > max {
		index = max
	}
	s.currentIndex = index
	s.lastActivity = s.now()
	return nil
}

// SetAnswer 记录或覆盖某题的作答
func (s *ExamSession) SetAnswer(questionID string, answer model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return util.ErrAttemptSubmitted
	}
	if s.submissionInFlight {
		return util.ErrSubmitInFlight
	}
	if s.remainingSeconds <= 0 {
		return util.ErrTimeExpired
	}
	s.answers[questionID] = answer
	s.lastActivity = s.now()
	return nil
}

// ReportViolation 学生端上报退出全屏。返回 false 表示状态未变化（重复上报或已交卷）。
func (s *ExamSession) ReportViolation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted || s.lockdownViolated {
		return false
	}
	s.lockdownViolated = true
	s.lastActivity = s.now()
	return true
}

// ResolveViolation 学生回到全屏，恢复计时
func (s *ExamSession) ResolveViolation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return
	}
	s.lockdownViolated = false
	s.lastActivity = s.now()
}

// BeginSubmit 进入提交态并返回答案快照。
// 学生主动交卷必须停留在最后一题；超时强制交卷（force）不受此限制。
func (s *ExamSession) BeginSubmit(force bool) (model.AnswerSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return nil, util.ErrAttemptSubmitted
	}
	if s.submissionInFlight {
		return nil, util.ErrSubmitInFlight
	}
	if !force && s.currentIndex != len(s.Questions)-1 {
		return nil, util.ErrSubmitNotLastPage
	}
	s.submissionInFlight = true
	s.lastActivity = s.now()
	return s.answers.Clone(), nil
}

// FinishSubmit 结束提交流程。成功则进入终态；
// 失败则退回可作答状态，已填答案全部保留，允许重试。
func (s *ExamSession) FinishSubmit(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissionInFlight = false
	if success {
		s.submitted = true
	}
	s.lastActivity = s.now()
}

func (s *ExamSession) IsSubmitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

func (s *ExamSession) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingSeconds
}

// IdleFor 距最后一次事件的时长，供闲置回收判断
func (s *ExamSession) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.lastActivity)
}
