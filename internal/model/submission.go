package model

import (
	"encoding/json"
	"time"
)

// Submission 一次完整作答的最终评分记录，创建后不再修改（无重判路径）
// swagger:model
type Submission struct {
	UUIDBase
	StudentID   string          `gorm:"size:36;index;not null" json:"studentId"`
	TestID      string          `gorm:"size:36;index;not null" json:"testId"`
	Answers     json.RawMessage `gorm:"type:json" json:"answers"` // 提交时的原始 AnswerSet
	Score       float64         `json:"score"`                    // 百分比
	SubmittedAt time.Time       `json:"submittedAt"`

	Results []SubmissionResult `gorm:"foreignKey:SubmissionID" json:"detailedResults,omitempty"`
}

// SubmissionResult 单题评分结果，顺序与试卷题目顺序一致
// swagger:model
type SubmissionResult struct {
	BaseModel
	SubmissionID string          `gorm:"size:36;index;not null" json:"-"`
	QuestionID   string          `gorm:"size:36;not null" json:"questionId"`
	Position     int             `gorm:"not null" json:"position"`
	Answer       json.RawMessage `gorm:"type:json" json:"answer"`
	IsCorrect    bool            `json:"isCorrect"`
	Feedback     string          `gorm:"type:text" json:"feedback,omitempty"`
}

const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
)

// ExamAttempt 学生对某张试卷的答题记录，同一学生同一试卷仅一条
// swagger:model
type ExamAttempt struct {
	UUIDBase
	StudentID    string    `gorm:"size:36;index:idx_attempt_student_test,unique;not null" json:"studentId"`
	TestID       string    `gorm:"size:36;index:idx_attempt_student_test,unique;not null" json:"testId"`
	Status       string    `gorm:"size:20;default:'in_progress'" json:"status"`
	StartedAt    time.Time `json:"startedAt"`
	SubmissionID *string   `gorm:"size:36" json:"submissionId,omitempty"`
}
