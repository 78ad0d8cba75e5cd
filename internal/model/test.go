package model

import "encoding/json"

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	ShortAnswer    QuestionType = "short-answer"
)

// Test 试卷。发布后题目不可再编辑（服务层拒绝）。
// swagger:model
type Test struct {
	UUIDBase
	Title           string `gorm:"size:255;not null" json:"title"`
	SubjectID       string `gorm:"size:36;index;not null" json:"subjectId"`
	ClassID         string `gorm:"size:36;index;not null" json:"classId"`
	SessionID       string `gorm:"size:36;index;not null" json:"sessionId"`
	Term            string `gorm:"size:50;not null" json:"term"`
	DurationMinutes int    `gorm:"not null" json:"durationMinutes"`
	IsPublished     bool   `gorm:"default:false" json:"isPublished"`
	CreatorID       uint   `gorm:"index" json:"creatorId"`

	Questions []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`
}

// Question 题目。Position 决定试卷内顺序，阅卷结果按同一顺序输出。
// swagger:model
type Question struct {
	UUIDBase
	TestID       string       `gorm:"size:36;index;not null" json:"testId"`
	Position     int          `gorm:"not null" json:"position"`
	QuestionType QuestionType `gorm:"size:20;not null" json:"questionType"`
	QuestionText string       `gorm:"type:text;not null" json:"questionText"`
	// 选择题字段
	Options            json.RawMessage `gorm:"type:json" json:"options,omitempty"` // 选项字符串数组
	CorrectAnswerIndex *int            `json:"correctAnswerIndex,omitempty"`
	// 简答题字段
	ModelAnswer string `gorm:"type:text" json:"modelAnswer,omitempty"`
}

// OptionList 解析选项数组
func (q *Question) OptionList() []string {
	var opts []string
	if len(q.Options) > 0 {
		_ = json.Unmarshal(q.Options, &opts)
	}
	return opts
}
