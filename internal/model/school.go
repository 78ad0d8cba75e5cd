package model

import "encoding/json"

// SchoolClass 班级，如 "JSS 1A"、"Primary 5B"
// swagger:model
type SchoolClass struct {
	UUIDBase
	Name string `gorm:"size:100;not null" json:"name"`
}

// AcademicSession 学年，如 "2024/2025"，包含若干学期
// swagger:model
type AcademicSession struct {
	UUIDBase
	Name       string          `gorm:"size:100;not null" json:"name"`
	Terms      json.RawMessage `gorm:"type:json" json:"terms"` // 如 ["First Term","Second Term","Third Term"]
	IsArchived bool            `gorm:"default:false" json:"isArchived"`
}

// TermList 解析学期列表，字段损坏时返回空表而不是报错
func (s *AcademicSession) TermList() []string {
	var terms []string
	if len(s.Terms) > 0 {
		_ = json.Unmarshal(s.Terms, &terms)
	}
	return terms
}

// Subject 科目，如 "Mathematics"
// swagger:model
type Subject struct {
	UUIDBase
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

// Student 学生档案，LoginCode 为 6 位数字登录码
// swagger:model
type Student struct {
	UUIDBase
	Name          string `gorm:"size:100;not null" json:"name"`
	LoginCode     string `gorm:"size:6;uniqueIndex;not null" json:"loginCode"`
	ClassID       string `gorm:"size:36;index;not null" json:"classId"`
	ParentName    string `gorm:"size:100" json:"parentName,omitempty"`
	ParentPhone   string `gorm:"size:30" json:"parentPhone,omitempty"`
	AdmissionDate string `gorm:"size:20" json:"admissionDate,omitempty"`
}
