package model

type UserRole string

const (
	Teacher    UserRole = "teacher"
	Proprietor UserRole = "proprietor"
	Admin      UserRole = "admin"
	// Student 角色仅出现在 JWT Claims 中，学生数据存于 Student 表
	StudentRole UserRole = "student"
)

// User 教职工账号（教师/校长/管理员）
// swagger:model
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string   `gorm:"size:255;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'teacher'" json:"role"`
	LastSeen *int64   `json:"lastSeen,omitempty"`
}
