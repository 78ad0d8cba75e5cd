package repository

import (
	"cbt_portal_backend/internal/model"

	"gorm.io/gorm"
)

// SchoolRepository 班级/学年/科目等学校基础数据
type SchoolRepository struct {
	DB *gorm.DB
}

func NewSchoolRepository(db *gorm.DB) *SchoolRepository {
	return &SchoolRepository{DB: db}
}

func (r *SchoolRepository) CreateClass(class *model.SchoolClass) error {
	return r.DB.Create(class).Error
}

func (r *SchoolRepository) FindClassByID(id string) (*model.SchoolClass, error) {
	var c model.SchoolClass
	err := r.DB.First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SchoolRepository) ListClasses() ([]model.SchoolClass, error) {
	var classes []model.SchoolClass
	err := r.DB.Order("name asc").Find(&classes).Error
	return classes, err
}

func (r *SchoolRepository) DeleteClass(id string) error {
	return r.DB.Delete(&model.SchoolClass{}, "id = ?", id).Error
}

func (r *SchoolRepository) CreateSession(session *model.AcademicSession) error {
	return r.DB.Create(session).Error
}

func (r *SchoolRepository) FindSessionByID(id string) (*model.AcademicSession, error) {
	var s model.AcademicSession
	err := r.DB.First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SchoolRepository) ListSessions() ([]model.AcademicSession, error) {
	var sessions []model.AcademicSession
	err := r.DB.Order("created_at desc").Find(&sessions).Error
	return sessions, err
}

// FindActiveSession 返回最近一个未归档的学年
func (r *SchoolRepository) FindActiveSession() (*model.AcademicSession, error) {
	var s model.AcademicSession
	err := r.DB.Where("is_archived = ?", false).Order("created_at desc").First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SchoolRepository) ArchiveSession(id string) error {
	return r.DB.Model(&model.AcademicSession{}).Where("id = ?", id).Update("is_archived", true).Error
}

func (r *SchoolRepository) CreateSubject(subject *model.Subject) error {
	return r.DB.Create(subject).Error
}

func (r *SchoolRepository) FindSubjectByID(id string) (*model.Subject, error) {
	var s model.Subject
	err := r.DB.First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SchoolRepository) ListSubjects() ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.Order("name asc").Find(&subjects).Error
	return subjects, err
}

func (r *SchoolRepository) DeleteSubject(id string) error {
	return r.DB.Delete(&model.Subject{}, "id = ?", id).Error
}
