package repository

import (
	"cbt_portal_backend/internal/model"

	"gorm.io/gorm"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

func (r *StudentRepository) Create(student *model.Student) error {
	return r.DB.Create(student).Error
}

func (r *StudentRepository) FindByID(id string) (*model.Student, error) {
	var s model.Student
	err := r.DB.First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) FindByLoginCode(code string) (*model.Student, error) {
	var s model.Student
	err := r.DB.Where("login_code = ?", code).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) LoginCodeExists(code string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Student{}).Where("login_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *StudentRepository) Update(student *model.Student) error {
	return r.DB.Save(student).Error
}

func (r *StudentRepository) Delete(id string) error {
	return r.DB.Delete(&model.Student{}, "id = ?", id).Error
}

func (r *StudentRepository) ListByClass(classID string, page, limit int, name string) ([]model.Student, int64, error) {
	query := r.DB.Model(&model.Student{})
	if classID != "" {
		query = query.Where("class_id = ?", classID)
	}
	if name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var students []model.Student
	offset := (page - 1) * limit
	err := query.Order("name asc").Offset(offset).Limit(limit).Find(&students).Error
	return students, total, err
}
