package service

import (
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/internal/repository"
	"cbt_portal_backend/internal/util"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"gorm.io/gorm"
)

// SchoolService 学校基础数据与学籍管理
type SchoolService struct {
	SchoolRepo  *repository.SchoolRepository
	StudentRepo *repository.StudentRepository
}

func NewSchoolService(schoolRepo *repository.SchoolRepository, studentRepo *repository.StudentRepository) *SchoolService {
	return &SchoolService{SchoolRepo: schoolRepo, StudentRepo: studentRepo}
}

func (s *SchoolService) CreateClass(name string) (*model.SchoolClass, error) {
	class := &model.SchoolClass{Name: name}
	if err := s.SchoolRepo.CreateClass(class); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *SchoolService) ListClasses() ([]model.SchoolClass, error) {
	return s.SchoolRepo.ListClasses()
}

func (s *SchoolService) DeleteClass(id string) error {
	return s.SchoolRepo.DeleteClass(id)
}

func (s *SchoolService) CreateSession(name string, terms []string) (*model.AcademicSession, error) {
	if len(terms) == 0 {
		terms = []string{"First Term", "Second Term", "Third Term"}
	}
	termsJSON, err := json.Marshal(terms)
	if err != nil {
		return nil, err
	}
	session := &model.AcademicSession{Name: name, Terms: termsJSON}
	if err := s.SchoolRepo.CreateSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SchoolService) ListSessions() ([]model.AcademicSession, error) {
	return s.SchoolRepo.ListSessions()
}

func (s *SchoolService) ActiveSession() (*model.AcademicSession, error) {
	return s.SchoolRepo.FindActiveSession()
}

func (s *SchoolService) ArchiveSession(id string) error {
	return s.SchoolRepo.ArchiveSession(id)
}

func (s *SchoolService) CreateSubject(name string) (*model.Subject, error) {
	subject := &model.Subject{Name: name}
	if err := s.SchoolRepo.CreateSubject(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *SchoolService) ListSubjects() ([]model.Subject, error) {
	return s.SchoolRepo.ListSubjects()
}

func (s *SchoolService) DeleteSubject(id string) error {
	return s.SchoolRepo.DeleteSubject(id)
}

// EnrollStudent 注册学生并签发唯一 6 位登录码
func (s *SchoolService) EnrollStudent(name, classID, parentName, parentPhone, admissionDate string) (*model.Student, error) {
	if _, err := s.SchoolRepo.FindClassByID(classID); err != nil {
		return nil, fmt.Errorf("class not found: %w", err)
	}

	code, err := s.generateLoginCode()
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		Name:          name,
		LoginCode:     code,
		ClassID:       classID,
		ParentName:    parentName,
		ParentPhone:   parentPhone,
		AdmissionDate: admissionDate,
	}
	if err := s.StudentRepo.Create(student); err != nil {
		return nil, err
	}
	return student, nil
}

// generateLoginCode 随机生成不与现有学生冲突的 6 位数字码
func (s *SchoolService) generateLoginCode() (string, error) {
	for i := 0; i < 20; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(1000000))
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("%06d", n.Int64())
		exists, err := s.StudentRepo.LoginCodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("failed to allocate a unique login code")
}

// RegenerateLoginCode 为学生更换登录码（原码遗失或泄露时）
func (s *SchoolService) RegenerateLoginCode(studentID string) (*model.Student, error) {
	student, err := s.StudentRepo.FindByID(studentID)
	if err != nil {
		return nil, util.ErrStudentNotFound
	}
	code, err := s.generateLoginCode()
	if err != nil {
		return nil, err
	}
	student.LoginCode = code
	if err := s.StudentRepo.Update(student); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *SchoolService) UpdateStudent(studentID string, name, classID, parentName, parentPhone string) (*model.Student, error) {
	student, err := s.StudentRepo.FindByID(studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrStudentNotFound
		}
		return nil, err
	}

	if name != "" {
		student.Name = name
	}
	if classID != "" {
		if _, err := s.SchoolRepo.FindClassByID(classID); err != nil {
			return nil, fmt.Errorf("class not found: %w", err)
		}
		student.ClassID = classID
	}
	if parentName != "" {
		student.ParentName = parentName
	}
	if parentPhone != "" {
		student.ParentPhone = parentPhone
	}

	if err := s.StudentRepo.Update(student); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *SchoolService) DeleteStudent(studentID string) error {
	return s.StudentRepo.Delete(studentID)
}

func (s *SchoolService) ListStudents(classID string, page, limit int, name string) ([]model.Student, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.StudentRepo.ListByClass(classID, page, limit, name)
}
