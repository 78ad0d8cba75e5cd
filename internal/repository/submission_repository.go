package repository

import (
	"cbt_portal_backend/internal/model"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

// CreateWithResults 在同一事务内写入提交、逐题结果，并把答题记录置为已提交。
// 任一步失败整体回滚，答题记录保持 in_progress，允许学生重试提交。
func (r *SubmissionRepository) CreateWithResults(submission *model.Submission, results []model.SubmissionResult, attemptID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}
		for i := range results {
			results[i].SubmissionID = submission.ID
			if err := tx.Create(&results[i]).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.ExamAttempt{}).Where("id = ?", attemptID).
			Updates(map[string]interface{}{
				"status":        model.AttemptSubmitted,
				"submission_id": submission.ID,
			}).Error
	})
}

func (r *SubmissionRepository) FindByID(id string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.Preload("Results", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	}).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) FindByStudentAndTest(studentID, testID string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.Preload("Results", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	}).Where("student_id = ? AND test_id = ?", studentID, testID).
		Order("submitted_at desc").First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type SubmissionListRow struct {
	model.Submission
	StudentName string `json:"studentName"`
}

func (r *SubmissionRepository) ListByTest(testID string) ([]SubmissionListRow, error) {
	var rows []SubmissionListRow
	err := r.DB.Table("submissions s").
		Select("s.*, st.name as student_name").
		Joins("LEFT JOIN students st ON st.id = s.student_id").
		Where("s.test_id = ? AND s.deleted_at IS NULL", testID).
		Order("s.score desc").
		Scan(&rows).Error
	return rows, err
}

func (r *SubmissionRepository) ListByStudent(studentID string) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Where("student_id = ?", studentID).Order("submitted_at desc").Find(&subs).Error
	return subs, err
}

// QuestionAccuracy 单题正确率聚合，供错题分析使用
type QuestionAccuracy struct {
	QuestionID   string  `json:"questionId"`
	Position     int     `json:"position"`
	QuestionText string  `json:"questionText"`
	Total        int64   `json:"total"`
	Correct      int64   `json:"correct"`
	Accuracy     float64 `json:"accuracy"`
}

// AggregateAccuracyByTest 按题聚合整卷的正确率
func (r *SubmissionRepository) AggregateAccuracyByTest(testID string) ([]QuestionAccuracy, error) {
	var rows []QuestionAccuracy
	err := r.DB.Table("submission_results sr").
		Select("sr.question_id, sr.position, q.question_text, COUNT(*) as total, "+
			"SUM(CASE WHEN sr.is_correct THEN 1 ELSE 0 END) as correct, "+
			"AVG(CASE WHEN sr.is_correct THEN 1.0 ELSE 0.0 END) as accuracy").
		Joins("JOIN submissions s ON s.id = sr.submission_id AND s.deleted_at IS NULL").
		Joins("JOIN questions q ON q.id = sr.question_id").
		Where("s.test_id = ?", testID).
		Group("sr.question_id, sr.position, q.question_text").
		Order("sr.position asc").
		Scan(&rows).Error
	return rows, err
}

func (r *SubmissionRepository) CreateAttempt(attempt *model.ExamAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *SubmissionRepository) FindAttempt(studentID, testID string) (*model.ExamAttempt, error) {
	var a model.ExamAttempt
	err := r.DB.Where("student_id = ? AND test_id = ?", studentID, testID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *SubmissionRepository) ListAttemptsByTest(testID string) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.DB.Where("test_id = ?", testID).Find(&attempts).Error
	return attempts, err
}

// ResetAttempt 教师端重置：删除答题记录及其提交，让学生可以重考
func (r *SubmissionRepository) ResetAttempt(studentID, testID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var attempt model.ExamAttempt
		if err := tx.Where("student_id = ? AND test_id = ?", studentID, testID).First(&attempt).Error; err != nil {
			return err
		}
		if attempt.SubmissionID != nil {
			if err := tx.Where("submission_id = ?", *attempt.SubmissionID).Delete(&model.SubmissionResult{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.Submission{}, "id = ?", *attempt.SubmissionID).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&attempt).Error
	})
}
