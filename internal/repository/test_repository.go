package repository

import (
	"cbt_portal_backend/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) CreateTest(test *model.Test) error {
	return r.DB.Create(test).Error
}

func (r *TestRepository) FindTestByID(id string) (*model.Test, error) {
	var test model.Test
	err := r.DB.First(&test, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) UpdateTest(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) DeleteTest(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Test{}, "id = ?", id).Error
	})
}

type TestListRow struct {
	model.Test
	QuestionCount   int `json:"questionCount"`
	SubmissionCount int `json:"submissionCount"`
}

func (r *TestRepository) ListTests(creatorID uint, page, limit int) ([]TestListRow, int64, error) {
	query := r.DB.Model(&model.Test{}).Where("deleted_at IS NULL")
	if creatorID != 0 {
		query = query.Where("creator_id = ?", creatorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tests []TestListRow
	dbQuery := r.DB.Table("tests t").
		Select("t.*, " +
			"(SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id AND q.deleted_at IS NULL) as question_count, " +
			"(SELECT COUNT(*) FROM submissions s WHERE s.test_id = t.id AND s.deleted_at IS NULL) as submission_count").
		Where("t.deleted_at IS NULL")
	if creatorID != 0 {
		dbQuery = dbQuery.Where("t.creator_id = ?", creatorID)
	}

	if limit > 0 {
		offset := (page - 1) * limit
		dbQuery = dbQuery.Offset(offset).Limit(limit)
	}

	err := dbQuery.Order("t.created_at desc").Scan(&tests).Error
	return tests, total, err
}

// ListPublishedForClass 学生可见：本班、当前学年学期、已发布的试卷
func (r *TestRepository) ListPublishedForClass(classID, sessionID, term string) ([]model.Test, error) {
	var tests []model.Test
	query := r.DB.Where("class_id = ? AND is_published = ?", classID, true)
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}
	if term != "" {
		query = query.Where("term = ?", term)
	}
	err := query.Order("created_at desc").Find(&tests).Error
	return tests, err
}

// ListQuestions 按 Position 升序返回试卷题目，这是阅卷与展示的权威顺序
func (r *TestRepository) ListQuestions(testID string) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("test_id = ?", testID).Order("position asc, created_at asc").Find(&qs).Error
	return qs, err
}

func (r *TestRepository) ReplaceQuestions(testID string, qs []model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", testID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		for i := range qs {
			qs[i].TestID = testID
			qs[i].Position = i
			if err := tx.Create(&qs[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
