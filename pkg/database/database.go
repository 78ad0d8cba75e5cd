package database

import (
	"cbt_portal_backend/internal/config"
	"cbt_portal_backend/internal/model"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Student{},
		&model.SchoolClass{},
		&model.AcademicSession{},
		&model.Subject{},
		&model.Test{},
		&model.Question{},
		&model.ExamAttempt{},
		&model.Submission{},
		&model.SubmissionResult{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认学年（如果为空则创建当前学年，三个学期）
	var sessionCount int64
	db.Model(&model.AcademicSession{}).Count(&sessionCount)
	if sessionCount == 0 {
		terms, _ := json.Marshal([]string{"First Term", "Second Term", "Third Term"})
		db.Create(&model.AcademicSession{
			Name:  "2025/2026",
			Terms: terms,
		})
	}

	// 默认科目
	var subjectCount int64
	db.Model(&model.Subject{}).Count(&subjectCount)
	if subjectCount == 0 {
		defaultSubjects := []model.Subject{
			{Name: "Mathematics"},
			{Name: "English Language"},
			{Name: "Basic Science"},
			{Name: "History"},
		}
		for _, s := range defaultSubjects {
			db.Create(&s)
		}
	}

	return db, nil
}
