package service

import (
	"cbt_portal_backend/internal/repository"
	"cbt_portal_backend/internal/util"
	"cbt_portal_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	// 正确率低于该阈值的题目视为「薄弱知识点」
	struggleThreshold = 0.6
	analysisCacheTTL  = 30 * time.Minute
)

// AnalyticsService 成绩分析：薄弱知识点、讲评教案、成绩单评语
type AnalyticsService struct {
	TestRepo       *repository.TestRepository
	SubmissionRepo *repository.SubmissionRepository
	StudentRepo    *repository.StudentRepository
	AI             *AIService
	Redis          *redis.Client
}

func NewAnalyticsService(
	testRepo *repository.TestRepository,
	submissionRepo *repository.SubmissionRepository,
	studentRepo *repository.StudentRepository,
	ai *AIService,
	rdb *redis.Client,
) *AnalyticsService {
	return &AnalyticsService{
		TestRepo:       testRepo,
		SubmissionRepo: submissionRepo,
		StudentRepo:    studentRepo,
		AI:             ai,
		Redis:          rdb,
	}
}

// TestAnalysis 整卷分析结果
type TestAnalysis struct {
	TestID          string                        `json:"testId"`
	SubmissionCount int                           `json:"submissionCount"`
	AverageScore    float64                       `json:"averageScore"`
	Questions       []repository.QuestionAccuracy `json:"questions"`
	StruggledTopics []string                      `json:"struggledTopics"`
	Summary         string                        `json:"summary"`
}

// AnalyzeTest 汇总整卷正确率并生成 AI 讲评。结果缓存 30 分钟，
// 新提交落库后下一次缓存过期即反映出来。
func (s *AnalyticsService) AnalyzeTest(ctx context.Context, testID string) (*TestAnalysis, error) {
	cacheKey := fmt.Sprintf("analytics:test:%s", testID)
	if cached, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
		var analysis TestAnalysis
		if json.Unmarshal([]byte(cached), &analysis) == nil {
			return &analysis, nil
		}
	}

	if _, err := s.TestRepo.FindTestByID(testID); err != nil {
		return nil, util.ErrTestNotFound
	}

	rows, err := s.SubmissionRepo.ListByTest(testID)
	if err != nil {
		return nil, err
	}

	accuracy, err := s.SubmissionRepo.AggregateAccuracyByTest(testID)
	if err != nil {
		return nil, err
	}

	analysis := &TestAnalysis{
		TestID:          testID,
		SubmissionCount: len(rows),
		Questions:       accuracy,
	}

	total := 0.0
	for _, r := range rows {
		total += r.Score
	}
	if len(rows) > 0 {
		analysis.AverageScore = total / float64(len(rows))
	}

	for _, q := range accuracy {
		if q.Accuracy < struggleThreshold {
			analysis.StruggledTopics = append(analysis.StruggledTopics, q.QuestionText)
		}
	}

	if len(rows) > 0 {
		analysis.Summary = s.narrativeSummary(ctx, analysis)
	}

	if data, err := json.Marshal(analysis); err == nil {
		s.Redis.Set(ctx, cacheKey, data, analysisCacheTTL)
	}
	return analysis, nil
}

const analysisSystemPrompt = "你是一位教学主任。根据整卷数据为任课老师写一段 4-6 句的讲评，" +
	"指出整体表现与薄弱知识点，给出下一步教学建议。直接输出正文。"

func (s *AnalyticsService) narrativeSummary(ctx context.Context, analysis *TestAnalysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "提交人数：%d，平均分：%.1f\n", analysis.SubmissionCount, analysis.AverageScore)
	for _, q := range analysis.Questions {
		fmt.Fprintf(&sb, "第 %d 题正确率 %.0f%%：%s\n", q.Position+1, q.Accuracy*100, q.QuestionText)
	}

	summary, err := s.AI.Chat(ctx, sb.String(), analysisSystemPrompt)
	if err != nil {
		logger.Log.Warn("Analysis summary generation failed", zap.String("test_id", analysis.TestID), zap.Error(err))
		return ""
	}
	return summary
}

// LessonPlan AI 生成的讲评教案
type LessonPlan struct {
	Topic      string   `json:"topic"`
	Objectives []string `json:"objectives"`
	Activities []string `json:"activities"`
	Materials  []string `json:"materials"`
}

const lessonPlanSystemPrompt = "你是一位资深教师。针对学生薄弱的知识点设计一份 40 分钟的讲评课教案。" +
	"输出 JSON：{\"topic\": string, \"objectives\": [string], \"activities\": [string], \"materials\": [string]}。"

// GenerateLessonPlan 针对薄弱知识点生成教案
func (s *AnalyticsService) GenerateLessonPlan(ctx context.Context, testID string) (*LessonPlan, error) {
	analysis, err := s.AnalyzeTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if len(analysis.StruggledTopics) == 0 {
		return nil, fmt.Errorf("no struggled topics found for this test")
	}

	prompt := "学生普遍答错的题目：\n- " + strings.Join(analysis.StruggledTopics, "\n- ")

	var plan LessonPlan
	if err := s.AI.ChatJSON(ctx, prompt, lessonPlanSystemPrompt, &plan); err != nil {
		return nil, fmt.Errorf("lesson plan generation failed: %w", err)
	}
	return &plan, nil
}

// StudentReport 成绩单条目
type StudentReport struct {
	StudentID   string             `json:"studentId"`
	StudentName string             `json:"studentName"`
	Scores      []StudentTestScore `json:"scores"`
	Average     float64            `json:"average"`
	Remark      string             `json:"remark"`
}

type StudentTestScore struct {
	TestID      string    `json:"testId"`
	Title       string    `json:"title"`
	Score       float64   `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

const reportSystemPrompt = "你是一位班主任。根据学生的各科成绩写一段 2-3 句的成绩单评语，" +
	"语气正面、具体，指出强项和需要努力的方向。直接输出正文。"

// BuildStudentReport 汇总学生全部成绩并生成评语
func (s *AnalyticsService) BuildStudentReport(ctx context.Context, studentID string) (*StudentReport, error) {
	student, err := s.StudentRepo.FindByID(studentID)
	if err != nil {
		return nil, util.ErrStudentNotFound
	}

	submissions, err := s.SubmissionRepo.ListByStudent(studentID)
	if err != nil {
		return nil, err
	}

	report := &StudentReport{
		StudentID:   student.ID,
		StudentName: student.Name,
	}

	total := 0.0
	for _, sub := range submissions {
		title := sub.TestID
		if test, err := s.TestRepo.FindTestByID(sub.TestID); err == nil {
			title = test.Title
		}
		report.Scores = append(report.Scores, StudentTestScore{
			TestID:      sub.TestID,
			Title:       title,
			Score:       sub.Score,
			SubmittedAt: sub.SubmittedAt,
		})
		total += sub.Score
	}
	if len(submissions) > 0 {
		report.Average = total / float64(len(submissions))
	}

	if len(report.Scores) > 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "学生：%s，平均分 %.1f\n", student.Name, report.Average)
		for _, sc := range report.Scores {
			fmt.Fprintf(&sb, "%s：%.0f 分\n", sc.Title, sc.Score)
		}
		remark, err := s.AI.Chat(ctx, sb.String(), reportSystemPrompt)
		if err != nil {
			logger.Log.Warn("Report remark generation failed", zap.String("student_id", studentID), zap.Error(err))
		} else {
			report.Remark = remark
		}
	}

	return report, nil
}

// ListTestSubmissions 教师查看整卷全部提交
func (s *AnalyticsService) ListTestSubmissions(testID string) ([]repository.SubmissionListRow, error) {
	if _, err := s.TestRepo.FindTestByID(testID); err != nil {
		return nil, util.ErrTestNotFound
	}
	return s.SubmissionRepo.ListByTest(testID)
}
