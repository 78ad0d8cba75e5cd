package service

import (
	"bytes"
	"cbt_portal_backend/internal/model"
	"cbt_portal_backend/internal/repository"
	"cbt_portal_backend/internal/util"
	"cbt_portal_backend/pkg/logger"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestService 试卷创作：手工建卷、AI 出题、PDF 导入、发布管理
type TestService struct {
	TestRepo   *repository.TestRepository
	SchoolRepo *repository.SchoolRepository
	AI         *AIService
	Storage    *StorageService
}

func NewTestService(testRepo *repository.TestRepository, schoolRepo *repository.SchoolRepository, ai *AIService, storage *StorageService) *TestService {
	return &TestService{TestRepo: testRepo, SchoolRepo: schoolRepo, AI: ai, Storage: storage}
}

// QuestionInput 建卷时的题目载荷
type QuestionInput struct {
	QuestionType       model.QuestionType `json:"questionType" binding:"required"`
	QuestionText       string             `json:"questionText" binding:"required"`
	Options            []string           `json:"options,omitempty"`
	CorrectAnswerIndex *int               `json:"correctAnswerIndex,omitempty"`
	ModelAnswer        string             `json:"modelAnswer,omitempty"`
}

type CreateTestInput struct {
	Title           string          `json:"title" binding:"required"`
	SubjectID       string          `json:"subjectId" binding:"required"`
	ClassID         string          `json:"classId" binding:"required"`
	SessionID       string          `json:"sessionId" binding:"required"`
	Term            string          `json:"term" binding:"required"`
	DurationMinutes int             `json:"durationMinutes" binding:"required,min=1"`
	Questions       []QuestionInput `json:"questions"`
}

func (s *TestService) CreateTest(creatorID uint, input CreateTestInput) (*model.Test, error) {
	test := &model.Test{
		Title:           input.Title,
		SubjectID:       input.SubjectID,
		ClassID:         input.ClassID,
		SessionID:       input.SessionID,
		Term:            input.Term,
		DurationMinutes: input.DurationMinutes,
		CreatorID:       creatorID,
	}
	if err := s.TestRepo.CreateTest(test); err != nil {
		return nil, err
	}

	questions := buildQuestions(test.ID, input.Questions)
	if len(questions) > 0 {
		if err := s.TestRepo.ReplaceQuestions(test.ID, questions); err != nil {
			return nil, err
		}
		test.Questions = questions
	}
	return test, nil
}

func buildQuestions(testID string, inputs []QuestionInput) []model.Question {
	questions := make([]model.Question, 0, len(inputs))
	for i, in := range inputs {
		q := model.Question{
			TestID:       testID,
			Position:     i,
			QuestionType: in.QuestionType,
			QuestionText: in.QuestionText,
			ModelAnswer:  in.ModelAnswer,
		}
		if in.QuestionType == model.MultipleChoice {
			q.Options, _ = json.Marshal(in.Options)
			q.CorrectAnswerIndex = in.CorrectAnswerIndex
		}
		questions = append(questions, q)
	}
	return questions
}

func (s *TestService) GetTest(id string) (*model.Test, error) {
	test, err := s.TestRepo.FindTestByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	questions, err := s.TestRepo.ListQuestions(id)
	if err != nil {
		return nil, err
	}
	test.Questions = questions
	return test, nil
}

// GetTestForStudent 学生视图：隐藏正确答案与参考答案
func (s *TestService) GetTestForStudent(id string) (*model.Test, error) {
	test, err := s.GetTest(id)
	if err != nil {
		return nil, err
	}
	if !test.IsPublished {
		return nil, util.ErrTestNotPublished
	}
	for i := range test.Questions {
		test.Questions[i].CorrectAnswerIndex = nil
		test.Questions[i].ModelAnswer = ""
	}
	return test, nil
}

func (s *TestService) ListTests(creatorID uint, page, limit int) ([]repository.TestListRow, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.TestRepo.ListTests(creatorID, page, limit)
}

type UpdateTestInput struct {
	Title           string          `json:"title"`
	Term            string          `json:"term"`
	DurationMinutes int             `json:"durationMinutes"`
	Questions       []QuestionInput `json:"questions"`
}

// UpdateTest 已发布试卷拒绝任何修改
func (s *TestService) UpdateTest(id string, input UpdateTestInput) (*model.Test, error) {
	test, err := s.TestRepo.FindTestByID(id)
	if err != nil {
		return nil, util.ErrTestNotFound
	}
	if test.IsPublished {
		return nil, util.ErrTestPublished
	}

	if input.Title != "" {
		test.Title = input.Title
	}
	if input.Term != "" {
		test.Term = input.Term
	}
	if input.DurationMinutes > 0 {
		test.DurationMinutes = input.DurationMinutes
	}
	if err := s.TestRepo.UpdateTest(test); err != nil {
		return nil, err
	}

	if input.Questions != nil {
		questions := buildQuestions(test.ID, input.Questions)
		if err := s.TestRepo.ReplaceQuestions(test.ID, questions); err != nil {
			return nil, err
		}
		test.Questions = questions
	}
	return test, nil
}

// PublishTest 发布后学生可见，题目随即锁定
func (s *TestService) PublishTest(id string) (*model.Test, error) {
	test, err := s.TestRepo.FindTestByID(id)
	if err != nil {
		return nil, util.ErrTestNotFound
	}
	questions, err := s.TestRepo.ListQuestions(id)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, errors.New("cannot publish a test with no questions")
	}

	test.IsPublished = true
	if err := s.TestRepo.UpdateTest(test); err != nil {
		return nil, err
	}
	logger.Log.Info("Test published", zap.String("test_id", id), zap.Int("questions", len(questions)))
	return test, nil
}

func (s *TestService) UnpublishTest(id string) (*model.Test, error) {
	test, err := s.TestRepo.FindTestByID(id)
	if err != nil {
		return nil, util.ErrTestNotFound
	}
	test.IsPublished = false
	if err := s.TestRepo.UpdateTest(test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *TestService) DeleteTest(id string) error {
	if _, err := s.TestRepo.FindTestByID(id); err != nil {
		return util.ErrTestNotFound
	}
	return s.TestRepo.DeleteTest(id)
}

// generatedQuestion AI 出题与 PDF 解析共用的中间结构
type generatedQuestion struct {
	QuestionType       string   `json:"questionType"`
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options,omitempty"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
	ModelAnswer        string   `json:"modelAnswer,omitempty"`
}

const generateSystemPrompt = "你是一位资深命题老师。根据给定科目、年级与主题命制试题。" +
	"选择题必须恰好 4 个选项，correctAnswerIndex 为 0-3 的下标；" +
	"简答题给出 modelAnswer 作为参考答案。" +
	"输出 JSON 数组，元素结构：{\"questionType\": \"multiple-choice\"|\"short-answer\", " +
	"\"questionText\": string, \"options\": [string], \"correctAnswerIndex\": int, \"modelAnswer\": string}。"

// GenerateQuestions AI 出题。不合规的选择题（选项数不等于 4 或下标越界）直接丢弃。
func (s *TestService) GenerateQuestions(ctx context.Context, subject, className, topic string, count int, questionType string) ([]QuestionInput, error) {
	if count <= 0 || count > 50 {
		count = 10
	}

	typeHint := "选择题与简答题混合"
	switch questionType {
	case string(model.MultipleChoice):
		typeHint = "全部为选择题"
	case string(model.ShortAnswer):
		typeHint = "全部为简答题"
	}

	prompt := fmt.Sprintf("科目：%s\n年级：%s\n主题：%s\n数量：%d 道，%s。", subject, className, topic, count, typeHint)

	var generated []generatedQuestion
	if err := s.AI.ChatJSON(ctx, prompt, generateSystemPrompt, &generated); err != nil {
		return nil, fmt.Errorf("question generation failed: %w", err)
	}

	return sanitizeGenerated(generated), nil
}

// sanitizeGenerated 过滤模型输出中不满足结构约束的题目
func sanitizeGenerated(generated []generatedQuestion) []QuestionInput {
	out := make([]QuestionInput, 0, len(generated))
	for _, g := range generated {
		if g.QuestionText == "" {
			continue
		}
		switch model.QuestionType(g.QuestionType) {
		case model.MultipleChoice:
			if len(g.Options) != 4 || g.CorrectAnswerIndex == nil ||
				*g.CorrectAnswerIndex < 0 || *g.CorrectAnswerIndex > 3 {
				continue
			}
			out = append(out, QuestionInput{
				QuestionType:       model.MultipleChoice,
				QuestionText:       g.QuestionText,
				Options:            g.Options,
				CorrectAnswerIndex: g.CorrectAnswerIndex,
			})
		case model.ShortAnswer:
			if g.ModelAnswer == "" {
				continue
			}
			out = append(out, QuestionInput{
				QuestionType: model.ShortAnswer,
				QuestionText: g.QuestionText,
				ModelAnswer:  g.ModelAnswer,
			})
		}
	}
	return out
}

const importSystemPrompt = "你是一位教务助理。从上传的试卷 PDF 中逐题提取题目。" +
	"输出 JSON 对象：{\"title\": string, \"questions\": [同命题结构的题目数组]}。" +
	"无法识别正确答案的选择题跳过，不要编造答案。"

type importedPaper struct {
	Title     string              `json:"title"`
	Questions []generatedQuestion `json:"questions"`
}

// ImportResult PDF 导入的解析结果，供老师在保存前校对
type ImportResult struct {
	Title                    string          `json:"title"`
	Questions                []QuestionInput `json:"questions"`
	SuggestedDurationMinutes int             `json:"suggestedDurationMinutes"`
	FileURL                  string          `json:"fileUrl"`
}

// ImportFromPDF 上传试卷 PDF，存档原件并由 AI 解析出题目。
// 建议时长按每题 1.5 分钟估算。
func (s *TestService) ImportFromPDF(ctx context.Context, fileHeader *multipart.FileHeader) (*ImportResult, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("imports/%s_%s", model.GenerateUUID(), fileHeader.Filename)
	fileURL, err := s.Storage.Upload(ctx, objectName, bytes.NewReader(data), int64(len(data)), "application/pdf")
	if err != nil {
		logger.Log.Warn("Failed to archive imported PDF, continuing with parse", zap.Error(err))
	}

	raw, err := s.AI.ChatWithFile(ctx, "请提取这份试卷中的全部题目。", fileHeader.Filename,
		base64.StdEncoding.EncodeToString(data), "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("PDF parse failed: %w", err)
	}

	var paper importedPaper
	if err := json.Unmarshal([]byte(StripJSONFence(raw)), &paper); err != nil {
		return nil, fmt.Errorf("PDF parse returned malformed payload: %w", err)
	}

	questions := sanitizeGenerated(paper.Questions)
	duration := int(math.Ceil(float64(len(questions)) * 1.5))
	if duration < 5 {
		duration = 5
	}

	return &ImportResult{
		Title:                    paper.Title,
		Questions:                questions,
		SuggestedDurationMinutes: duration,
		FileURL:                  fileURL,
	}, nil
}

const explainSystemPrompt = "你是一位耐心的老师。解释这道选择题为什么选这个答案，语言面向学生，3-5 句话。"

// ExplainQuestion 为选择题生成讲解（成绩页「为什么」按钮）
func (s *TestService) ExplainQuestion(ctx context.Context, testID, questionID string) (string, error) {
	questions, err := s.TestRepo.ListQuestions(testID)
	if err != nil {
		return "", err
	}
	for _, q := range questions {
		if q.ID != questionID {
			continue
		}
		if q.QuestionType != model.MultipleChoice || q.CorrectAnswerIndex == nil {
			return "", errors.New("explanations are only available for multiple-choice questions")
		}
		opts := q.OptionList()
		if *q.CorrectAnswerIndex >= len(opts) {
			return "", errors.New("question has a malformed answer index")
		}
		prompt := fmt.Sprintf("题目：%s\n选项：%v\n正确答案：%s",
			q.QuestionText, opts, opts[*q.CorrectAnswerIndex])
		return s.AI.Chat(ctx, prompt, explainSystemPrompt)
	}
	return "", util.ErrTestNotFound
}
