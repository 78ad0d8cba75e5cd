package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

// AnswerJudge 简答题判卷器。实现方对单份答案给出对/错与一句话反馈。
type AnswerJudge interface {
	Judge(ctx context.Context, questionText, modelAnswer, studentAnswer string) (correct bool, feedback string, err error)
}

type judgeVerdict struct {
	IsCorrect bool   `json:"isCorrect"`
	Feedback  string `json:"feedback"`
}

// AIJudge 基于大模型的判卷实现，内置限速避免整卷连续判题触发上游限流
type AIJudge struct {
	ai      *AIService
	limiter *rate.Limiter
}

func NewAIJudge(ai *AIService, ratePerMinute int) *AIJudge {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	return &AIJudge{
		ai:      ai,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 1),
	}
}

const judgeSystemPrompt = "你是一位严谨的阅卷老师。根据参考答案判断学生答案是否正确，" +
	"允许同义表述，不要求逐字一致。输出 JSON：{\"isCorrect\": bool, \"feedback\": \"一句话点评\"}。"

func (j *AIJudge) Judge(ctx context.Context, questionText, modelAnswer, studentAnswer string) (bool, string, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return false, "", err
	}

	prompt := fmt.Sprintf("题目：%s\n参考答案：%s\n学生答案：%s", questionText, modelAnswer, studentAnswer)

	var verdict judgeVerdict
	if err := j.ai.ChatJSON(ctx, prompt, judgeSystemPrompt, &verdict); err != nil {
		return false, "", err
	}

	verdict.Feedback = strings.TrimSpace(verdict.Feedback)
	return verdict.IsCorrect, verdict.Feedback, nil
}
