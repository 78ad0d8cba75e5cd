package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIJudgeParsesVerdict(t *testing.T) {
	ai := newMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"isCorrect\": true, \"feedback\": \"well reasoned\"}"}}]}`))
	})
	judge := NewAIJudge(ai, 60)

	correct, feedback, err := judge.Judge(context.Background(), "q", "ref", "student answer")
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, "well reasoned", feedback)
}

func TestAIJudgeSurfacesUpstreamError(t *testing.T) {
	ai := newMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	judge := NewAIJudge(ai, 60)

	_, _, err := judge.Judge(context.Background(), "q", "ref", "answer")
	assert.Error(t, err)
}

func TestAIJudgeRespectsContextCancellation(t *testing.T) {
	ai := newMockAI(t, func(w http.ResponseWriter, r *http.Request) {})
	judge := NewAIJudge(ai, 1) // 每分钟 1 次，第二次调用必须等待

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := judge.Judge(ctx, "q", "ref", "answer")
	assert.Error(t, err)
}
