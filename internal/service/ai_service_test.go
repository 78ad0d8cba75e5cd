package service

import (
	"cbt_portal_backend/internal/config"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockAI(t *testing.T, handler http.HandlerFunc) *AIService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAIService(config.AIConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	})
}

func TestChatReturnsContent(t *testing.T) {
	ai := newMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	})

	out, err := ai.Chat(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestChatHonorsContextCancellation(t *testing.T) {
	ai := newMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ai.Chat(ctx, "hi", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChatPropagatesAPIError(t *testing.T) {
	ai := newMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	_, err := ai.Chat(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatJSONStripsMarkdownFence(t *testing.T) {
	ai := newMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"` + "```json\\n{\\\"isCorrect\\\": true, \\\"feedback\\\": \\\"ok\\\"}\\n```" + `"}}]}`))
	})

	var verdict judgeVerdict
	require.NoError(t, ai.ChatJSON(context.Background(), "judge this", "", &verdict))
	assert.True(t, verdict.IsCorrect)
	assert.Equal(t, "ok", verdict.Feedback)
}

func TestStripJSONFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1,2]\n```", `[1,2]`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StripJSONFence(c.in))
	}
}

func TestChatStreamEmitsDeltas(t *testing.T) {
	ai := newMockAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"foo\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"bar\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	})

	stream, errChan := ai.ChatStream(context.Background(), "question", "", nil)

	var chunks []string
	for c := range stream {
		chunks = append(chunks, c)
	}
	assert.NoError(t, <-errChan)
	assert.Equal(t, []string{"foo", "bar"}, chunks)
}
