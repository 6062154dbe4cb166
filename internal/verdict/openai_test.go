package verdict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degenjudge/internal/domain"
)

func completionServer(t *testing.T, handler func(req openai.ChatCompletionRequest) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
}

func TestOpenAIGenerator_Success(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := completionServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		got = req
		return http.StatusOK, chatResponse("  **Certified Degen**  ")
	})

	gen := NewOpenAIGenerator("sk-test", WithBaseURL(srv.URL+"/v1"))
	v := gen.Generate(context.Background(), []domain.TokenTrade{
		trade("Bonk", "BONK", "1", "3", "2 days"),
	})

	assert.True(t, v.Success)
	assert.Equal(t, "**Certified Degen**", v.Analysis)

	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "You are DegenJudge")
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "Best Trade: Bonk (BONK)")
}

func TestOpenAIGenerator_CustomModel(t *testing.T) {
	var model string
	srv := completionServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		model = req.Model
		return http.StatusOK, chatResponse("ok")
	})

	gen := NewOpenAIGenerator("sk-test", WithBaseURL(srv.URL+"/v1"), WithModel("gpt-4o-mini"))
	v := gen.Generate(context.Background(), nil)

	assert.True(t, v.Success)
	assert.Equal(t, "gpt-4o-mini", model)
}

func TestOpenAIGenerator_APIError(t *testing.T) {
	srv := completionServer(t, func(openai.ChatCompletionRequest) (int, any) {
		return http.StatusBadRequest, map[string]any{
			"error": map[string]any{"message": "bad request", "type": "invalid_request_error"},
		}
	})

	log, hook := test.NewNullLogger()
	gen := NewOpenAIGenerator("sk-test", WithBaseURL(srv.URL+"/v1"), WithLogger(log))
	v := gen.Generate(context.Background(), nil)

	assert.Equal(t, Unavailable(), v)
	assert.Equal(t, UnavailableMessage, v.Analysis)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	srv := completionServer(t, func(openai.ChatCompletionRequest) (int, any) {
		resp := chatResponse("")
		resp["choices"] = []map[string]any{}
		return http.StatusOK, resp
	})

	gen := NewOpenAIGenerator("sk-test", WithBaseURL(srv.URL+"/v1"))
	v := gen.Generate(context.Background(), nil)

	assert.False(t, v.Success)
	assert.Equal(t, UnavailableMessage, v.Analysis)
}

func TestOpenAIGenerator_EmptyContent(t *testing.T) {
	srv := completionServer(t, func(openai.ChatCompletionRequest) (int, any) {
		return http.StatusOK, chatResponse("   ")
	})

	gen := NewOpenAIGenerator("sk-test", WithBaseURL(srv.URL+"/v1"))
	v := gen.Generate(context.Background(), nil)

	assert.False(t, v.Success)
}

func TestOpenAIGenerator_Cancelled(t *testing.T) {
	srv := completionServer(t, func(openai.ChatCompletionRequest) (int, any) {
		return http.StatusOK, chatResponse("late")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewOpenAIGenerator("sk-test", WithBaseURL(srv.URL+"/v1"))
	v := gen.Generate(ctx, nil)

	assert.False(t, v.Success)
}
