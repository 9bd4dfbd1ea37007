package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/testutil"
)

// newFakeAI serves content as the single chat completion choice.
func newFakeAI(t *testing.T, status int, content string) (*AIService, *[]openai.ChatCompletionRequest) {
	t.Helper()

	var requests []openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return &AIService{client: openai.NewClientWithConfig(cfg), model: openai.GPT4o}, &requests
}

func TestNewAIService_DisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewAIService(""))
	assert.Nil(t, NewAIService("   "))
	assert.NotNil(t, NewAIService("sk-test"))
}

func TestAIService_SuggestSubtasksParsesFencedJSON(t *testing.T) {
	ai, requests := newFakeAI(t, http.StatusOK, "```json\n[{\"title\":\"Collect invoices\",\"description\":\"From the client portal\"},{\"title\":\"Reconcile\",\"description\":\"\"}]\n```")
	due := fixedNow
	task := &models.Task{
		Title:        "Monthly VAT",
		Description:  "File VAT for May",
		Priority:     models.TaskPriorityHigh,
		TaskCategory: models.TaskCategoryHarian,
		DueDate:      &due,
	}

	subtasks, err := ai.SuggestSubtasks(context.Background(), task)
	require.NoError(t, err)
	require.Len(t, subtasks, 2)
	assert.Equal(t, "Collect invoices", subtasks[0].Title)
	assert.Equal(t, "From the client portal", subtasks[0].Description)

	require.Len(t, *requests, 1)
	prompt := (*requests)[0].Messages[0].Content
	assert.True(t, strings.Contains(prompt, "Monthly VAT"))
	assert.True(t, strings.Contains(prompt, "2024-06-15"))
	assert.True(t, strings.Contains(prompt, "HARIAN"))
}

func TestAIService_SuggestSubtasksErrors(t *testing.T) {
	ai, _ := newFakeAI(t, http.StatusOK, "I cannot help with that")
	_, err := ai.SuggestSubtasks(context.Background(), &models.Task{Title: "x"})
	assert.ErrorContains(t, err, "failed to parse AI response")

	ai, _ = newFakeAI(t, http.StatusTooManyRequests, "")
	_, err = ai.SuggestSubtasks(context.Background(), &models.Task{Title: "x"})
	assert.ErrorContains(t, err, "OpenAI API error")
}

func TestTaskService_SuggestSubtasksFiltersAndLimits(t *testing.T) {
	e := newTestEnv(t)
	member := testutil.CreateUser(t, e.db, "member@example.com", models.RoleTeamMember)
	other := testutil.CreateUser(t, e.db, "other@example.com", models.RoleTeamMember)
	task := testutil.CreateTask(t, e.db, "Year end close", member.ID)
	foreign := testutil.CreateTask(t, e.db, "Not yours", other.ID)

	var items []string
	items = append(items, `{"title":"  ","description":"blank"}`)
	for i := 0; i < 12; i++ {
		items = append(items, `{"title":"Step","description":"d"}`)
	}
	e.tasks.aiService, _ = newFakeAI(t, http.StatusOK, "["+strings.Join(items, ",")+"]")

	suggestions, err := e.tasks.SuggestSubtasks(e.ctx, testutil.IdentityOf(member), task.ID)
	require.NoError(t, err)
	assert.Len(t, suggestions, 10)
	for _, s := range suggestions {
		assert.Equal(t, "Step", s.Title)
	}
	assert.Zero(t, testutil.CountRows(t, e.db, &models.Subtask{}, ""))

	_, err = e.tasks.SuggestSubtasks(e.ctx, testutil.IdentityOf(member), foreign.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	e.tasks.aiService, _ = newFakeAI(t, http.StatusOK, "[]")
	_, err = e.tasks.SuggestSubtasks(e.ctx, testutil.IdentityOf(member), task.ID)
	assert.ErrorIs(t, err, ErrAINoSubtasksSuggested)

	e.tasks.aiService, _ = newFakeAI(t, http.StatusInternalServerError, "")
	_, err = e.tasks.SuggestSubtasks(e.ctx, testutil.IdentityOf(member), task.ID)
	assert.ErrorIs(t, err, apperrors.ErrDependencyFailure)
}
