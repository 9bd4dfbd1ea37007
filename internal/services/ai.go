package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/taxoffice-api/internal/constants"
	"github.com/yukikurage/taxoffice-api/internal/models"
)

type AIService struct {
	client *openai.Client
	model  string
}

// SuggestedSubtask is one step proposed for a task
type SuggestedSubtask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewAIService returns nil when apiKey is empty so callers can treat the
// feature as disabled.
func NewAIService(apiKey string) *AIService {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

// SuggestSubtasks asks the model to break a task into concrete steps
func (s *AIService) SuggestSubtasks(ctx context.Context, task *models.Task) ([]SuggestedSubtask, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	dueDate := "none"
	if task.DueDate != nil {
		dueDate = task.DueDate.Format(time.DateOnly)
	}

	prompt := fmt.Sprintf(`You assist staff at a tax and accounting firm. Break the task below into at most %d concrete subtasks.

Task category: %s
Priority: %s
Due date: %s
Title: %s
Description:
%s

Return a JSON array in this form:
[
  {
    "title": "short imperative title",
    "description": "what has to be done"
  }
]

Rules:
- Return [] when the task cannot be broken down
- Return only JSON, no explanation`, constants.MaxAISuggestedSubtasks, task.TaskCategory, task.Priority, dueDate, task.Title, task.Description)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")

	var subtasks []SuggestedSubtask
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &subtasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return subtasks, nil
}
