package classifier

import (
	"context"
	"strings"
	"time"

	"complaint_server/core/domain"
	"complaint_server/pkg/apperr"
	"complaint_server/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

const categoryDependency = "openai_api"

const categoryPrompt = `Определи категорию жалобы клиента. Ответь одним словом: "техническая", "оплата" или "другое".

Жалоба: `

// CategoryClient classifies complaint topics through an LLM chat
// completion. Every failure mode, including an answer outside the known
// labels, maps to domain.CategoryOther.
type CategoryClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	apiKey      string
}

// CategoryConfig holds category client configuration.
type CategoryConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string
}

const defaultCategoryModel = "gpt-3.5-turbo"

// NewCategoryClient creates a category client.
func NewCategoryClient(cfg *CategoryConfig) *CategoryClient {
	model := cfg.Model
	if model == "" {
		model = defaultCategoryModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 50
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &CategoryClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
		apiKey:      cfg.APIKey,
	}
}

// Classify resolves the topic category of the text, falling back to
// domain.CategoryOther on any failure.
func (c *CategoryClient) Classify(ctx context.Context, text string) domain.Category {
	text = strings.TrimSpace(text)
	if text == "" {
		logger.WithDependency(categoryDependency).Warn("empty text, skipping category call")
		return domain.CategoryOther
	}
	if c.apiKey == "" {
		logger.WithDependency(categoryDependency).Warn("OpenAI API key not configured, using fallback")
		return domain.CategoryOther
	}

	answer, err := c.complete(ctx, text)
	if err != nil {
		logDependencyFailure(categoryDependency, apperr.DependencyDegraded(categoryDependency, err))
		return domain.CategoryOther
	}

	return normalizeCategory(answer)
}

func (c *CategoryClient) complete(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: categoryPrompt + text,
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}

// normalizeCategory maps a free-form model answer to one of the known
// labels. The model is asked for a one-word answer but occasionally
// replies with a sentence, so substring matching keeps the mapping
// forgiving.
func normalizeCategory(answer string) domain.Category {
	answer = strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(answer), `."«»`)))

	if domain.ValidCategory(answer) {
		return domain.Category(answer)
	}

	switch {
	case strings.Contains(answer, "техническ"), strings.Contains(answer, "sms"):
		return domain.CategoryTechnical
	case strings.Contains(answer, "оплат"), strings.Contains(answer, "billing"), strings.Contains(answer, "плат"):
		return domain.CategoryBilling
	default:
		return domain.CategoryOther
	}
}

// Ping performs a probe completion against the live dependency.
func (c *CategoryClient) Ping(ctx context.Context) error {
	if c.apiKey == "" {
		return apperr.ConfigError("OpenAI API key not configured")
	}
	_, err := c.complete(ctx, "health check probe")
	return err
}
