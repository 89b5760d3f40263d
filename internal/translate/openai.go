package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

const translatePrompt = "You translate short farming questions for a chat interface. " +
	"Translate the user's text from %s to %s. Reply with the translation only, " +
	"without quotes or commentary."

// OpenAIClient implements Translator with a chat completion model.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

// NewOpenAIClient creates a translator backed by an OpenAI-compatible API.
// baseURL may be empty for the public endpoint.
func NewOpenAIClient(apiKey, baseURL, model string, logger *logrus.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}
}

// Translate asks the model for a translation of text.
func (c *OpenAIClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(translatePrompt, sourceLang, targetLang),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		Temperature: 0,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"model":       c.model,
			"target_lang": targetLang,
		}).Error("OpenAI translation request failed")
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: no choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
