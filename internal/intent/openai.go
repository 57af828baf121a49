package intent

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
)

// OpenAIClient adapts the OpenAI chat completions API to CompletionClient.
type OpenAIClient struct {
	client openai.Client
	model  openai.ChatModel
}

func NewOpenAIClient(client openai.Client, model string) *OpenAIClient {
	m := openai.ChatModel(model)
	if model == "" {
		m = openai.ChatModelGPT5Nano
	}
	return &OpenAIClient{client: client, model: m}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model: c.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}
	return content, nil
}
