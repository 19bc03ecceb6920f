package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
)

const systemPrompt = "You classify and summarize gaming-industry research reports. Reply with a single JSON object and nothing else."

// Complete implements llm.ChatCompleter with one chat/completions call in JSON mode.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	log := common.LoggerFrom(ctx, c.logger)

	req := goopenai.ChatCompletionRequest{
		Model: c.cfg.Model,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// Reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens and reject temperature.
	if isReasoningModel(c.cfg.Model) {
		req.MaxCompletionTokens = c.cfg.MaxTokens
	} else {
		req.MaxTokens = c.cfg.MaxTokens
		req.Temperature = c.cfg.Temperature
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			log.Error("llm.openai.api_error",
				"status", apiErr.HTTPStatusCode, "type", apiErr.Type, "error", apiErr.Message,
				"elapsed_ms", time.Since(start).Milliseconds())
		} else {
			log.Error("llm.openai.http_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		log.Error("llm.openai.no_choices", "elapsed_ms", time.Since(start).Milliseconds())
		return "", errors.New("no choices in openai response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Debug("llm.openai.ok",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
