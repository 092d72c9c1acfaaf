package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/sbeier/audiosessions/internal/apperrors"
)

// TranscriptionResult holds the outcome of one speech-to-text call.
type TranscriptionResult struct {
	Text       string
	Language   string
	Duration   float64
	TokensUsed int
}

// CompletionRequest describes a single chat completion call. Verbosity
// is only honored on reasoning models.
type CompletionRequest struct {
	Model           string
	System          string
	User            string
	ReasoningEffort string
	Verbosity       string
	Temperature     float64
	UseReasoning    bool
}

// CompletionResult holds the text and token usage of a completion call.
type CompletionResult struct {
	Text       string
	TokensUsed int
}

// RemoteClient abstracts the remote speech and language API so the
// orchestrator can be tested without network access.
type RemoteClient interface {
	Transcribe(ctx context.Context, path, model, language, prompt string) (*TranscriptionResult, error)
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// openaiClient implements RemoteClient against the OpenAI API.
type openaiClient struct {
	cli *openai.Client
}

// NewOpenAIClient creates a RemoteClient backed by the OpenAI API.
func NewOpenAIClient(apiKey string) RemoteClient {
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{cli: &c}
}

// Transcribe sends an audio file to the transcription endpoint.
func (c *openaiClient) Transcribe(ctx context.Context, path, model, language, prompt string) (*TranscriptionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		Model:          model,
		File:           f,
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if language != "" {
		params.Language = openai.String(language)
	}
	if prompt != "" {
		params.Prompt = openai.String(prompt)
	}

	resp, err := c.cli.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	return &TranscriptionResult{
		Text:       resp.Text,
		Language:   language,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// Complete sends a chat completion request and returns the first choice.
func (c *openaiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    req.Model,
	}
	if req.UseReasoning && req.ReasoningEffort != "" {
		params.ReasoningEffort = openai.ReasoningEffort(req.ReasoningEffort)
	}
	if req.UseReasoning && req.Verbosity != "" {
		params.SetExtraFields(map[string]any{"verbosity": req.Verbosity})
	}
	if !req.UseReasoning && req.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}

	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &apperrors.RemoteAPIError{Message: "empty completion response"}
	}

	return &CompletionResult{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// classifyError maps transport failures onto the package error taxonomy.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			return fmt.Errorf("%w: %s", apperrors.ErrRateLimited, apiErr.Message)
		}
		return &apperrors.RemoteAPIError{Message: fmt.Sprintf("status %d: %s", apiErr.StatusCode, apiErr.Message)}
	}
	return &apperrors.UnexpectedError{Err: err}
}
