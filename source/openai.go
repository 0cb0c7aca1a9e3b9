package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAI generates text with the completions API of OpenAI or of a compatible server.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI returns a source using model. An empty baseURL means the public OpenAI endpoint, and a nil
// client means http.DefaultClient.
func NewOpenAI(apiKey, baseURL, model string, client *http.Client) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if client != nil {
		config.HTTPClient = client
	}
	if model == "" {
		model = openai.GPT3Dot5TurboInstruct
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (o *OpenAI) Request(ctx context.Context, prompt string, params Params) (Stream, error) {
	req := openai.CompletionRequest{
		Model:       o.model,
		Prompt:      prompt,
		MaxTokens:   params.MaxTokens,
		Temperature: float32(params.Temperature),
	}

	if !params.Stream {
		resp, err := o.client.CreateCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("openai completion request failed: %w", err)
		}
		var texts []string
		if len(resp.Choices) > 0 {
			texts = append(texts, resp.Choices[0].Text)
		}
		return &fragments{texts: texts}, nil
	}

	req.Stream = true
	stream, err := o.client.CreateCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai completion request failed: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.CompletionStream
	done   bool
}

func (s *openAIStream) Next(ctx context.Context) (string, error) {
	for !s.done {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			return "", fmt.Errorf("openai stream failed: %w", err)
		}
		// An empty text would read as the end of the stream.
		if len(resp.Choices) == 0 || resp.Choices[0].Text == "" {
			continue
		}
		return resp.Choices[0].Text, nil
	}
	return "", nil
}

func (s *openAIStream) Close() error {
	s.done = true
	s.stream.Close()
	return nil
}
