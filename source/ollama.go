package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const defaultOllamaHost = "http://127.0.0.1:11434"

// Ollama generates text with the /api/generate endpoint of an Ollama server. Prompts are sent in raw
// mode so the model continues the text instead of answering it.
type Ollama struct {
	base   *url.URL
	model  string
	client *http.Client
}

func NewOllama(baseURL, model string, client *http.Client) (*Ollama, error) {
	if baseURL == "" {
		baseURL = defaultOllamaHost
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %v: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama base URL %v: a scheme and a host are required", baseURL)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: the ollama backend needs a model", ErrNoBackend)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Ollama{
		base:   base,
		model:  model,
		client: client,
	}, nil
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Raw     bool          `json:"raw"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// StatusError is an error response of an Ollama server.
type StatusError struct {
	StatusCode   int
	ErrorMessage string
}

func (e StatusError) Error() string {
	if e.ErrorMessage != "" {
		return fmt.Sprintf("ollama: %v (status %v)", e.ErrorMessage, e.StatusCode)
	}
	return fmt.Sprintf("ollama: %v", http.StatusText(e.StatusCode))
}

func (o *Ollama) Request(ctx context.Context, prompt string, params Params) (Stream, error) {
	body, err := json.Marshal(&ollamaGenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Raw:    true,
		Stream: params.Stream,
		Options: ollamaOptions{
			NumPredict:  params.MaxTokens,
			Temperature: params.Temperature,
		},
	})
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base.JoinPath("/api/generate").String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/x-ndjson")

	response, err := o.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("ollama generate request failed: %w", err)
	}
	if response.StatusCode >= http.StatusBadRequest {
		defer response.Body.Close()
		statusErr := StatusError{StatusCode: response.StatusCode}
		var errResp ollamaGenerateResponse
		data, _ := io.ReadAll(response.Body)
		if json.Unmarshal(data, &errResp) == nil {
			statusErr.ErrorMessage = errResp.Error
		}
		return nil, statusErr
	}

	scanner := bufio.NewScanner(response.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ollamaStream{
		body:    response.Body,
		scanner: scanner,
	}, nil
}

// ollamaStream reads one JSON object per line.
type ollamaStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *ollamaStream) Next(ctx context.Context) (string, error) {
	for !s.done {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return "", fmt.Errorf("ollama stream failed: %w", err)
			}
			break
		}
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var resp ollamaGenerateResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return "", fmt.Errorf("ollama stream failed: %w", err)
		}
		if resp.Error != "" {
			s.done = true
			return "", StatusError{StatusCode: http.StatusOK, ErrorMessage: resp.Error}
		}
		if resp.Done {
			s.done = true
		}
		if resp.Response != "" {
			return resp.Response, nil
		}
	}
	return "", nil
}

func (s *ollamaStream) Close() error {
	s.done = true
	return s.body.Close()
}
