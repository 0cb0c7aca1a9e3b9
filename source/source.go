// Package source provides the generation sources a repair controller requests text from.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nihei9/tether/envconfig"
)

var ErrNoBackend = errors.New("no generation backend is configured")

// Params are the generation parameters of one request.
type Params struct {
	MaxTokens   int
	Temperature float64
	Stream      bool
}

// Source starts a generation continuing a prompt.
type Source interface {
	Request(ctx context.Context, prompt string, params Params) (Stream, error)
}

// Stream yields the fragments of one generation in order. Next returns an empty fragment and a nil
// error once the generation ends, and keeps doing so on later calls.
type Stream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// New returns the source cfg selects. When cfg.InjectErrors is set, the source is wrapped with
// InjectErrors.
func New(cfg *envconfig.Config, client *http.Client) (Source, error) {
	var src Source
	switch cfg.Backend {
	case envconfig.BackendOpenAI:
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: the openai backend needs an API key (TETHER_API_KEY or OPENAI_API_KEY)", ErrNoBackend)
		}
		src = NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, client)
	case envconfig.BackendOllama:
		o, err := NewOllama(cfg.BaseURL, cfg.Model, client)
		if err != nil {
			return nil, err
		}
		src = o
	case "":
		return nil, ErrNoBackend
	default:
		return nil, fmt.Errorf("%w: unknown backend %v", ErrNoBackend, cfg.Backend)
	}
	if cfg.InjectErrors {
		src = InjectErrors(src)
	}
	return src, nil
}

// fragments is a stream over fragments already in memory.
type fragments struct {
	texts []string
}

func (s *fragments) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for len(s.texts) > 0 {
		text := s.texts[0]
		s.texts = s.texts[1:]
		if text != "" {
			return text, nil
		}
	}
	return "", nil
}

func (s *fragments) Close() error {
	s.texts = nil
	return nil
}
