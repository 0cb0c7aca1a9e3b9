package source

import (
	"context"
	"sync"
)

// Script is a source replaying fixed fragments, one list per request. Once the lists run out, every
// request yields an empty generation. It records the prompts it receives.
type Script struct {
	mu        sync.Mutex
	responses [][]string
	prompts   []string
	params    []Params
}

func NewScript(responses ...[]string) *Script {
	return &Script{
		responses: responses,
	}
}

func (s *Script) Request(ctx context.Context, prompt string, params Params) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	s.params = append(s.params, params)
	var texts []string
	if len(s.responses) > 0 {
		texts = append(texts, s.responses[0]...)
		s.responses = s.responses[1:]
	}
	return &scriptStream{texts: texts}, nil
}

// Prompts returns the prompts of the requests so far.
func (s *Script) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompts := make([]string, len(s.prompts))
	copy(prompts, s.prompts)
	return prompts
}

// Params returns the parameters of the requests so far.
func (s *Script) Params() []Params {
	s.mu.Lock()
	defer s.mu.Unlock()

	params := make([]Params, len(s.params))
	copy(params, s.params)
	return params
}

// scriptStream ends at the first empty fragment, unlike a stream over a completed response.
type scriptStream struct {
	texts []string
}

func (s *scriptStream) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.texts) == 0 {
		return "", nil
	}
	text := s.texts[0]
	if text == "" {
		s.texts = nil
		return "", nil
	}
	s.texts = s.texts[1:]
	return text, nil
}

func (s *scriptStream) Close() error {
	s.texts = nil
	return nil
}
