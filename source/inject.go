package source

import (
	"context"
	"strings"
	"sync"
)

type operationKey struct{}

// operation holds the state a source keeps for one generation.
type operation struct {
	id string

	mu       sync.Mutex
	injected bool
}

// WithOperation marks the requests made with ctx as parts of one generation. Per-generation behavior
// of a source, such as error injection, starts over for every operation.
func WithOperation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationKey{}, &operation{
		id: id,
	})
}

// OperationID returns the id set by WithOperation.
func OperationID(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(operationKey{}).(*operation)
	if !ok {
		return "", false
	}
	return op.id, true
}

// InjectErrors wraps src so that a comma is appended to the first fragment ending with a closing
// bracket. In a JSON object this makes a dangling comma, which exercises the repair of a generation.
// The comma is injected once per operation (see WithOperation). Requests made outside an operation
// share one latch over the lifetime of the returned source.
func InjectErrors(src Source) Source {
	return &injector{
		src:      src,
		lifetime: &operation{},
	}
}

type injector struct {
	src      Source
	lifetime *operation
}

func (i *injector) Request(ctx context.Context, prompt string, params Params) (Stream, error) {
	s, err := i.src.Request(ctx, prompt, params)
	if err != nil {
		return nil, err
	}
	op, ok := ctx.Value(operationKey{}).(*operation)
	if !ok {
		op = i.lifetime
	}
	return &injectingStream{
		Stream: s,
		op:     op,
	}, nil
}

type injectingStream struct {
	Stream
	op *operation
}

func (s *injectingStream) Next(ctx context.Context) (string, error) {
	frag, err := s.Stream.Next(ctx)
	if err != nil || frag == "" {
		return frag, err
	}

	s.op.mu.Lock()
	defer s.op.mu.Unlock()
	if s.op.injected || !strings.HasSuffix(frag, "]") {
		return frag, nil
	}
	s.op.injected = true
	return frag + ",", nil
}
