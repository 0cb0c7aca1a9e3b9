// Package repair keeps a streamed generation inside a grammar. It validates fragments as they arrive
// and, when a fragment breaks the grammar, rolls the accepted text back and requests a new
// continuation.
package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nihei9/tether/driver/lexer"
	"github.com/nihei9/tether/driver/parser"
	"github.com/nihei9/tether/envconfig"
	"github.com/nihei9/tether/logutil"
	"github.com/nihei9/tether/source"
	spec "github.com/nihei9/tether/spec/grammar"
)

// ErrInconsistentState means text the controller had already accepted failed to parse again. It is
// never retried.
var ErrInconsistentState = errors.New("accepted text does not parse")

type Status int

const (
	StatusSucceeded Status = iota
	StatusCancelled
	StatusRoundLimit
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusCancelled:
		return "cancelled"
	case StatusRoundLimit:
		return "round limit"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is the outcome of one generation. Text is always a prefix the grammar can still complete,
// whatever the status.
type Result struct {
	Operation string
	Text      string
	Status    Status
	// Complete is true when Text is a whole sentence of the grammar.
	Complete  bool
	Rounds    int
	Requests  int
	Repairs   int
	Overflows int
}

type Config struct {
	Params source.Params

	// MaxPending is the number of unresolved characters one request may add before it is abandoned.
	MaxPending int

	// InitialTrim is the number of characters the first repair rolls back. Each repair rolls back one
	// more character than the previous one.
	InitialTrim int

	// MaxRounds bounds the rounds of one generation. Every round sends one request. Zero means no
	// bound.
	MaxRounds int

	// Timeout bounds one generation. Zero means no bound.
	Timeout time.Duration
}

// NewConfig takes the controller settings from cfg. Requests always stream.
func NewConfig(cfg *envconfig.Config) Config {
	return Config{
		Params: source.Params{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Stream:      true,
		},
		MaxPending:  cfg.MaxPending,
		InitialTrim: cfg.InitialTrim,
		MaxRounds:   cfg.MaxRounds,
		Timeout:     cfg.Timeout,
	}
}

type Option func(c *Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// Controller runs generations against one grammar and one source. It keeps no state between
// generations, but it runs one generation at a time.
type Controller struct {
	gram     *spec.CompiledGrammar
	pgram    parser.Grammar
	src      source.Source
	cfg      Config
	logger   *slog.Logger
	observer Observer
}

func NewController(gram *spec.CompiledGrammar, src source.Source, cfg Config, opts ...Option) (*Controller, error) {
	if gram == nil || gram.Lexical == nil || gram.Syntactic == nil {
		return nil, fmt.Errorf("a compiled grammar is required")
	}
	if src == nil {
		return nil, source.ErrNoBackend
	}
	if cfg.MaxPending <= 0 {
		return nil, fmt.Errorf("max pending must be greater than zero: %v", cfg.MaxPending)
	}
	if cfg.InitialTrim < 0 {
		return nil, fmt.Errorf("initial trim must not be negative: %v", cfg.InitialTrim)
	}
	if cfg.MaxRounds < 0 {
		return nil, fmt.Errorf("max rounds must not be negative: %v", cfg.MaxRounds)
	}

	c := &Controller{
		gram:     gram,
		pgram:    parser.NewGrammar(gram),
		src:      src,
		cfg:      cfg,
		logger:   logutil.Discard(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate requests text continuing prompt until the source ends a generation. Cancelling ctx, or
// running out of time or rounds, is not an error: the text accepted so far is returned with the
// matching status. An error is returned only together with StatusFailed, when the source fails or
// when accepted text turns out not to parse (ErrInconsistentState).
func (c *Controller) Generate(ctx context.Context, prompt string) (*Result, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	op := &operation{
		c:       c,
		prompt:  prompt,
		backoff: c.cfg.InitialTrim,
		result: &Result{
			Operation: uuid.NewString(),
		},
	}
	op.logger = c.logger.With("operation", op.result.Operation)
	ctx = source.WithOperation(ctx, op.result.Operation)

	op.logger.Info("generation started", "prompt", utf8.RuneCountInString(prompt), "backoff", op.backoff)
	res, err := op.run(ctx)
	if err != nil {
		op.logger.Error("generation failed", "error", err, "rounds", res.Rounds, "validated", utf8.RuneCountInString(res.Text))
		return res, err
	}
	op.logger.Info("generation finished", "status", res.Status, "complete", res.Complete, "rounds", res.Rounds, "repairs", res.Repairs, "overflows", res.Overflows, "validated", utf8.RuneCountInString(res.Text))
	return res, nil
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRepaired
	outcomeOverflowed
)

// operation is the state of one generation.
type operation struct {
	c      *Controller
	prompt string
	logger *slog.Logger
	result *Result

	// validated is text fed to the session without a violation.
	validated string
	// pending is received text not fed yet. It starts at a token boundary.
	pending string
	// carried is the number of characters at the head of pending that were already there when the
	// current request was sent. They do not count toward an overflow.
	carried int
	// backoff is the number of characters the next repair rolls back. It never decreases.
	backoff int
	session *parser.Session
}

func (op *operation) run(ctx context.Context) (*Result, error) {
	resync := true
	for {
		if op.c.cfg.MaxRounds > 0 && op.result.Rounds >= op.c.cfg.MaxRounds {
			op.logger.Warn("round limit reached", "rounds", op.result.Rounds)
			return op.finish(StatusRoundLimit), nil
		}
		op.result.Rounds++

		// The session survives an overflow, because an overflow discards nothing the session consumed.
		if resync {
			err := op.resync()
			if err != nil {
				return op.finish(StatusFailed), err
			}
		}

		out, err := op.request(ctx)
		if err != nil {
			if ctx.Err() != nil {
				op.logger.Warn("generation cancelled", "error", ctx.Err())
				return op.finish(StatusCancelled), nil
			}
			return op.finish(StatusFailed), fmt.Errorf("generation request failed: %w", err)
		}
		switch out {
		case outcomeDone:
			op.flush()
			return op.finish(StatusSucceeded), nil
		case outcomeRepaired:
			resync = true
		case outcomeOverflowed:
			resync = false
		}
	}
}

// resync rebuilds the session from the validated text. A token touching the end of the text moves to
// the pending text, since more text may still extend it.
func (op *operation) resync() error {
	sess, err := parser.NewSession(op.c.pgram)
	if err != nil {
		return err
	}
	l, err := lexer.NewLexer(op.c.gram.Lexical, strings.NewReader(op.validated))
	if err != nil {
		return err
	}
	for {
		tok, err := l.Next()
		if err != nil {
			var incompleteErr *lexer.IncompleteTokenError
			if !errors.As(err, &incompleteErr) {
				return fmt.Errorf("%w: %w", ErrInconsistentState, err)
			}
			op.pending = op.validated[incompleteErr.Offset:] + op.pending
			op.validated = op.validated[:incompleteErr.Offset]
			break
		}
		if tok.EOF {
			break
		}
		err = sess.Feed(tok)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInconsistentState, err)
		}
	}
	op.session = sess

	op.logger.Debug("resynchronized", "round", op.result.Rounds, "validated", utf8.RuneCountInString(op.validated), "pending", utf8.RuneCountInString(op.pending), "backoff", op.backoff)
	return nil
}

func (op *operation) request(ctx context.Context) (outcome, error) {
	op.result.Requests++
	op.carried = utf8.RuneCountInString(op.pending)
	op.logger.Debug("requesting a continuation", "round", op.result.Rounds, "validated", utf8.RuneCountInString(op.validated), "pending", utf8.RuneCountInString(op.pending), "backoff", op.backoff)

	stream, err := op.c.src.Request(ctx, op.prompt+op.validated+op.pending, op.c.cfg.Params)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	for {
		frag, err := stream.Next(ctx)
		if err != nil {
			return 0, err
		}
		if frag == "" {
			return outcomeDone, nil
		}
		logutil.Trace(ctx, op.logger, "fragment received", "round", op.result.Rounds, "text", frag)
		op.c.observer.Fragment(frag)

		op.pending += frag
		synErr, unexpected, err := op.consume()
		if err != nil {
			return 0, err
		}
		if synErr != nil {
			op.repair(synErr)
			return outcomeRepaired, nil
		}
		if utf8.RuneCountInString(op.pending)-op.carried >= op.c.cfg.MaxPending {
			op.overflow(unexpected)
			return outcomeOverflowed, nil
		}
	}
}

// consume lexes the pending text from its start and feeds every whole token to the session. Fed text
// moves to the validated text. It returns the violation that stopped feeding, if any, and otherwise
// the offset of an unexpected character within the remaining pending text, or -1.
func (op *operation) consume() (*parser.SyntaxError, int, error) {
	toks, lexErr := lexer.Tokenize(op.c.gram.Lexical, op.pending)
	var incompleteErr *lexer.IncompleteTokenError
	var unexpectedErr *lexer.UnexpectedCharacterError
	if lexErr != nil && !errors.As(lexErr, &incompleteErr) && !errors.As(lexErr, &unexpectedErr) {
		return nil, -1, lexErr
	}

	consumed := 0
	for _, tok := range toks {
		err := op.session.Feed(tok)
		if err != nil {
			var synErr *parser.SyntaxError
			if errors.As(err, &synErr) {
				return synErr, -1, nil
			}
			return nil, -1, err
		}
		consumed = tok.End
	}
	op.carried -= utf8.RuneCountInString(op.pending[:consumed])
	if op.carried < 0 {
		op.carried = 0
	}
	op.validated += op.pending[:consumed]
	op.pending = op.pending[consumed:]

	if unexpectedErr != nil {
		return nil, unexpectedErr.Offset - consumed, nil
	}
	return nil, -1, nil
}

// repair rolls the validated text back by the current backoff and discards the pending text.
func (op *operation) repair(synErr *parser.SyntaxError) {
	keep := utf8.RuneCountInString(op.validated) - op.backoff
	if keep < 0 {
		keep = 0
	}
	cut := runeOffset(op.validated, keep)
	removed := op.validated[cut:]
	op.validated = op.validated[:cut]
	op.pending = ""
	op.session = nil
	op.result.Repairs++

	op.logger.Info("repairing a violation", "round", op.result.Rounds, "error", synErr, "removed", utf8.RuneCountInString(removed), "validated", keep, "backoff", op.backoff)
	op.c.observer.Repair(RepairEvent{
		Err:       synErr,
		Removed:   removed,
		Validated: op.validated,
		Backoff:   op.backoff,
	})

	op.backoff++
}

// overflow gives up on a request that added MaxPending characters to the pending text without
// resolving them. Nothing is rolled back. The pending text stays as the context of the next request,
// except from an unexpected character on, which no continuation can fix.
func (op *operation) overflow(unexpected int) {
	op.result.Overflows++
	if unexpected >= 0 {
		op.pending = op.pending[:unexpected]
	}

	op.logger.Info("pending text overflowed", "round", op.result.Rounds, "validated", utf8.RuneCountInString(op.validated), "pending", utf8.RuneCountInString(op.pending), "backoff", op.backoff)
	op.c.observer.Overflow(OverflowEvent{
		Pending:    op.pending,
		MaxPending: op.c.cfg.MaxPending,
	})
}

// flush feeds the whole tokens left in the pending text once the source ended. A trailing incomplete
// token is dropped.
func (op *operation) flush() {
	if op.pending == "" {
		return
	}
	toks, _ := lexer.Tokenize(op.c.gram.Lexical, op.pending, lexer.Final())
	consumed := 0
	for _, tok := range toks {
		if op.session.Feed(tok) != nil {
			break
		}
		consumed = tok.End
	}
	op.validated += op.pending[:consumed]
	if dropped := op.pending[consumed:]; dropped != "" {
		op.logger.Debug("dropped unresolved text", "text", dropped)
	}
	op.pending = ""
}

func (op *operation) finish(status Status) *Result {
	op.result.Text = op.validated
	op.result.Status = status
	op.result.Complete = Accepts(op.c.gram, op.validated)
	return op.result
}

// Accepts reports whether text is a whole sentence of gram.
func Accepts(gram *spec.CompiledGrammar, text string) bool {
	toks, err := lexer.Tokenize(gram.Lexical, text, lexer.Final())
	if err != nil {
		return false
	}
	sess, err := parser.NewSession(parser.NewGrammar(gram))
	if err != nil {
		return false
	}
	for _, tok := range toks {
		if sess.Feed(tok) != nil {
			return false
		}
	}
	return sess.Accepts()
}

// runeOffset returns the byte offset of the n-th character of s.
func runeOffset(s string, n int) int {
	for offset := range s {
		if n == 0 {
			return offset
		}
		n--
	}
	return len(s)
}
