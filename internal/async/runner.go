// Package async runs blocking work off the Bubble Tea update goroutine and
// hands the outcome back to it as a message.
//
// Bubble Tea executes every tea.Cmd on its own goroutine and feeds the
// returned message to Model.Update, one message at a time, on the update
// goroutine. A Runner builds on that: work submitted through it never blocks
// the interactive loop, and its Result is always observed from Update, never
// concurrently with other messages.
package async

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smileynet/multiverse/internal/logging"
)

// Token identifies one submission. Tokens are opaque and unique per process.
type Token string

var fallbackSeq atomic.Uint64

// NewToken returns a fresh token.
func NewToken() Token {
	id, err := uuid.NewV7()
	if err != nil {
		return Token("seq-" + strconv.FormatUint(fallbackSeq.Add(1), 10))
	}
	return Token(id.String())
}

// Work is a blocking operation executed off the update goroutine.
type Work[T any] func(ctx context.Context) (T, error)

// Result is the message delivered to Update when a submission finishes.
type Result[T any] struct {
	Token Token
	Value T
	Err   error
}

// Runner submits work of one result type.
type Runner[T any] struct {
	ctx      context.Context
	log      logrus.FieldLogger
	inflight atomic.Int64
}

// Option configures a Runner.
type Option func(*runnerOptions)

type runnerOptions struct {
	ctx context.Context
	log logrus.FieldLogger
}

// WithContext sets the context passed to every work item. Cancel it at
// program shutdown; the runner never cancels it on its own.
func WithContext(ctx context.Context) Option {
	return func(o *runnerOptions) {
		o.ctx = ctx
	}
}

// WithLogger sets the logger used for submission diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *runnerOptions) {
		o.log = l
	}
}

// NewRunner creates a Runner.
func NewRunner[T any](opts ...Option) *Runner[T] {
	o := runnerOptions{ctx: context.Background(), log: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner[T]{ctx: o.ctx, log: o.log}
}

// Submit wraps work in a command and returns the token its Result will carry.
// Nothing runs until the command is executed; returning the command from
// Update hands it to Bubble Tea, which runs it once. There is no retry and no
// timeout beyond what work itself imposes.
func (r *Runner[T]) Submit(work Work[T]) (Token, tea.Cmd) {
	token := NewToken()
	cmd := func() tea.Msg {
		r.inflight.Add(1)
		defer r.inflight.Add(-1)

		value, err := r.run(work)
		if err != nil {
			r.log.WithError(err).WithField("token", token).Debug("async work failed")
		}
		return Result[T]{Token: token, Value: value, Err: err}
	}
	return token, cmd
}

// run executes work, converting a panic into an error result.
func (r *Runner[T]) run(work Work[T]) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			value = zero
			err = fmt.Errorf("async: work panicked: %v", p)
		}
	}()
	return work(r.ctx)
}

// InFlight returns the number of work items currently executing.
func (r *Runner[T]) InFlight() int {
	return int(r.inflight.Load())
}
