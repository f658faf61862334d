package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tourism-chat/internal/domain"
)

type Filter interface {
	IsAllowed(text string) bool
}

type Generator interface {
	Generate(ctx context.Context, systemInstruction, userText string) (string, error)
}

// Display is the chat surface. Implementations must accept calls from
// several goroutines; Update replaces the bubble with the same ID.
type Display interface {
	Append(b domain.Bubble)
	Update(b domain.Bubble)
	ScrollToBottom()
}

// Dispatcher turns user messages into settled turns: a local refusal for
// out-of-scope text, otherwise one call to the Generator.
type Dispatcher struct {
	filter  Filter
	gen     Generator
	display Display
	logger  *slog.Logger

	inflight sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithDisplay(d Display) DispatcherOption {
	return func(s *Dispatcher) {
		if d != nil {
			s.display = d
		}
	}
}

func WithLogger(l *slog.Logger) DispatcherOption {
	return func(s *Dispatcher) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewDispatcher(f Filter, g Generator, opts ...DispatcherOption) (*Dispatcher, error) {
	if f == nil {
		return nil, errors.New("usecase: filter must not be nil")
	}
	if g == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	d := &Dispatcher{
		filter:  f,
		gen:     g,
		display: nopDisplay{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Submit renders the message and its pending reply, then settles the reply in
// the background. Blank input is ignored. The remote call is not cancelled when
// ctx is.
func (d *Dispatcher) Submit(ctx context.Context, text string) {
	input := strings.TrimSpace(text)
	if input == "" {
		return
	}
	turn := domain.NewTurn(newUUID(), input)

	d.display.Append(domain.Bubble{ID: turn.ID + "-user", Author: domain.AuthorUser, Text: input})
	reply := domain.Bubble{ID: turn.ID + "-bot", Author: domain.AuthorBot, Thinking: true}
	d.display.Append(reply)
	d.display.ScrollToBottom()

	if d.refuseOutOfScope(&turn) {
		d.settle(reply, turn)
		return
	}

	ctx = context.WithoutCancel(ctx)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		_ = d.complete(ctx, &turn)
		d.settle(reply, turn)
	}()
}

// Ask is the synchronous form of Submit. It returns the settled turn; failed
// turns also return a *Error describing the upstream failure.
func (d *Dispatcher) Ask(ctx context.Context, text string) (domain.Turn, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return domain.Turn{}, newError(ErrorInvalidInput, "empty_input", nil)
	}
	turn := domain.NewTurn(newUUID(), input)
	if d.refuseOutOfScope(&turn) {
		return turn, nil
	}
	err := d.complete(ctx, &turn)
	return turn, err
}

// Wait blocks until every turn started by Submit has settled.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) refuseOutOfScope(turn *domain.Turn) bool {
	turn.Allowed = d.filter.IsAllowed(turn.Input)
	if turn.Allowed {
		return false
	}
	_ = turn.Refuse(RefusalMessage)
	d.logger.Debug("turn refused", "turn_id", turn.ID)
	return true
}

func (d *Dispatcher) complete(ctx context.Context, turn *domain.Turn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			_ = turn.Fail(genericErrorText)
			err = newError(ErrorInternal, "generator_panic", fmt.Errorf("%v", r))
			d.logger.Error("turn failed", "turn_id", turn.ID, "err", err)
		}
	}()

	raw, genErr := d.gen.Generate(ctx, SystemRules(), turn.Input)
	if genErr != nil {
		_ = turn.Fail(failureText(genErr))
		d.logger.Warn("turn failed", "turn_id", turn.ID, "err", genErr)
		if status, ok := upstreamStatusCode(genErr); ok && status == http.StatusTooManyRequests {
			return newError(ErrorRateLimited, "generate_rate_limited", genErr)
		}
		return newError(ErrorUpstream, "generate_error", genErr)
	}
	_ = turn.Resolve(normalizeReply(raw))
	return nil
}

func (d *Dispatcher) settle(reply domain.Bubble, turn domain.Turn) {
	d.display.Update(reply.Settled(turn))
	d.display.ScrollToBottom()
}

type nopDisplay struct{}

func (nopDisplay) Append(domain.Bubble) {}
func (nopDisplay) Update(domain.Bubble) {}
func (nopDisplay) ScrollToBottom()      {}

var newUUID = func() string {
	return uuid.NewString()
}
