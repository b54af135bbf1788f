// Package dialogue implements the conversational surface of the storefront:
// free-text dispatch over session steps and action-token dispatch from
// keyboard presses. The engine owns no business state; every terminal step
// hands off to the commerce service and every reply goes through the
// Messenger port.
package dialogue

import (
	"context"
	"log/slog"
	"time"

	"github.com/telemart/telemart/internal/logging"
	"github.com/telemart/telemart/pkg/commerce"
	"github.com/telemart/telemart/pkg/domain"
	"github.com/telemart/telemart/pkg/ports"
	"github.com/telemart/telemart/pkg/session"
)

// Engine drives the dialogue. All entry points serialize per counterparty
// through the session manager's lock, so a user's session is never handled
// concurrently with itself.
type Engine struct {
	sessions  *session.Manager
	commerce  *commerce.Service
	messenger ports.Messenger

	broadcastDelay   time.Duration
	broadcastWorkers int

	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBroadcast tunes the announcement fan-out: fixed delay between sends and
// the bounded worker count.
func WithBroadcast(delay time.Duration, workers int) Option {
	return func(e *Engine) {
		if delay > 0 {
			e.broadcastDelay = delay
		}
		if workers > 0 {
			e.broadcastWorkers = workers
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a dialogue engine over the session manager, commerce
// service and outbound messenger.
func NewEngine(sessions *session.Manager, svc *commerce.Service, messenger ports.Messenger, opts ...Option) *Engine {
	e := &Engine{
		sessions:         sessions,
		commerce:         svc,
		messenger:        messenger,
		broadcastDelay:   100 * time.Millisecond,
		broadcastWorkers: 4,
		logger:           logging.NewNop(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Notifier adapts the engine's messenger into the commerce notification
// sink: plain text, no keyboard, failures logged and swallowed.
func (e *Engine) Notifier() commerce.NotifyFunc {
	return func(ctx context.Context, to int64, text string) {
		if _, err := e.messenger.SendMessage(ctx, to, text, nil); err != nil {
			e.logger.Warn("notification failed", "to", to, "err", err)
		}
	}
}

// HandleText processes a free-text message from a counterparty. The session's
// current step decides what the text means; with no step in progress the text
// renders the main menu.
func (e *Engine) HandleText(ctx context.Context, userID int64, name, handle, text string) error {
	user, err := e.commerce.Identify(ctx, userID, name, handle)
	if err != nil {
		return err
	}

	return e.sessions.WithSession(ctx, userID, func(sess *domain.Session) error {
		return e.dispatchText(ctx, user, sess, text)
	})
}

// HandleAction processes a pressed keyboard button identified by its stable
// action token.
func (e *Engine) HandleAction(ctx context.Context, userID int64, name, handle, token string) error {
	user, err := e.commerce.Identify(ctx, userID, name, handle)
	if err != nil {
		return err
	}

	return e.sessions.WithSession(ctx, userID, func(sess *domain.Session) error {
		return e.dispatchAction(ctx, user, sess, token)
	})
}

// prompt retracts the engine's previous message and sends the next one,
// recording its id in the session for the following retraction.
func (e *Engine) prompt(ctx context.Context, sess *domain.Session, text string, kb ports.Keyboard) {
	if sess.LastPromptID != "" {
		if err := e.messenger.DeleteMessage(ctx, sess.UserID, sess.LastPromptID); err != nil {
			e.logger.Debug("prompt retraction failed", "user_id", sess.UserID, "err", err)
		}
		sess.LastPromptID = ""
	}
	id, err := e.messenger.SendMessage(ctx, sess.UserID, text, kb)
	if err != nil {
		e.logger.Warn("prompt send failed", "user_id", sess.UserID, "err", err)
		return
	}
	sess.LastPromptID = id
}

// send delivers a message without touching the prompt chain.
func (e *Engine) send(ctx context.Context, to int64, text string, kb ports.Keyboard) {
	if _, err := e.messenger.SendMessage(ctx, to, text, kb); err != nil {
		e.logger.Warn("send failed", "to", to, "err", err)
	}
}
