package ports

import "context"

// Button is one pressable entry of a reply keyboard. Action is a stable token
// dispatched back to the engine when pressed.
type Button struct {
	Label  string
	Action string
}

// Keyboard is rendered as rows of buttons under a message.
type Keyboard [][]Button

// Row builds a single keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Messenger is the outbound side of the chat transport. Implementations may
// suspend (network I/O); callers must not hold entity locks across calls.
type Messenger interface {
	// SendMessage delivers text with an optional keyboard and returns the
	// transport's message id, used later for retraction.
	SendMessage(ctx context.Context, to int64, text string, kb Keyboard) (string, error)

	// DeleteMessage retracts a previously sent message. Implementations
	// should tolerate already-deleted messages.
	DeleteMessage(ctx context.Context, to int64, messageID string) error
}
