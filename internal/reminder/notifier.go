package reminder

import "context"

// Notification is the payload handed to the external notifier when a
// reminder fires. Formatting and delivery are the notifier's concern.
type Notification struct {
	ChatID        int64
	Category      Category
	DueDate       Date
	CorrelationID string
}

// Notifier delivers a fired reminder to its recipient.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}
