package notify

import "log/slog"

// Notifier is the user-visible notification channel (the toast analog).
// The storefront always attempts a notification on every outcome, even
// unexpected ones; implementations must never fail the caller.
type Notifier interface {
	Notify(title, message string)
}

// LogNotifier writes notifications to the structured log. It is the
// default sink when no UI channel is attached.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(title, message string) {
	n.logger.Info("notification", "title", title, "message", message)
}
