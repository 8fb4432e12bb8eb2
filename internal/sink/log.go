package sink

import (
	"context"

	"vehiclepush/internal/logger"
)

// LogNotifier writes system notifications to the log. Used when no
// notifier endpoint is configured.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.Named("log-notifier")}
}

func (l *LogNotifier) Notify(ctx context.Context, n SystemNotification) error {
	l.logger.InfowCtx(ctx, "System notification",
		"icon", n.IconKey,
		"title", n.Title,
		"body", n.Body,
		"kind", n.Kind.Name(),
		"launch_target", n.Launch.Target,
	)
	return nil
}
