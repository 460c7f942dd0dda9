package notifier

import (
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

// SendText logs the message.
func (s *LogSender) SendText(subject, body string) error {
	s.log.Info("Status notification", zap.String("subject", subject), zap.String("body", body))

	return nil
}
