package logging

import (
	"log/slog"

	"github.com/ArionMiles/momoledger/pkg/api"
)

// RejectionLogger reports parser outcomes to a slog.Logger.
// It satisfies parser.Observer.
type RejectionLogger struct {
	logger *slog.Logger
}

// NewRejectionLogger creates a RejectionLogger. A nil logger uses slog.Default().
func NewRejectionLogger(logger *slog.Logger) *RejectionLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &RejectionLogger{logger: logger}
}

func (l *RejectionLogger) Accepted(record *api.TransactionRecord) {
	l.logger.Debug("parsed transaction",
		"message_id", record.MessageID,
		"type", record.Type,
		"status", record.Status,
	)
}

func (l *RejectionLogger) Rejected(rejection api.Rejection) {
	msg := "skipping message"
	if !rejection.Fatal {
		msg = "field left empty"
	}
	l.logger.Warn(msg,
		"message_id", rejection.MessageID,
		"reason", rejection.Reason,
		"detail", rejection.Detail,
		"snippet", rejection.Snippet,
	)
}
