package notifier

import (
	"context"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"go.uber.org/zap"
)

// Log канал для локального запуска без Telegram: билет только пишется в лог
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(_ context.Context, phone, message string, attachment *model.Attachment) error {
	fields := []zap.Field{
		zap.String("phone", phone),
		zap.String("message", message),
	}
	if attachment != nil {
		fields = append(fields,
			zap.String("attachment", attachment.Filename),
			zap.Int("attachment_bytes", len(attachment.Data)),
		)
	}

	l.logger.Info("Ticket notification", fields...)
	return nil
}
