package service

import (
	"context"

	"go.uber.org/zap"
)

// Sender delivers one-time codes to an email address or phone number.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// LogSender writes codes to the log. Intended for development setups without an SMS/email gateway.
type LogSender struct{ Log *zap.Logger }

func (s LogSender) Send(_ context.Context, to, message string) error {
	s.Log.Info("one-time code", zap.String("to", to), zap.String("message", message))
	return nil
}
