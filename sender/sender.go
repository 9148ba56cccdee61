package sender

import (
	"context"
	"time"
)

// SendResult describes a dispatched message.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// SMSSender delivers short text messages to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, msg string) (SendResult, error)
}
