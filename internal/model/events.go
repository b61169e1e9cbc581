package model

import (
	"context"
	"time"
)

// Publisher delivers out-of-band notifications.
type Publisher interface {
	Publish(ctx context.Context, email, otp string, ttl time.Duration) error
}
