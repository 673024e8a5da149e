// Package notify publishes device lifecycle events for downstream services.
package notify

import (
	"context"
	"time"
)

// DeviceRegistered is emitted once a registration has committed.
type DeviceRegistered struct {
	IdentityID   string    `json:"identity_id"`
	SerialNumber string    `json:"serial_number"`
	DeviceName   string    `json:"device_name,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Notifier delivers device events. Delivery is best effort; callers log
// failures and carry on.
type Notifier interface {
	DeviceRegistered(ctx context.Context, ev DeviceRegistered) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) DeviceRegistered(context.Context, DeviceRegistered) error { return nil }
func (Nop) Close() error                                             { return nil }
