// Package app contains the alert dispatcher and its port definitions.
package app

import "context"

// Sender delivers a single alert message to the external channel.
type Sender interface {
	Send(ctx context.Context, message string) error
	// Close releases the delivery connection. Called once, after the
	// dispatcher's workers have acknowledged cancellation.
	Close() error
}
