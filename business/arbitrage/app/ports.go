// Package app contains the analysis engine and its port definitions.
package app

import (
	"context"

	"github.com/shopspring/decimal"
)

// ExecutionPredictor estimates the time to fill a trade of the given
// notional on an exchange. The estimate is opaque to the engine; only
// the threshold comparison matters.
type ExecutionPredictor interface {
	Predict(ctx context.Context, exchange string, notional decimal.Decimal) (float64, error)
}

// AlertSink receives formatted alert messages for delivery.
type AlertSink interface {
	// Enqueue accepts a message for asynchronous delivery. It fails
	// only when the sink has been stopped.
	Enqueue(message string) error
}
