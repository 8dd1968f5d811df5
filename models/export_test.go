package models

import "context"

// SetPublisher replaces the ledger event publisher for the duration of a test.
func SetPublisher(fn func(ctx context.Context, topic string, obj any, attrs map[string]string) (string, error)) (restore func()) {
	prev := publishJSON
	publishJSON = fn
	return func() { publishJSON = prev }
}

var ProductLockOrder = productLockOrder
