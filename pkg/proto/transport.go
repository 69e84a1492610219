package proto

import "context"

// Transport moves commands between the host and one card.
//
// Exchange returns the response body with the trailing status word
// stripped. A non-success status surfaces as *StatusError only when the
// command asked for CheckStatus; link failures are always *TransportError.
type Transport interface {
	// Connect acquires the underlying resource and blocks until a card
	// is present or ctx ends.
	Connect(ctx context.Context) error
	Exchange(cmd Command) ([]byte, error)
	Close() error
}
