package proto

import "fmt"

// StatusOK is the success status word.
const StatusOK uint16 = 0x9000

// StatusError is a non-success status word answered by the card.
type StatusError struct {
	SW1 byte
	SW2 byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("card status %02x%02x", e.SW1, e.SW2)
}

// Status packs both status bytes into one word.
func (e *StatusError) Status() uint16 {
	return uint16(e.SW1)<<8 | uint16(e.SW2)
}

// TransportError is a link-level failure: the reader vanished, the RF
// field dropped, the card left. Op names the failing exchange.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
