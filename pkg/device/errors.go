package device

import "fmt"

// MalformedDescriptorError means the descriptor lacks a usable panel
// geometry record. Raw keeps the full response for inspection.
type MalformedDescriptorError struct {
	Raw []byte
}

func (e *MalformedDescriptorError) Error() string {
	return fmt.Sprintf("descriptor missing panel geometry: %x", e.Raw)
}

// UnknownColorModeError means the panel record names a color mode this
// driver has no packing rules for. Tag keeps the raw record.
type UnknownColorModeError struct {
	Code byte
	Tag  []byte
}

func (e *UnknownColorModeError) Error() string {
	return fmt.Sprintf("unknown color mode %#02x in panel record %x", e.Code, e.Tag)
}
