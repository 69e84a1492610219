package convert

import "fmt"

// UnsupportedPaletteSizeError rejects color counts the hardware family
// cannot show.
type UnsupportedPaletteSizeError struct {
	Colors int
}

func (e *UnsupportedPaletteSizeError) Error() string {
	return fmt.Sprintf("unsupported palette size %d", e.Colors)
}

// UnknownPaletteModeError rejects palette mode names.
type UnknownPaletteModeError struct {
	Mode string
}

func (e *UnknownPaletteModeError) Error() string {
	return fmt.Sprintf("unknown palette mode %q", e.Mode)
}

// UnknownDitherError rejects dithering method names.
type UnknownDitherError struct {
	Method string
}

func (e *UnknownDitherError) Error() string {
	return fmt.Sprintf("unknown dither method %q", e.Method)
}

// UnknownResizeModeError rejects resize mode names.
type UnknownResizeModeError struct {
	Mode string
}

func (e *UnknownResizeModeError) Error() string {
	return fmt.Sprintf("unknown resize mode %q", e.Mode)
}
