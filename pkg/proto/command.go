// Package proto frames the commands understood by the e-ink card and
// defines the transport contract used to carry them over NFC.
package proto

// Wire limits imposed by the card firmware.
const (
	// MaxFragmentData is the largest payload one transfer command may carry.
	MaxFragmentData = 250
	// MaxBlockSize is the largest framebuffer slice addressed by one block.
	MaxBlockSize = 2000
)

// AuthKey is the fixed unlock payload expected by the authenticate command.
var AuthKey = []byte{0x20, 0x09, 0x12, 0x10}

// Command is a single card-bound request. MaxResponse is the response
// length asked of the card (0 for none). CheckStatus marks a non-success
// status word as fatal for this command.
type Command struct {
	Cla         byte
	Ins         byte
	P1          byte
	P2          byte
	Data        []byte
	MaxResponse int
	CheckStatus bool
}

// APDU renders the command in ISO 7816-4 short form. A MaxResponse of 256
// encodes as the zero Le byte.
func (c Command) APDU() []byte {
	out := make([]byte, 0, 5+len(c.Data)+1)
	out = append(out, c.Cla, c.Ins, c.P1, c.P2)
	if len(c.Data) > 0 {
		out = append(out, byte(len(c.Data)))
		out = append(out, c.Data...)
	}
	if c.MaxResponse > 0 {
		out = append(out, byte(c.MaxResponse&0xFF))
	}
	return out
}

// Authenticate unlocks the card for the current touch.
func Authenticate() Command {
	return Command{
		Cla:         0x00,
		Ins:         0x20,
		P1:          0x00,
		P2:          0x01,
		Data:        AuthKey,
		CheckStatus: true,
	}
}

// QueryDescriptor asks for the TLV device descriptor.
func QueryDescriptor() Command {
	return Command{
		Cla:         0x00,
		Ins:         0xD1,
		MaxResponse: 256,
		CheckStatus: true,
	}
}

// QueryPanelType asks for the ASCII panel model string.
func QueryPanelType() Command {
	return Command{
		Cla:         0xF0,
		Ins:         0xD8,
		Data:        []byte{0x05, 0x00, 0x00, 0x00, 0x00, 0x0E},
		MaxResponse: 256,
		CheckStatus: true,
	}
}

// TransferFragment carries one slice of a compressed block. The payload is
// prefixed with the block and fragment counters; final marks the last
// fragment of its block.
func TransferFragment(page byte, block byte, index byte, payload []byte, final bool) Command {
	data := make([]byte, 0, 2+len(payload))
	data = append(data, block, index)
	data = append(data, payload...)

	var p2 byte
	if final {
		p2 = 0x01
	}

	return Command{
		Cla:         0xF0,
		Ins:         0xD3,
		P1:          page,
		P2:          p2,
		Data:        data,
		CheckStatus: true,
	}
}

// RefreshStart kicks off the panel refresh of the transferred page.
func RefreshStart(maxResponse int) Command {
	return Command{
		Cla:         0xF0,
		Ins:         0xD4,
		P1:          0x85,
		P2:          0x80,
		MaxResponse: maxResponse,
		CheckStatus: true,
	}
}

// RefreshPoll samples the refresh state. Status words are not fatal here:
// a busy card may answer with one mid-refresh.
func RefreshPoll() Command {
	return Command{
		Cla:         0xF0,
		Ins:         0xDE,
		MaxResponse: 1,
	}
}

// IsRefreshComplete reports whether a poll response signals a finished
// refresh. An empty response means the card is still busy.
func IsRefreshComplete(resp []byte) bool {
	return len(resp) > 0 && resp[0] == 0x00
}
