package device

// Descriptor tags answered by the card.
const (
	TagPanel  = 0xA0
	TagSerial = 0xC0
	TagAux    = 0xC1
)

// ParseTLV walks a tag/length/value sequence. A record whose declared
// value runs past the buffer ends the walk; everything before it is kept.
// Duplicate tags keep the last value.
func ParseTLV(data []byte) map[byte][]byte {
	out := map[byte][]byte{}
	for i := 0; i+2 <= len(data); {
		tag := data[i]
		length := int(data[i+1])
		if i+2+length > len(data) {
			break
		}
		out[tag] = data[i+2 : i+2+length]
		i += 2 + length
	}
	return out
}
