package frame

import (
	"bytes"

	lzo "github.com/rasky/go-lzo"
)

// Compress squeezes one block with LZO1X-1. Blocks compress
// independently; the card inflates them one at a time.
func Compress(block []byte) []byte {
	return lzo.Compress1X(block)
}

// Decompress undoes Compress. outLen is the uncompressed block size.
func Decompress(data []byte, outLen int) ([]byte, error) {
	return lzo.Decompress1X(bytes.NewReader(data), len(data), outLen)
}
