package wire

import (
	"bytes"
	"fmt"
	"strconv"
)

// BufferSize is the receiver's per-read buffer. One read consumes at
// most this many bytes and the whole chunk is decoded as one value.
const BufferSize = 1024

// Encode renders a clock value as its decimal textual representation.
func Encode(clock uint64) []byte {
	return strconv.AppendUint(nil, clock, 10)
}

// Decode parses a received chunk as a single clock value. Surrounding
// ASCII whitespace is tolerated; anything else is a decode error and
// the caller should drop the message.
func Decode(buf []byte) (uint64, error) {
	trimmed := bytes.TrimSpace(buf)
	if len(trimmed) == 0 {
		return 0, fmt.Errorf("empty payload")
	}
	v, err := strconv.ParseUint(string(trimmed), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed clock payload %q: %w", trimmed, err)
	}
	return v, nil
}
