package protocol

import "errors"

// Codec failure modes, per the wire format's error taxonomy. io.EOF is
// deliberately not redeclared here: an EOF at a packet boundary is not a
// fault, and callers distinguish it from these with errors.Is(err, io.EOF).
var (
	// ErrShortRead means the stream ended in the middle of a packet.
	ErrShortRead = errors.New("protocol: short read")

	// ErrInvalidUTF8 means a bounded string's bytes were not valid UTF-8.
	ErrInvalidUTF8 = errors.New("protocol: invalid utf8")

	// ErrLengthExceeded means a bounded string's declared length exceeded
	// its compile-time maximum, or a VarInt ran past its 5-byte limit.
	ErrLengthExceeded = errors.New("protocol: length exceeded")

	// ErrUnknownVariant means a tagged union's discriminator key had no
	// mapping to a known variant.
	ErrUnknownVariant = errors.New("protocol: unknown variant")

	// ErrInvalidBoolean means a boolean byte was neither 0 nor 1.
	ErrInvalidBoolean = errors.New("protocol: invalid boolean")
)
