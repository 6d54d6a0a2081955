package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxUsernameLen is the compile-time maximum for the Username bounded
// string (§3: UTF-8, 1..16 bytes).
const MaxUsernameLen = 16

// ReadBoundedString reads a VarInt length prefix followed by that many
// bytes of UTF-8 content, failing if the prefix exceeds max or the
// content is not valid UTF-8.
func ReadBoundedString(r io.Reader, max int) (string, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}
	if length < 0 || int(length) > max {
		return "", fmt.Errorf("%w: string length %d exceeds max %d", ErrLengthExceeded, length, max)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}

// WriteBoundedString writes s as a VarInt length prefix followed by its
// UTF-8 bytes. It refuses to put an over-length string on the wire.
func WriteBoundedString(w io.Writer, s string, max int) error {
	b := []byte(s)
	if len(b) > max {
		return fmt.Errorf("%w: string length %d exceeds max %d", ErrLengthExceeded, len(b), max)
	}
	if err := WriteVarInt(w, int32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadUsername reads a bounded string capped at MaxUsernameLen.
func ReadUsername(r io.Reader) (string, error) {
	return ReadBoundedString(r, MaxUsernameLen)
}

// WriteUsername writes a bounded string capped at MaxUsernameLen.
func WriteUsername(w io.Writer, s string) error {
	return WriteBoundedString(w, s, MaxUsernameLen)
}

// ReadBool reads a one-byte boolean; any value other than 0 or 1 fails.
func ReadBool(r io.Reader) (bool, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	switch buf[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidBoolean
	}
}

// WriteBool writes a one-byte boolean.
func WriteBool(w io.Writer, v bool) error {
	var b byte
	if v {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

// ReadU8 reads a single unsigned byte.
func ReadU8(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return buf[0], nil
}

// WriteU8 writes a single unsigned byte.
func WriteU8(w io.Writer, v byte) error {
	_, err := w.Write([]byte{v})
	return err
}

// ReadI32 reads a fixed-width big-endian signed 32-bit integer. Unlike
// VarInt fields, transaction ids on some packets (§4.1) are fixed-width;
// this is the companion of ReadVarInt for those fields.
func ReadI32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// WriteI32 writes a fixed-width big-endian signed 32-bit integer.
func WriteI32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}
