// Package protocol implements the Connect-4 wire codec: VarInts, bounded
// UTF-8 strings, and the six tagged-union packet families partitioned by
// connection phase (§4.1). There is no outer length prefix or packet-type
// envelope (§6) — a decoder must already know which family to expect from
// the connection's current phase before it reads a byte.
package protocol

import "fmt"

func unknownVariant(key int32) error {
	return fmt.Errorf("%w: key %d", ErrUnknownVariant, key)
}

func unencodableVariant(p any) error {
	return fmt.Errorf("protocol: unencodable variant %T", p)
}
