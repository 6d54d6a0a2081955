package protocol

import "io"

// ServerboundLogin is the C→S packet family for the Login phase.
type ServerboundLogin interface {
	isServerboundLogin()
}

// LoginKeepAlive is key 0 in both Login families.
type LoginKeepAlive struct{}

func (LoginKeepAlive) isServerboundLogin() {}
func (LoginKeepAlive) isClientboundLogin() {}

// RequestUsername is key 1: client asks to claim a username. TransactionId
// travels as a VarInt on this variant (§4.1).
type RequestUsername struct {
	Username      string
	TransactionID int32
}

func (RequestUsername) isServerboundLogin() {}

// AcquireUsername is key 2: the client's ack that it has observed a
// successful UsernameResult and is ready to move to Lobby.
type AcquireUsername struct{}

func (AcquireUsername) isServerboundLogin() {}

// DecodeServerboundLogin reads one ServerboundLogin packet, starting with
// its discriminator (read via ReadPacketKey, so an io.EOF before the
// first byte is returned unwrapped).
func DecodeServerboundLogin(r io.Reader) (ServerboundLogin, error) {
	key, err := ReadPacketKey(r)
	if err != nil {
		return nil, err
	}
	switch key {
	case 0:
		return LoginKeepAlive{}, nil
	case 1:
		username, err := ReadUsername(r)
		if err != nil {
			return nil, err
		}
		txn, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		return RequestUsername{Username: username, TransactionID: txn}, nil
	case 2:
		return AcquireUsername{}, nil
	default:
		return nil, unknownVariant(key)
	}
}

// EncodeServerboundLogin writes one ServerboundLogin packet.
func EncodeServerboundLogin(w io.Writer, p ServerboundLogin) error {
	switch v := p.(type) {
	case LoginKeepAlive:
		return WriteVarInt(w, 0)
	case RequestUsername:
		if err := WriteVarInt(w, 1); err != nil {
			return err
		}
		if err := WriteUsername(w, v.Username); err != nil {
			return err
		}
		return WriteVarInt(w, v.TransactionID)
	case AcquireUsername:
		return WriteVarInt(w, 2)
	default:
		return unencodableVariant(p)
	}
}

// ClientboundLogin is the S→C packet family for the Login phase.
type ClientboundLogin interface {
	isClientboundLogin()
}

// UsernameResult is key 1: the server's reply to RequestUsername.
// TransactionId is fixed-width i32 on this variant (§4.1), echoed verbatim.
type UsernameResult struct {
	Success       bool
	TransactionID int32
}

func (UsernameResult) isClientboundLogin() {}

// DecodeClientboundLogin reads one ClientboundLogin packet.
func DecodeClientboundLogin(r io.Reader) (ClientboundLogin, error) {
	key, err := ReadPacketKey(r)
	if err != nil {
		return nil, err
	}
	switch key {
	case 0:
		return LoginKeepAlive{}, nil
	case 1:
		success, err := ReadBool(r)
		if err != nil {
			return nil, err
		}
		txn, err := ReadI32(r)
		if err != nil {
			return nil, err
		}
		return UsernameResult{Success: success, TransactionID: txn}, nil
	default:
		return nil, unknownVariant(key)
	}
}

// EncodeClientboundLogin writes one ClientboundLogin packet.
func EncodeClientboundLogin(w io.Writer, p ClientboundLogin) error {
	switch v := p.(type) {
	case LoginKeepAlive:
		return WriteVarInt(w, 0)
	case UsernameResult:
		if err := WriteVarInt(w, 1); err != nil {
			return err
		}
		if err := WriteBool(w, v.Success); err != nil {
			return err
		}
		return WriteI32(w, v.TransactionID)
	default:
		return unencodableVariant(p)
	}
}
