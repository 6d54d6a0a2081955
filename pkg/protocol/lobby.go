package protocol

import "io"

// ServerboundLobby is the C→S packet family for the Lobby phase (which
// covers both the LookingForGame and WaitingForGame server-side
// sub-states — those are invisible on the wire, §3).
type ServerboundLobby interface {
	isServerboundLobby()
}

// LobbyKeepAlive is key 0.
type LobbyKeepAlive struct{}

func (LobbyKeepAlive) isServerboundLobby() {}
func (LobbyKeepAlive) isClientboundLobby() {}

// RequestGame is key 1: the client asks to start looking for a match.
type RequestGame struct{}

func (RequestGame) isServerboundLobby() {}

// AcquireGame is key 2: the client's ack that it has observed GameFound
// and is ready to move to Game phase.
type AcquireGame struct{}

func (AcquireGame) isServerboundLobby() {}

// DecodeServerboundLobby reads one ServerboundLobby packet.
func DecodeServerboundLobby(r io.Reader) (ServerboundLobby, error) {
	key, err := ReadPacketKey(r)
	if err != nil {
		return nil, err
	}
	switch key {
	case 0:
		return LobbyKeepAlive{}, nil
	case 1:
		return RequestGame{}, nil
	case 2:
		return AcquireGame{}, nil
	default:
		return nil, unknownVariant(key)
	}
}

// EncodeServerboundLobby writes one ServerboundLobby packet.
func EncodeServerboundLobby(w io.Writer, p ServerboundLobby) error {
	switch p.(type) {
	case LobbyKeepAlive:
		return WriteVarInt(w, 0)
	case RequestGame:
		return WriteVarInt(w, 1)
	case AcquireGame:
		return WriteVarInt(w, 2)
	default:
		return unencodableVariant(p)
	}
}

// ClientboundLobby is the S→C packet family for the Lobby phase.
type ClientboundLobby interface {
	isClientboundLobby()
}

// GameFound is key 1: a match has been made; the client should respond
// with AcquireGame and transition to Game phase.
type GameFound struct{}

func (GameFound) isClientboundLobby() {}

// DecodeClientboundLobby reads one ClientboundLobby packet.
func DecodeClientboundLobby(r io.Reader) (ClientboundLobby, error) {
	key, err := ReadPacketKey(r)
	if err != nil {
		return nil, err
	}
	switch key {
	case 0:
		return LobbyKeepAlive{}, nil
	case 1:
		return GameFound{}, nil
	default:
		return nil, unknownVariant(key)
	}
}

// EncodeClientboundLobby writes one ClientboundLobby packet.
func EncodeClientboundLobby(w io.Writer, p ClientboundLobby) error {
	switch p.(type) {
	case LobbyKeepAlive:
		return WriteVarInt(w, 0)
	case GameFound:
		return WriteVarInt(w, 1)
	default:
		return unencodableVariant(p)
	}
}
