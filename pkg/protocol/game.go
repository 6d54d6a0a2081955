package protocol

import "io"

// ServerboundGame is the C→S packet family for the Game phase.
type ServerboundGame interface {
	isServerboundGame()
}

// GameKeepAlive is key 0.
type GameKeepAlive struct{}

func (GameKeepAlive) isServerboundGame() {}
func (GameKeepAlive) isClientboundGame() {}

// PlacePiece is key 1: the client drops a piece into a column.
// TransactionId is fixed-width i32 on this variant (§4.1), unlike
// RequestUsername's VarInt.
type PlacePiece struct {
	Column        byte
	TransactionID int32
}

func (PlacePiece) isServerboundGame() {}

// AcquireLobby is key 2: the client's ack that it has observed a terminal
// game outcome (EarlyExit or PlayerWin) and is ready to move back to Lobby.
type AcquireLobby struct{}

func (AcquireLobby) isServerboundGame() {}

// DecodeServerboundGame reads one ServerboundGame packet.
func DecodeServerboundGame(r io.Reader) (ServerboundGame, error) {
	key, err := ReadPacketKey(r)
	if err != nil {
		return nil, err
	}
	switch key {
	case 0:
		return GameKeepAlive{}, nil
	case 1:
		column, err := ReadU8(r)
		if err != nil {
			return nil, err
		}
		txn, err := ReadI32(r)
		if err != nil {
			return nil, err
		}
		return PlacePiece{Column: column, TransactionID: txn}, nil
	case 2:
		return AcquireLobby{}, nil
	default:
		return nil, unknownVariant(key)
	}
}

// EncodeServerboundGame writes one ServerboundGame packet.
func EncodeServerboundGame(w io.Writer, p ServerboundGame) error {
	switch v := p.(type) {
	case GameKeepAlive:
		return WriteVarInt(w, 0)
	case PlacePiece:
		if err := WriteVarInt(w, 1); err != nil {
			return err
		}
		if err := WriteU8(w, v.Column); err != nil {
			return err
		}
		return WriteI32(w, v.TransactionID)
	case AcquireLobby:
		return WriteVarInt(w, 2)
	default:
		return unencodableVariant(p)
	}
}

// ClientboundGame is the S→C packet family for the Game phase.
type ClientboundGame interface {
	isClientboundGame()
}

// OpponentJoin is key 1: delivered once both participants have
// acknowledged Game phase. IGoFirst resolves the open question in §9:
// true for the client seated as player A (turn starts at 1 = A).
type OpponentJoin struct {
	Username string
	IGoFirst bool
}

func (OpponentJoin) isClientboundGame() {}

// PlacePieceAck is key 2: acknowledges a successful or winning placement
// back to the mover, echoing its transaction id.
type PlacePieceAck struct {
	TransactionID int32
}

func (PlacePieceAck) isClientboundGame() {}

// OpponentPlacedPiece is key 3: informs the non-moving participant of the
// opponent's successful placement.
type OpponentPlacedPiece struct {
	Column byte
}

func (OpponentPlacedPiece) isClientboundGame() {}

// EarlyExit is key 4: the opponent disconnected mid-game.
type EarlyExit struct{}

func (EarlyExit) isClientboundGame() {}

// PlayerWin is key 5: the game has ended in a win; Me is true for the
// winner's own connection and false for the loser's.
type PlayerWin struct {
	Me bool
}

func (PlayerWin) isClientboundGame() {}

// DecodeClientboundGame reads one ClientboundGame packet.
func DecodeClientboundGame(r io.Reader) (ClientboundGame, error) {
	key, err := ReadPacketKey(r)
	if err != nil {
		return nil, err
	}
	switch key {
	case 0:
		return GameKeepAlive{}, nil
	case 1:
		username, err := ReadUsername(r)
		if err != nil {
			return nil, err
		}
		goFirst, err := ReadBool(r)
		if err != nil {
			return nil, err
		}
		return OpponentJoin{Username: username, IGoFirst: goFirst}, nil
	case 2:
		txn, err := ReadI32(r)
		if err != nil {
			return nil, err
		}
		return PlacePieceAck{TransactionID: txn}, nil
	case 3:
		column, err := ReadU8(r)
		if err != nil {
			return nil, err
		}
		return OpponentPlacedPiece{Column: column}, nil
	case 4:
		return EarlyExit{}, nil
	case 5:
		me, err := ReadBool(r)
		if err != nil {
			return nil, err
		}
		return PlayerWin{Me: me}, nil
	default:
		return nil, unknownVariant(key)
	}
}

// EncodeClientboundGame writes one ClientboundGame packet.
func EncodeClientboundGame(w io.Writer, p ClientboundGame) error {
	switch v := p.(type) {
	case GameKeepAlive:
		return WriteVarInt(w, 0)
	case OpponentJoin:
		if err := WriteVarInt(w, 1); err != nil {
			return err
		}
		if err := WriteUsername(w, v.Username); err != nil {
			return err
		}
		return WriteBool(w, v.IGoFirst)
	case PlacePieceAck:
		if err := WriteVarInt(w, 2); err != nil {
			return err
		}
		return WriteI32(w, v.TransactionID)
	case OpponentPlacedPiece:
		if err := WriteVarInt(w, 3); err != nil {
			return err
		}
		return WriteU8(w, v.Column)
	case EarlyExit:
		return WriteVarInt(w, 4)
	case PlayerWin:
		if err := WriteVarInt(w, 5); err != nil {
			return err
		}
		return WriteBool(w, v.Me)
	default:
		return unencodableVariant(p)
	}
}
