package server

// ClientMessage is the normalized event set the reactor consumes (§4.5),
// produced by each connection's reader from whichever Serverbound family
// its locally-tracked phase currently selects.
type ClientMessage interface{ isClientMessage() }

// MsgKeepAlive is posted for any phase's KeepAlive variant.
type MsgKeepAlive struct{}

func (MsgKeepAlive) isClientMessage() {}

// MsgRequestUsername is posted for ServerboundLogin's RequestUsername.
type MsgRequestUsername struct {
	Name string
	Txn  int32
}

func (MsgRequestUsername) isClientMessage() {}

// MsgAcquireLobby is posted both for ServerboundLogin's AcquireUsername
// (Login -> Lobby) and ServerboundGame's AcquireLobby (Game -> Lobby):
// both wire packets collapse into the same reactor event, since both mean
// "this connection is ready to enter Lobby phase."
type MsgAcquireLobby struct{}

func (MsgAcquireLobby) isClientMessage() {}

// MsgLookForGame is posted for ServerboundLobby's RequestGame.
type MsgLookForGame struct{}

func (MsgLookForGame) isClientMessage() {}

// MsgAcquireGame is posted for ServerboundLobby's AcquireGame.
type MsgAcquireGame struct{}

func (MsgAcquireGame) isClientMessage() {}

// MsgPlacePiece is posted for ServerboundGame's PlacePiece.
type MsgPlacePiece struct {
	Column byte
	Txn    int32
}

func (MsgPlacePiece) isClientMessage() {}

// MsgSocketDie is posted by a connection's owning goroutine once its
// reader loop has returned, for any reason (clean EOF or fatal error).
type MsgSocketDie struct{}

func (MsgSocketDie) isClientMessage() {}
