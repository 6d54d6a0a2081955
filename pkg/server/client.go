package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/StoreStation/VibeShitCraft/pkg/protocol"
)

// ClientID is the server-assigned opaque 128-bit identifier of §3,
// stable for a connection's lifetime.
type ClientID = uuid.UUID

// Phase is the connection-level state that selects which packet family
// is legal (§3 ClientPhase). LookingForGame and WaitingForGame are
// invisible sub-states of PhaseLobby, tracked separately: a client in
// PhaseLobby is LookingForGame while its ClientID sits in the reactor's
// matchmaking queue, and WaitingForGame once paired (game != nil) but
// not yet acknowledged.
type Phase int

const (
	PhaseLogin Phase = iota
	PhaseLobby
	PhaseGame
)

func (p Phase) String() string {
	switch p {
	case PhaseLogin:
		return "login"
	case PhaseLobby:
		return "lobby"
	case PhaseGame:
		return "game"
	default:
		return "unknown"
	}
}

// Client is the server's authoritative record for one connection (§3
// "Server record per client"). Every field here is read and written
// exclusively by the reactor goroutine; the connection's reader goroutine
// only ever sends ClientMessage values into the mailbox, never touches
// this struct directly.
type Client struct {
	ID       ClientID
	writer   *connWriter
	phase    Phase
	username string
	game     *Game
	acquired bool
	looking  bool
	startedAt time.Time
}

// connWriter is the write half of a connection (C3). The reactor is its
// only caller, so no locking is required (§5 "each connection's write
// half is mutated exclusively by the reactor").
type connWriter struct {
	conn net.Conn
}

func (w *connWriter) SendLogin(p protocol.ClientboundLogin) error {
	return protocol.EncodeClientboundLogin(w.conn, p)
}

func (w *connWriter) SendLobby(p protocol.ClientboundLobby) error {
	return protocol.EncodeClientboundLobby(w.conn, p)
}

func (w *connWriter) SendGame(p protocol.ClientboundGame) error {
	return protocol.EncodeClientboundGame(w.conn, p)
}

// Close closes the underlying connection. Safe to call even if the
// reader side has already closed it (net.Conn.Close is idempotent-safe
// to call twice, returning an error the reactor doesn't need to act on).
func (w *connWriter) Close() {
	_ = w.conn.Close()
}

// readLoop is the server-side instance of the reader (C2): it decodes
// ServerboundLogin/Lobby/Game packets according to a phase tracked
// locally by this goroutine, and normalizes each into a ClientMessage
// posted to the mailbox. The local phase here runs ahead of the reactor's
// authoritative phase: the reader advances the instant it observes the
// triggering packet on the wire, before the reactor has processed the
// posted message, exactly as §4.2 describes for the symmetric
// client-side reader.
//
// idleTimeout, when non-zero, is applied as a read deadline before every
// decode call; zero disables it, matching the default of no enforced
// liveness timeout.
func readLoop(conn net.Conn, id ClientID, post func(ClientMessage), idleTimeout time.Duration) error {
	phase := PhaseLogin
	for {
		if idleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
				return fmt.Errorf("server: set read deadline: %w", err)
			}
		}

		var msg ClientMessage
		switch phase {
		case PhaseLogin:
			pkt, err := protocol.DecodeServerboundLogin(conn)
			if err != nil {
				return translateReadErr(err)
			}
			switch p := pkt.(type) {
			case protocol.LoginKeepAlive:
				msg = MsgKeepAlive{}
			case protocol.RequestUsername:
				msg = MsgRequestUsername{Name: p.Username, Txn: p.TransactionID}
			case protocol.AcquireUsername:
				phase = PhaseLobby
				msg = MsgAcquireLobby{}
			}
		case PhaseLobby:
			pkt, err := protocol.DecodeServerboundLobby(conn)
			if err != nil {
				return translateReadErr(err)
			}
			switch pkt.(type) {
			case protocol.LobbyKeepAlive:
				msg = MsgKeepAlive{}
			case protocol.RequestGame:
				msg = MsgLookForGame{}
			case protocol.AcquireGame:
				phase = PhaseGame
				msg = MsgAcquireGame{}
			}
		case PhaseGame:
			pkt, err := protocol.DecodeServerboundGame(conn)
			if err != nil {
				return translateReadErr(err)
			}
			switch p := pkt.(type) {
			case protocol.GameKeepAlive:
				msg = MsgKeepAlive{}
			case protocol.PlacePiece:
				msg = MsgPlacePiece{Column: p.Column, Txn: p.TransactionID}
			case protocol.AcquireLobby:
				phase = PhaseLobby
				msg = MsgAcquireLobby{}
			}
		}
		post(msg)
	}
}

// translateReadErr implements §4.2's failure semantics: a clean EOF at a
// packet boundary is not an error (nil return ends the loop quietly);
// anything else is fatal to the connection.
func translateReadErr(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// runConnection owns one accepted connection end to end: it runs the
// reader loop and, regardless of outcome, posts MsgSocketDie so the
// reactor always learns of the disconnect (§4.5 "SocketDie synthesized
// when the reader channel closes").
func runConnection(conn net.Conn, id ClientID, mailbox *Mailbox, idleTimeout time.Duration, log *zap.Logger) {
	defer conn.Close()
	err := readLoop(conn, id, func(msg ClientMessage) { mailbox.Post(id, msg) }, idleTimeout)
	if err != nil {
		log.Warn("connection reader terminated", zap.Stringer("client", id), zap.Error(err))
	} else {
		log.Debug("connection closed cleanly", zap.Stringer("client", id))
	}
	mailbox.Post(id, MsgSocketDie{})
}
