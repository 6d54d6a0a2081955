package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/StoreStation/VibeShitCraft/pkg/protocol"
)

// tickInterval is the Driver's fixed loop period (§4.6, ≈50ms). A var
// rather than a const so tests can shrink it.
var tickInterval = 50 * time.Millisecond

// phase mirrors the three-state connection phase on the client side.
// The reader and the Driver each keep their own copy: the reader's is
// authoritative for which decode family to use and advances the instant
// the triggering packet is observed on the wire, while the Driver's own
// copy (used only to pick the right KeepAlive/request family to write)
// advances one drain pass later, when it processes the reader's message.
type phase int

const (
	phaseLogin phase = iota
	phaseLobby
	phaseGame
)

// readerMsg is what the reader forwards to the Driver for every decoded
// inbound packet, already stripped of its wire representation.
type readerMsg interface{ isReaderMsg() }

type msgUsernameResult struct {
	success bool
	txn     int32
}

func (msgUsernameResult) isReaderMsg() {}

type msgGameFound struct{}

func (msgGameFound) isReaderMsg() {}

type msgOpponentJoin struct {
	username string
	iGoFirst bool
}

func (msgOpponentJoin) isReaderMsg() {}

type msgPlacePieceAck struct {
	txn int32
}

func (msgPlacePieceAck) isReaderMsg() {}

type msgOpponentPlacedPiece struct {
	column byte
}

func (msgOpponentPlacedPiece) isReaderMsg() {}

type msgEarlyExit struct{}

func (msgEarlyExit) isReaderMsg() {}

type msgPlayerWin struct {
	me bool
}

func (msgPlayerWin) isReaderMsg() {}

// Driver is the client-side phase driver (C7): the connection's single
// writer, correlating outbound requests by transaction id and bridging
// the wire to a UI-facing event stream.
type Driver struct {
	conn net.Conn
	log  *zap.Logger

	uiIn  <-chan UIRequest
	uiOut chan<- UIEvent

	phase phase

	usernameTxn     int32
	placeTxn        int32
	pendingUsername map[int32]string
	pendingColumn   map[int32]byte

	inbound chan readerMsg
}

// NewDriver builds a Driver over conn. uiIn carries requests from the UI
// layer; uiOut carries events back to it. Neither channel is owned by
// the Driver -- the caller closes uiIn to signal shutdown and is
// responsible for draining uiOut.
func NewDriver(conn net.Conn, uiIn <-chan UIRequest, uiOut chan<- UIEvent, log *zap.Logger) *Driver {
	return &Driver{
		conn:            conn,
		log:             log,
		uiIn:            uiIn,
		uiOut:           uiOut,
		pendingUsername: make(map[int32]string),
		pendingColumn:   make(map[int32]byte),
		inbound:         make(chan readerMsg, 32),
	}
}

// Run drives the fixed-tick loop until ctx is cancelled, the connection's
// reader terminates, or the UI request channel closes (a clean exit,
// per §4.6 "Cancellation").
func (d *Driver) Run(ctx context.Context) error {
	readerDone := make(chan error, 1)
	go func() { readerDone <- d.readLoop() }()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readerDone:
			return err
		case <-ticker.C:
			if closed := d.drainUIRequests(); closed {
				return nil
			}
			d.drainInbound()
			d.sendKeepAlive()
		}
	}
}

// drainUIRequests implements §4.6 step 1: non-blocking drain of queued
// UI requests, allocating a transaction id and emitting the
// corresponding packet for each. Reports whether uiIn has been closed.
func (d *Driver) drainUIRequests() (closed bool) {
	for {
		select {
		case req, ok := <-d.uiIn:
			if !ok {
				return true
			}
			d.handleUIRequest(req)
		default:
			return false
		}
	}
}

func (d *Driver) handleUIRequest(req UIRequest) {
	switch r := req.(type) {
	case RequestUsername:
		d.usernameTxn++
		txn := d.usernameTxn
		d.pendingUsername[txn] = r.Username
		d.send(protocol.EncodeServerboundLogin(d.conn, protocol.RequestUsername{Username: r.Username, TransactionID: txn}))
	case SearchForGame:
		d.send(protocol.EncodeServerboundLobby(d.conn, protocol.RequestGame{}))
	case PlacePiece:
		d.placeTxn++
		txn := d.placeTxn
		d.pendingColumn[txn] = r.Column
		d.send(protocol.EncodeServerboundGame(d.conn, protocol.PlacePiece{Column: r.Column, TransactionID: txn}))
	}
}

// drainInbound implements §4.6 step 2.
func (d *Driver) drainInbound() {
	for {
		select {
		case msg := <-d.inbound:
			d.handleInbound(msg)
		default:
			return
		}
	}
}

func (d *Driver) handleInbound(msg readerMsg) {
	switch m := msg.(type) {
	case msgUsernameResult:
		username := d.pendingUsername[m.txn]
		delete(d.pendingUsername, m.txn)
		if m.success {
			d.phase = phaseLobby
			d.send(protocol.EncodeServerboundLogin(d.conn, protocol.AcquireUsername{}))
		}
		d.emit(UsernameResult{Success: m.success, Username: username})

	case msgGameFound:
		d.phase = phaseGame
		d.send(protocol.EncodeServerboundLobby(d.conn, protocol.AcquireGame{}))
		d.emit(TransferToGame{})

	case msgOpponentJoin:
		d.emit(NotifyOpponentJoin{Username: m.username, IGoFirst: m.iGoFirst})

	case msgPlacePieceAck:
		column := d.pendingColumn[m.txn]
		d.pendingColumn = make(map[int32]byte)
		d.emit(PiecePlaced{Me: true, Column: column})

	case msgOpponentPlacedPiece:
		d.emit(PiecePlaced{Me: false, Column: m.column})

	case msgEarlyExit:
		d.phase = phaseLobby
		d.send(protocol.EncodeServerboundGame(d.conn, protocol.AcquireLobby{}))
		d.emit(ExitToLobby{})

	case msgPlayerWin:
		d.phase = phaseLobby
		d.send(protocol.EncodeServerboundGame(d.conn, protocol.AcquireLobby{}))
		if m.me {
			d.emit(WinGame{})
		} else {
			d.emit(LoseGame{})
		}
	}
}

// sendKeepAlive implements §4.6 step 3.
func (d *Driver) sendKeepAlive() {
	switch d.phase {
	case phaseLogin:
		d.send(protocol.EncodeServerboundLogin(d.conn, protocol.LoginKeepAlive{}))
	case phaseLobby:
		d.send(protocol.EncodeServerboundLobby(d.conn, protocol.LobbyKeepAlive{}))
	case phaseGame:
		d.send(protocol.EncodeServerboundGame(d.conn, protocol.GameKeepAlive{}))
	}
}

func (d *Driver) send(err error) {
	if err != nil {
		d.log.Warn("write failed", zap.Error(err))
	}
}

func (d *Driver) emit(ev UIEvent) {
	select {
	case d.uiOut <- ev:
	default:
		d.log.Warn("UI event dropped, consumer not keeping up", zap.String("event", fmt.Sprintf("%T", ev)))
	}
}

// readLoop is the client-side instance of the reader (C2): it decodes
// ClientboundLogin/Lobby/Game packets according to a phase tracked
// locally by this goroutine, forwarding each as a readerMsg. The phase
// is read before every decode, exactly mirroring the server-side reader
// in pkg/server.
func (d *Driver) readLoop() error {
	p := phaseLogin
	for {
		var msg readerMsg
		switch p {
		case phaseLogin:
			pkt, err := protocol.DecodeClientboundLogin(d.conn)
			if err != nil {
				return translateReadErr(err)
			}
			switch v := pkt.(type) {
			case protocol.LoginKeepAlive:
			case protocol.UsernameResult:
				if v.Success {
					p = phaseLobby
				}
				msg = msgUsernameResult{success: v.Success, txn: v.TransactionID}
			}
		case phaseLobby:
			pkt, err := protocol.DecodeClientboundLobby(d.conn)
			if err != nil {
				return translateReadErr(err)
			}
			switch pkt.(type) {
			case protocol.LobbyKeepAlive:
			case protocol.GameFound:
				p = phaseGame
				msg = msgGameFound{}
			}
		case phaseGame:
			pkt, err := protocol.DecodeClientboundGame(d.conn)
			if err != nil {
				return translateReadErr(err)
			}
			switch v := pkt.(type) {
			case protocol.GameKeepAlive:
			case protocol.OpponentJoin:
				msg = msgOpponentJoin{username: v.Username, iGoFirst: v.IGoFirst}
			case protocol.PlacePieceAck:
				msg = msgPlacePieceAck{txn: v.TransactionID}
			case protocol.OpponentPlacedPiece:
				msg = msgOpponentPlacedPiece{column: v.Column}
			case protocol.EarlyExit:
				p = phaseLobby
				msg = msgEarlyExit{}
			case protocol.PlayerWin:
				p = phaseLobby
				msg = msgPlayerWin{me: v.Me}
			}
		}
		if msg != nil {
			d.inbound <- msg
		}
	}
}

// translateReadErr implements §4.2's failure semantics: a clean EOF at a
// packet boundary is not an error; anything else terminates the
// connection.
func translateReadErr(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
