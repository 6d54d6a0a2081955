package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/StoreStation/VibeShitCraft/pkg/protocol"
)

// sentAcquireUsername/Game/Lobby are fakePeer sentinels marking that the
// Driver wrote the corresponding ack packet (as opposed to a payload
// packet carrying data worth asserting on directly).
type sentAcquireUsername struct{}
type sentAcquireGame struct{}
type sentAcquireLobby struct{}

// fakePeer stands in for the server side of the protocol: it decodes
// whatever the Driver writes, tracking phase the same way the real
// session reader does, and forwards every non-KeepAlive packet (or a
// sentinel for acks) onto the returned channel. The caller writes
// ClientboundX replies directly on conn to script the server's side.
func fakePeer(conn net.Conn) <-chan any {
	out := make(chan any, 16)
	go func() {
		defer close(out)
		p := phaseLogin
		for {
			switch p {
			case phaseLogin:
				pkt, err := protocol.DecodeServerboundLogin(conn)
				if err != nil {
					return
				}
				switch v := pkt.(type) {
				case protocol.RequestUsername:
					out <- v
				case protocol.AcquireUsername:
					p = phaseLobby
					out <- sentAcquireUsername{}
				}
			case phaseLobby:
				pkt, err := protocol.DecodeServerboundLobby(conn)
				if err != nil {
					return
				}
				switch v := pkt.(type) {
				case protocol.RequestGame:
					out <- v
				case protocol.AcquireGame:
					p = phaseGame
					out <- sentAcquireGame{}
				}
			case phaseGame:
				pkt, err := protocol.DecodeServerboundGame(conn)
				if err != nil {
					return
				}
				switch v := pkt.(type) {
				case protocol.PlacePiece:
					out <- v
				case protocol.AcquireLobby:
					p = phaseLobby
					out <- sentAcquireLobby{}
				}
			}
		}
	}()
	return out
}

// recvT reads the next significant (non-KeepAlive) packet the fake peer
// observed, skipping nothing -- KeepAlives are filtered out by fakePeer
// itself, so this always returns the next meaningful event.
func recvT(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for peer to observe a packet")
		return nil
	}
}

func recvUI(t *testing.T, ch <-chan UIEvent) UIEvent {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a UI event")
		return nil
	}
}

type testHarness struct {
	uiIn       chan UIRequest
	uiOut      chan UIEvent
	peerConn   net.Conn
	peerEvents <-chan any
	runDone    <-chan struct{}
	cleanup    func()
}

func newTestDriver(t *testing.T) *testHarness {
	t.Helper()
	origTick := tickInterval
	tickInterval = 2 * time.Millisecond

	driverSide, peerSide := net.Pipe()
	uiIn := make(chan UIRequest, 4)
	uiOut := make(chan UIEvent, 4)
	d := NewDriver(driverSide, uiIn, uiOut, zap.NewNop())
	peerEvents := fakePeer(peerSide)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(runDone)
	}()

	return &testHarness{
		uiIn:       uiIn,
		uiOut:      uiOut,
		peerConn:   peerSide,
		peerEvents: peerEvents,
		runDone:    runDone,
		cleanup: func() {
			cancel()
			_ = peerSide.Close()
			<-runDone
			tickInterval = origTick
		},
	}
}

func TestDriverHappyUsernameFlow(t *testing.T) {
	h := newTestDriver(t)
	defer h.cleanup()

	h.uiIn <- RequestUsername{Username: "alice"}

	req := recvT(t, h.peerEvents)
	require.Equal(t, protocol.RequestUsername{Username: "alice", TransactionID: 1}, req)

	require.NoError(t, protocol.EncodeClientboundLogin(h.peerConn, protocol.UsernameResult{Success: true, TransactionID: 1}))

	ack := recvT(t, h.peerEvents)
	assert.Equal(t, sentAcquireUsername{}, ack)

	ev := recvUI(t, h.uiOut)
	assert.Equal(t, UsernameResult{Success: true, Username: "alice"}, ev)
}

func TestDriverUsernameRejectionDoesNotAdvancePhase(t *testing.T) {
	h := newTestDriver(t)
	defer h.cleanup()

	h.uiIn <- RequestUsername{Username: "taken"}
	req := recvT(t, h.peerEvents)
	require.Equal(t, protocol.RequestUsername{Username: "taken", TransactionID: 1}, req)

	require.NoError(t, protocol.EncodeClientboundLogin(h.peerConn, protocol.UsernameResult{Success: false, TransactionID: 1}))

	ev := recvUI(t, h.uiOut)
	assert.Equal(t, UsernameResult{Success: false, Username: "taken"}, ev)

	// No AcquireUsername should follow a rejection; the next thing the
	// peer observes must be a LoginKeepAlive (silently filtered by
	// fakePeer), never an AcquireUsername sentinel. Requesting a second
	// username from the still-Login phase proves it: the server would
	// see RequestUsername again, not AcquireUsername.
	h.uiIn <- RequestUsername{Username: "taken2"}
	req2 := recvT(t, h.peerEvents)
	assert.Equal(t, protocol.RequestUsername{Username: "taken2", TransactionID: 2}, req2)
}

func TestDriverMatchmakingAndGameFound(t *testing.T) {
	h := newTestDriver(t)
	defer h.cleanup()

	// Fast-forward to Lobby phase.
	h.uiIn <- RequestUsername{Username: "alice"}
	recvT(t, h.peerEvents)
	require.NoError(t, protocol.EncodeClientboundLogin(h.peerConn, protocol.UsernameResult{Success: true, TransactionID: 1}))
	recvT(t, h.peerEvents)
	recvUI(t, h.uiOut)

	h.uiIn <- SearchForGame{}
	req := recvT(t, h.peerEvents)
	assert.Equal(t, protocol.RequestGame{}, req)

	require.NoError(t, protocol.EncodeClientboundLobby(h.peerConn, protocol.GameFound{}))

	ack := recvT(t, h.peerEvents)
	assert.Equal(t, sentAcquireGame{}, ack)

	ev := recvUI(t, h.uiOut)
	assert.Equal(t, TransferToGame{}, ev)
}

func gameHarness(t *testing.T) *testHarness {
	t.Helper()
	h := newTestDriver(t)
	h.uiIn <- RequestUsername{Username: "alice"}
	recvT(t, h.peerEvents)
	require.NoError(t, protocol.EncodeClientboundLogin(h.peerConn, protocol.UsernameResult{Success: true, TransactionID: 1}))
	recvT(t, h.peerEvents)
	recvUI(t, h.uiOut)

	h.uiIn <- SearchForGame{}
	recvT(t, h.peerEvents)
	require.NoError(t, protocol.EncodeClientboundLobby(h.peerConn, protocol.GameFound{}))
	recvT(t, h.peerEvents)
	recvUI(t, h.uiOut)
	return h
}

func TestDriverPlacePieceAckTranslation(t *testing.T) {
	h := gameHarness(t)
	defer h.cleanup()

	h.uiIn <- PlacePiece{Column: 3}
	req := recvT(t, h.peerEvents)
	require.Equal(t, protocol.PlacePiece{Column: 3, TransactionID: 1}, req)

	require.NoError(t, protocol.EncodeClientboundGame(h.peerConn, protocol.PlacePieceAck{TransactionID: 1}))

	ev := recvUI(t, h.uiOut)
	assert.Equal(t, PiecePlaced{Me: true, Column: 3}, ev)
}

func TestDriverOpponentPlacedPiece(t *testing.T) {
	h := gameHarness(t)
	defer h.cleanup()

	require.NoError(t, protocol.EncodeClientboundGame(h.peerConn, protocol.OpponentPlacedPiece{Column: 5}))

	ev := recvUI(t, h.uiOut)
	assert.Equal(t, PiecePlaced{Me: false, Column: 5}, ev)
}

func TestDriverEarlyExit(t *testing.T) {
	h := gameHarness(t)
	defer h.cleanup()

	require.NoError(t, protocol.EncodeClientboundGame(h.peerConn, protocol.EarlyExit{}))

	ack := recvT(t, h.peerEvents)
	assert.Equal(t, sentAcquireLobby{}, ack)

	ev := recvUI(t, h.uiOut)
	assert.Equal(t, ExitToLobby{}, ev)
}

func TestDriverWinAndLose(t *testing.T) {
	h := gameHarness(t)
	defer h.cleanup()

	require.NoError(t, protocol.EncodeClientboundGame(h.peerConn, protocol.PlayerWin{Me: true}))
	assert.Equal(t, sentAcquireLobby{}, recvT(t, h.peerEvents))
	assert.Equal(t, WinGame{}, recvUI(t, h.uiOut))

	lose := gameHarness(t)
	defer lose.cleanup()

	require.NoError(t, protocol.EncodeClientboundGame(lose.peerConn, protocol.PlayerWin{Me: false}))
	assert.Equal(t, sentAcquireLobby{}, recvT(t, lose.peerEvents))
	assert.Equal(t, LoseGame{}, recvUI(t, lose.uiOut))
}

func TestDriverOpponentJoinCarriesTurnOrder(t *testing.T) {
	h := gameHarness(t)
	defer h.cleanup()

	require.NoError(t, protocol.EncodeClientboundGame(h.peerConn, protocol.OpponentJoin{Username: "bob", IGoFirst: false}))

	ev := recvUI(t, h.uiOut)
	assert.Equal(t, NotifyOpponentJoin{Username: "bob", IGoFirst: false}, ev)
}

func TestDriverExitsWhenUIChannelCloses(t *testing.T) {
	h := newTestDriver(t)
	defer func() { _ = h.peerConn.Close() }()

	// Drain whatever the fake peer observes in the background so the
	// Driver's writes (KeepAlives) never block waiting on a reader.
	go func() {
		for range h.peerEvents {
		}
	}()

	close(h.uiIn)

	select {
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after uiIn closed")
	case <-h.runDone:
	}
}
