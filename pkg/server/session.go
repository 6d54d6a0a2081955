package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/StoreStation/VibeShitCraft/pkg/game"
	"github.com/StoreStation/VibeShitCraft/pkg/protocol"
)

// placementNotice is a deferred OpponentPlacedPiece destined for the
// non-moving participant of a successful or winning move.
type placementNotice struct {
	to     ClientID
	column byte
}

// tickEffects accumulates the side effects of one tick's event
// processing so they can be emitted in the fixed order §4.5 mandates,
// rather than interleaved with event handling itself.
type tickEffects struct {
	opponentPlaced []placementNotice
	losers         []ClientID
	bothReady      []*Game
	removals       map[ClientID]struct{}
}

// Reactor is the single-writer session/matchmaking core (C6). All of its
// state -- clients, names, games, the matchmaking queue -- is touched
// only from the goroutine running Run, so none of it needs locking
// (§5).
type Reactor struct {
	mailbox     *Mailbox
	clients     map[ClientID]*Client
	names       map[string]ClientID
	games       map[GameID]*Game
	looking     []ClientID
	idleTimeout time.Duration
	log         *zap.Logger
}

// NewReactor builds an empty Reactor bound to mailbox. idleTimeout is
// forwarded to every connection's reader loop as its optional read
// deadline (zero disables it).
func NewReactor(mailbox *Mailbox, idleTimeout time.Duration, log *zap.Logger) *Reactor {
	return &Reactor{
		mailbox:     mailbox,
		clients:     make(map[ClientID]*Client),
		names:       make(map[string]ClientID),
		games:       make(map[GameID]*Game),
		idleTimeout: idleTimeout,
		log:         log,
	}
}

// Run drives the reactor until the mailbox reports a dead listener or
// ctx is cancelled.
func (r *Reactor) Run(ctx context.Context) error {
	for {
		batch, err := r.mailbox.Wait(ctx)
		if err != nil {
			return err
		}
		r.tick(batch)
	}
}

// tick is one reactor cycle: register new connections, process at most
// one event per client, then run the fixed post-event pass (§4.5).
func (r *Reactor) tick(batch Batch) {
	for _, nc := range batch.NewConns {
		r.registerClient(nc)
	}

	eff := tickEffects{removals: make(map[ClientID]struct{})}
	for _, ev := range batch.Events {
		client, ok := r.clients[ev.client]
		if !ok {
			continue
		}
		r.handleEvent(client, ev.msg, &eff)
	}

	r.emitOpponentPlaced(eff.opponentPlaced)
	r.emitLosses(eff.losers)
	r.emitOpponentJoins(eff.bothReady)
	r.runMatchmaking()
	r.runRemovals(eff.removals)
}

func (r *Reactor) registerClient(nc newConnEvent) {
	r.clients[nc.id] = &Client{
		ID:     nc.id,
		writer: &connWriter{conn: nc.conn},
		phase:  PhaseLogin,
	}
	r.mailbox.Register(nc.id)
	go runConnection(nc.conn, nc.id, r.mailbox, r.idleTimeout, r.log)
}

func (r *Reactor) handleEvent(c *Client, msg ClientMessage, eff *tickEffects) {
	switch m := msg.(type) {
	case MsgRequestUsername:
		if _, taken := r.names[m.Name]; taken {
			_ = c.writer.SendLogin(protocol.UsernameResult{Success: false, TransactionID: m.Txn})
			return
		}
		r.names[m.Name] = c.ID
		c.username = m.Name
		_ = c.writer.SendLogin(protocol.UsernameResult{Success: true, TransactionID: m.Txn})

	case MsgKeepAlive:
		r.replyKeepAlive(c)

	case MsgAcquireLobby:
		if c.username == "" {
			eff.removals[c.ID] = struct{}{}
			return
		}
		c.phase = PhaseLobby

	case MsgLookForGame:
		c.phase = PhaseLobby
		if !c.looking {
			c.looking = true
			r.looking = append(r.looking, c.ID)
		}

	case MsgAcquireGame:
		c.phase = PhaseGame
		if c.game == nil {
			eff.removals[c.ID] = struct{}{}
			return
		}
		if c.game.markAcquired(c.ID) {
			eff.bothReady = append(eff.bothReady, c.game)
		}

	case MsgPlacePiece:
		r.handlePlacePiece(c, m, eff)

	case MsgSocketDie:
		eff.removals[c.ID] = struct{}{}
	}
}

func (r *Reactor) replyKeepAlive(c *Client) {
	var err error
	switch c.phase {
	case PhaseLogin:
		err = c.writer.SendLogin(protocol.LoginKeepAlive{})
	case PhaseLobby:
		err = c.writer.SendLobby(protocol.LobbyKeepAlive{})
	case PhaseGame:
		err = c.writer.SendGame(protocol.GameKeepAlive{})
	}
	if err != nil {
		r.log.Debug("keep-alive reply failed", zap.Stringer("client", c.ID), zap.Error(err))
	}
}

func (r *Reactor) handlePlacePiece(c *Client, m MsgPlacePiece, eff *tickEffects) {
	if c.game == nil {
		return
	}
	g := c.game
	player := g.playerOf(c.ID)
	switch g.Board.InsertPiece(player, int(m.Column)) {
	case game.Failure:
		return
	case game.Success:
		_ = c.writer.SendGame(protocol.PlacePieceAck{TransactionID: m.Txn})
		eff.opponentPlaced = append(eff.opponentPlaced, placementNotice{to: g.opponentOf(c.ID), column: m.Column})
	case game.Win:
		_ = c.writer.SendGame(protocol.PlacePieceAck{TransactionID: m.Txn})
		_ = c.writer.SendGame(protocol.PlayerWin{Me: true})
		opponent := g.opponentOf(c.ID)
		eff.opponentPlaced = append(eff.opponentPlaced, placementNotice{to: opponent, column: m.Column})
		eff.losers = append(eff.losers, opponent)
		r.destroyGame(g)
	}
}

func (r *Reactor) destroyGame(g *Game) {
	if c, ok := r.clients[g.A]; ok {
		c.game = nil
	}
	if c, ok := r.clients[g.B]; ok {
		c.game = nil
	}
	delete(r.games, g.ID)
}

// emitOpponentPlaced is post-event pass step 1.
func (r *Reactor) emitOpponentPlaced(notices []placementNotice) {
	for _, n := range notices {
		c, ok := r.clients[n.to]
		if !ok {
			continue
		}
		if err := c.writer.SendGame(protocol.OpponentPlacedPiece{Column: n.column}); err != nil {
			r.log.Debug("opponent-placed emit failed", zap.Stringer("client", c.ID), zap.Error(err))
		}
	}
}

// emitLosses is post-event pass step 2.
func (r *Reactor) emitLosses(ids []ClientID) {
	for _, id := range ids {
		c, ok := r.clients[id]
		if !ok {
			continue
		}
		_ = c.writer.SendGame(protocol.PlayerWin{Me: false})
	}
}

// emitOpponentJoins is post-event pass step 3.
func (r *Reactor) emitOpponentJoins(games []*Game) {
	for _, g := range games {
		a, okA := r.clients[g.A]
		b, okB := r.clients[g.B]
		if !okA || !okB {
			continue
		}
		_ = a.writer.SendGame(protocol.OpponentJoin{Username: b.username, IGoFirst: true})
		_ = b.writer.SendGame(protocol.OpponentJoin{Username: a.username, IGoFirst: false})
	}
}

// runMatchmaking is post-event pass step 4: drain the LookingForGame
// queue two at a time in arrival order (the REDESIGN FLAG resolution of
// spec §9's nondeterministic hash-map iteration). A client whose queued
// partner is no longer registered (removed on an earlier tick, e.g.
// disconnected while queued) is requeued rather than dropped, so it isn't
// starved by its partner's bad luck.
func (r *Reactor) runMatchmaking() {
	var next []ClientID
	i := 0
	for i+1 < len(r.looking) {
		aID, bID := r.looking[i], r.looking[i+1]
		i += 2
		a, okA := r.clients[aID]
		b, okB := r.clients[bID]
		switch {
		case okA && okB:
			g := newGame(aID, bID)
			r.games[g.ID] = g
			a.game, b.game = g, g
			a.looking, b.looking = false, false
			_ = a.writer.SendLobby(protocol.GameFound{})
			_ = b.writer.SendLobby(protocol.GameFound{})
		case okA:
			next = append(next, aID)
		case okB:
			next = append(next, bID)
		}
	}
	if i < len(r.looking) {
		next = append(next, r.looking[i])
	}
	r.looking = next
}

// runRemovals is post-event pass step 5.
func (r *Reactor) runRemovals(removals map[ClientID]struct{}) {
	for id := range removals {
		c, ok := r.clients[id]
		if !ok {
			continue
		}
		if c.username != "" {
			delete(r.names, c.username)
		}
		if c.game != nil {
			peerID := c.game.opponentOf(id)
			if _, peerAlsoRemoved := removals[peerID]; !peerAlsoRemoved {
				if peer, ok := r.clients[peerID]; ok {
					_ = peer.writer.SendGame(protocol.EarlyExit{})
					peer.game = nil
				}
			}
			delete(r.games, c.game.ID)
		}
		c.writer.Close()
		delete(r.clients, id)
		r.mailbox.Unregister(id)
	}
}
