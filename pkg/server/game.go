package server

import (
	"time"

	"github.com/StoreStation/VibeShitCraft/internal/idgen"
	"github.com/StoreStation/VibeShitCraft/pkg/game"
)

// GameID identifies one session-level Game record.
type GameID = ClientID

// Game is the server's view of one in-progress match: the two
// participants, the authoritative board, and the acquire-flags that gate
// delivery of OpponentJoin. It is a plain value reachable only from the
// single-writer reactor, so no lock is needed.
type Game struct {
	ID        GameID
	A, B      ClientID
	Board     *game.Board
	StartedAt time.Time
	AcquiredA bool
	AcquiredB bool
}

// newGame seats a as player 1 (moves first) and b as player 2.
func newGame(a, b ClientID) *Game {
	return &Game{
		ID:        idgen.New(),
		A:         a,
		B:         b,
		Board:     game.NewBoard(),
		StartedAt: time.Now(),
	}
}

// playerOf returns which board player the given ClientID is seated as,
// or 0 if the id is not a participant in this game.
func (g *Game) playerOf(id ClientID) game.Player {
	switch id {
	case g.A:
		return 1
	case g.B:
		return 2
	default:
		return 0
	}
}

// opponentOf returns the other participant's ClientID.
func (g *Game) opponentOf(id ClientID) ClientID {
	if id == g.A {
		return g.B
	}
	return g.A
}

// markAcquired sets the acquire-flag for id and reports whether both
// participants have now acknowledged Game phase.
func (g *Game) markAcquired(id ClientID) bool {
	if id == g.A {
		g.AcquiredA = true
	} else if id == g.B {
		g.AcquiredB = true
	}
	return g.AcquiredA && g.AcquiredB
}
