package server

import (
	"context"
	"errors"
	"net"
	"sync"
)

// ErrDeadListener is returned by Mailbox.Wait once the new-connection
// channel has been permanently closed (§4.3).
var ErrDeadListener = errors.New("server: new-connection channel closed")

type event struct {
	client ClientID
	msg    ClientMessage
}

type newConnEvent struct {
	id   ClientID
	conn net.Conn
}

// Batch is everything a single reactor tick has to process: at most one
// event per client that had one ready, plus every connection accepted
// since the previous tick.
type Batch struct {
	Events   []event
	NewConns []newConnEvent
}

// Mailbox multiplexes new connections and per-client parsed events into
// the batches the reactor consumes one tick at a time (§4.3). Each
// client gets its own buffered channel so a single chatty connection
// cannot make the reactor skip over another client's event within one
// drain pass; wake() is a level-triggered nudge rather than a full
// fan-in select, which keeps the implementation free of a dynamic
// reflect.Select over an ever-changing client set.
type Mailbox struct {
	newConns     chan newConnEvent
	listenerDead bool
	notify       chan struct{}

	mu      sync.RWMutex
	clients map[ClientID]chan event
}

// NewMailbox returns an empty Mailbox. newConnBacklog bounds how many
// accepted connections may queue before the accept loop blocks.
func NewMailbox(newConnBacklog int) *Mailbox {
	return &Mailbox{
		newConns: make(chan newConnEvent, newConnBacklog),
		notify:   make(chan struct{}, 1),
		clients:  make(map[ClientID]chan event),
	}
}

// Register creates the inbound channel for a newly accepted client. Must
// be called by the reactor before that client's reader goroutine starts
// posting.
func (m *Mailbox) Register(id ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[id] = make(chan event, 16)
}

// Unregister drops a client's channel once the reactor has finished
// tearing it down.
func (m *Mailbox) Unregister(id ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
}

func (m *Mailbox) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// SubmitConn hands a freshly accepted connection to the reactor.
func (m *Mailbox) SubmitConn(id ClientID, conn net.Conn) {
	m.newConns <- newConnEvent{id: id, conn: conn}
	m.wake()
}

// CloseNewConns permanently closes the new-connection channel; the next
// Wait call observes ErrDeadListener once it has been fully drained.
func (m *Mailbox) CloseNewConns() {
	close(m.newConns)
	m.wake()
}

// Post delivers one client-originated message. Posting after the client
// has been unregistered is a silent no-op: the reactor has already
// decided this client no longer exists.
func (m *Mailbox) Post(id ClientID, msg ClientMessage) {
	m.mu.RLock()
	ch, ok := m.clients[id]
	m.mu.RUnlock()
	if !ok {
		return
	}
	ch <- event{client: id, msg: msg}
	m.wake()
}

// Wait blocks until at least one event is available, then returns
// everything currently available: every queued new connection, plus at
// most one event per client that had one ready (§4.3).
func (m *Mailbox) Wait(ctx context.Context) (Batch, error) {
	for {
		batch, dead := m.drain()
		if dead {
			return batch, ErrDeadListener
		}
		if len(batch.Events) > 0 || len(batch.NewConns) > 0 {
			return batch, nil
		}
		select {
		case <-m.notify:
		case <-ctx.Done():
			return Batch{}, ctx.Err()
		}
	}
}

func (m *Mailbox) drain() (Batch, bool) {
	var batch Batch
	for {
		select {
		case nc, ok := <-m.newConns:
			if !ok {
				return batch, true
			}
			batch.NewConns = append(batch.NewConns, nc)
			continue
		default:
		}
		break
	}

	m.mu.RLock()
	chans := make(map[ClientID]chan event, len(m.clients))
	for id, ch := range m.clients {
		chans[id] = ch
	}
	m.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ev := <-ch:
			batch.Events = append(batch.Events, ev)
		default:
		}
	}
	return batch, false
}
