package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/StoreStation/VibeShitCraft/internal/idgen"
)

// Config holds the server's external interface knobs (§6).
type Config struct {
	// Address is the TCP address to listen on, e.g. "0.0.0.0:3000".
	Address string
	// IdleTimeout, when non-zero, is applied as a per-connection read
	// deadline before every packet decode. Zero (the default) disables
	// it, matching spec §9's "no keep-alive timeout is enforced"
	// baseline; see SPEC_FULL.md SUPPLEMENTED FEATURES #7.
	IdleTimeout time.Duration
	// NewConnBacklog bounds how many accepted connections may queue in
	// the mailbox before the accept loop blocks.
	NewConnBacklog int
}

// DefaultConfig returns the default external interface: a TCP listener on
// 0.0.0.0:3000, with no enforced idle timeout.
func DefaultConfig() Config {
	return Config{
		Address:        "0.0.0.0:3000",
		IdleTimeout:    0,
		NewConnBacklog: 64,
	}
}

// Server owns the listener, the mailbox, and the reactor, and wires them
// together for the lifetime of the process.
type Server struct {
	config  Config
	log     *zap.Logger
	mailbox *Mailbox
	reactor *Reactor
}

// New constructs a Server; it does not yet listen.
func New(config Config, log *zap.Logger) *Server {
	mailbox := NewMailbox(config.NewConnBacklog)
	return &Server{
		config:  config,
		log:     log,
		mailbox: mailbox,
		reactor: NewReactor(mailbox, config.IdleTimeout, log),
	}
}

// Run listens on config.Address and drives the accept loop and the
// reactor until ctx is cancelled or either one fails fatally. An
// errgroup ties the two together: a fatal error on either side cancels
// the other via the shared context (§7 "Listener failure / reactor
// channel closed: fatal to the whole server process").
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.config.Address, err)
	}
	s.log.Info("listening", zap.String("address", s.config.Address))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})
	g.Go(func() error {
		return s.acceptLoop(listener)
	})
	g.Go(func() error {
		err := s.reactor.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if errors.Is(err, ErrDeadListener) && ctx.Err() != nil {
			// The accept loop tore down the mailbox as part of an
			// already-in-progress shutdown; not a fresh failure.
			return nil
		}
		return err
	})

	return g.Wait()
}

func (s *Server) acceptLoop(listener net.Listener) error {
	defer s.mailbox.CloseNewConns()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		id := idgen.New()
		s.log.Debug("accepted connection", zap.String("remote", conn.RemoteAddr().String()), zap.Stringer("client", id))
		s.mailbox.SubmitConn(id, conn)
	}
}
