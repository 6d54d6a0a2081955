package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxWaitBlocksUntilPosted(t *testing.T) {
	m := NewMailbox(4)
	id := uuid.New()
	m.Register(id)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan Batch, 1)
	go func() {
		batch, err := m.Wait(context.Background())
		require.NoError(t, err)
		done <- batch
	}()

	// Give Wait a chance to block before anything is posted.
	time.Sleep(20 * time.Millisecond)
	m.Post(id, MsgKeepAlive{})

	select {
	case batch := <-done:
		require.Len(t, batch.Events, 1)
		assert.Equal(t, id, batch.Events[0].client)
		assert.Equal(t, MsgKeepAlive{}, batch.Events[0].msg)
	case <-ctx.Done():
		t.Fatal("Wait did not return after Post")
	}
}

func TestMailboxDrainsAtMostOneEventPerClientPerBatch(t *testing.T) {
	m := NewMailbox(4)
	id := uuid.New()
	m.Register(id)

	m.Post(id, MsgKeepAlive{})
	m.Post(id, MsgLookForGame{})

	batch, err := m.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Events, 1)
	assert.Equal(t, MsgKeepAlive{}, batch.Events[0].msg)

	// The second posted message is still queued for the next tick.
	batch, err = m.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Events, 1)
	assert.Equal(t, MsgLookForGame{}, batch.Events[0].msg)
}

func TestMailboxBatchesAcrossMultipleClients(t *testing.T) {
	m := NewMailbox(4)
	a, b := uuid.New(), uuid.New()
	m.Register(a)
	m.Register(b)

	m.Post(a, MsgKeepAlive{})
	m.Post(b, MsgKeepAlive{})

	batch, err := m.Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch.Events, 2)
}

func TestMailboxPostAfterUnregisterIsSilentNoOp(t *testing.T) {
	m := NewMailbox(4)
	id := uuid.New()
	m.Register(id)
	m.Unregister(id)

	assert.NotPanics(t, func() { m.Post(id, MsgKeepAlive{}) })
}

func TestMailboxSubmitConnIsDeliveredAsNewConn(t *testing.T) {
	m := NewMailbox(4)
	serverSide, testSide := net.Pipe()
	defer testSide.Close()
	id := uuid.New()

	m.SubmitConn(id, serverSide)

	batch, err := m.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.NewConns, 1)
	assert.Equal(t, id, batch.NewConns[0].id)
}

func TestMailboxCloseNewConnsReportsDeadListener(t *testing.T) {
	m := NewMailbox(4)
	m.CloseNewConns()

	_, err := m.Wait(context.Background())
	assert.True(t, errors.Is(err, ErrDeadListener))
}

func TestMailboxWaitRespectsContextCancellation(t *testing.T) {
	m := NewMailbox(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Wait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
