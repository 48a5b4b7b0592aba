package queue

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) (addr string, accepted *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
		n     atomic.Int32
	)
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			n.Add(1)
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	return ln.Addr().String(), &n
}

func TestPublishGivesUpOnSilentBroker(t *testing.T) {
	addr, accepted := silentBroker(t)
	p := NewAMQPPublisher("amqp://guest:guest@"+addr+"/", nil)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	require.Error(t, p.PublishBooking(ctx, NewBookingEvent(BookingRequested, 1, 1, "PENDING")))
	require.Less(t, time.Since(start), 2*time.Second)
	require.Eventually(t, func() bool { return accepted.Load() == 1 }, time.Second, 10*time.Millisecond)

	// later publishes fail fast instead of queueing behind another dial
	start = time.Now()
	err := p.PublishBooking(context.Background(), NewBookingEvent(BookingPaid, 1, 1, "PAID"))
	require.ErrorIs(t, err, ErrBrokerDown)
	require.Less(t, time.Since(start), 100*time.Millisecond)
	require.Equal(t, int32(1), accepted.Load())
}
