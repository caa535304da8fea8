package natsserver

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func givenServer(t *testing.T) *EmbeddedNATS {
	t.Helper()
	ns, err := New(Config{Host: "127.0.0.1", Port: RandomPort})
	require.NoError(t, err, "error in starting embedded NATS")
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestPublishSubscribe(t *testing.T) {
	ns := givenServer(t)

	received := make(chan *nats.Msg, 1)
	_, err := ns.Subscribe("library.borrows.>", func(msg *nats.Msg) {
		received <- msg
	})
	require.NoError(t, err)
	require.NoError(t, ns.Flush())

	require.NoError(t, ns.Publish("library.borrows.approved", []byte(`{"borrowId":1}`)))

	select {
	case msg := <-received:
		assert.Equal(t, "library.borrows.approved", msg.Subject)
		assert.JSONEq(t, `{"borrowId":1}`, string(msg.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	stats := ns.GetStats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Zero(t, stats.Failed)
	assert.GreaterOrEqual(t, stats.Clients, 1)
}

func TestExternalClientConnects(t *testing.T) {
	ns := givenServer(t)

	nc, err := nats.Connect(ns.Address())
	require.NoError(t, err)
	defer nc.Close()

	assert.True(t, nc.IsConnected())
}
