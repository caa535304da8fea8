// Package natsserver provides the embedded NATS server that carries borrow events
package natsserver

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// RandomPort asks the server to pick a free port
const RandomPort = server.RANDOM_PORT

// EmbeddedNATS wraps an embedded NATS server with a client connection
type EmbeddedNATS struct {
	server    *server.Server
	conn      *nats.Conn
	published uint64
	failed    uint64
}

// Config holds configuration for the embedded NATS server
type Config struct {
	Host            string
	Port            int   // RandomPort picks a free one
	MaxPayload      int32 // Max message size in bytes
	MaxPendingBytes int64 // Max pending bytes per slow consumer
}

// DefaultConfig returns sensible defaults for event traffic
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            4233,
		MaxPayload:      1024 * 1024,
		MaxPendingBytes: 16 * 1024 * 1024,
	}
}

// New creates and starts an embedded NATS server
func New(cfg Config) (*EmbeddedNATS, error) {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = def.MaxPayload
	}
	if cfg.MaxPendingBytes <= 0 {
		cfg.MaxPendingBytes = def.MaxPendingBytes
	}

	opts := &server.Options{
		Host:          cfg.Host,
		Port:          cfg.Port,
		NoLog:         true,
		NoSigs:        true,
		MaxPayload:    cfg.MaxPayload,
		WriteDeadline: 10 * time.Second,
		// Memory protection: disconnect slow consumers
		MaxPending: cfg.MaxPendingBytes,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	// Start server in background
	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready after 5 seconds")
	}

	// Internal client connection used by the API process itself
	nc, err := nats.Connect(
		ns.ClientURL(),
		nats.Name("library-internal"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	log.Info().Str("url", ns.ClientURL()).Msg("📡 Embedded NATS server started")

	return &EmbeddedNATS{
		server: ns,
		conn:   nc,
	}, nil
}

// Publish publishes a message to a subject
func (e *EmbeddedNATS) Publish(subject string, data []byte) error {
	if err := e.conn.Publish(subject, data); err != nil {
		atomic.AddUint64(&e.failed, 1)
		return err
	}
	atomic.AddUint64(&e.published, 1)
	return nil
}

// Subscribe subscribes to a subject
func (e *EmbeddedNATS) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return e.conn.Subscribe(subject, handler)
}

// Flush waits until the server has processed everything published so far
func (e *EmbeddedNATS) Flush() error {
	return e.conn.Flush()
}

// Conn returns the underlying NATS connection
func (e *EmbeddedNATS) Conn() *nats.Conn {
	return e.conn
}

// Address returns the client URL other processes connect to
func (e *EmbeddedNATS) Address() string {
	return e.server.ClientURL()
}

// Stats holds NATS server statistics
type Stats struct {
	URL           string `json:"url"`
	Clients       int    `json:"clients"`
	Subscriptions uint32 `json:"subscriptions"`
	Published     uint64 `json:"published"`
	Failed        uint64 `json:"failed"`
	InMsgs        int64  `json:"inMsgs"`
	OutMsgs       int64  `json:"outMsgs"`
	SlowConsumers int64  `json:"slowConsumers"`
}

// GetStats returns current server statistics
func (e *EmbeddedNATS) GetStats() Stats {
	stats := Stats{
		URL:           e.server.ClientURL(),
		Clients:       e.server.NumClients(),
		Subscriptions: e.server.NumSubscriptions(),
		Published:     atomic.LoadUint64(&e.published),
		Failed:        atomic.LoadUint64(&e.failed),
	}
	if varz, err := e.server.Varz(nil); err == nil && varz != nil {
		stats.InMsgs = varz.InMsgs
		stats.OutMsgs = varz.OutMsgs
		stats.SlowConsumers = varz.SlowConsumers
	}
	return stats
}

// Shutdown gracefully shuts down the NATS server
func (e *EmbeddedNATS) Shutdown() {
	if e.conn != nil {
		e.conn.Close()
	}
	if e.server != nil {
		e.server.Shutdown()
	}
	log.Info().Msg("📡 NATS server shut down")
}
