// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

//go:build nats

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/aegis/internal/audit"
	"github.com/tomtom215/aegis/internal/config"
	"github.com/tomtom215/aegis/internal/logging"
)

// NATSComponents holds the audit publishing pipeline: an embedded or
// external JetStream server, the client connection and the publisher
// that drains the audit queue onto it.
type NATSComponents struct {
	server    *natsserver.Server
	conn      *natsgo.Conn
	publisher *audit.Publisher

	shutdownComplete chan struct{}
	mu               sync.Mutex
	running          bool
	stopped          bool
}

// InitNATS starts audit event publishing when NATS_ENABLED=true. With
// NATS_EMBEDDED=true a JetStream server runs in-process; otherwise the
// configured external server is used. Returns nil components when
// publishing is disabled.
func InitNATS(ctx context.Context, cfg *config.Config) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS audit publishing disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	logging.Info().Msg("Initializing NATS audit publishing...")

	components := &NATSComponents{
		shutdownComplete: make(chan struct{}),
	}

	var natsURL string
	if cfg.NATS.EmbeddedServer {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		components.server = ns
		natsURL = ns.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server listening")
	} else {
		natsURL = cfg.NATS.URL
		logging.Info().Str("url", natsURL).Msg("Connecting to external NATS server")
	}

	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("dial NATS at %s: %w", natsURL, err)
	}
	components.conn = nc
	logging.Info().Msg("NATS client connected")

	js, err := jetstream.New(nc)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("open JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     audit.StreamName,
		Subjects: []string{audit.SubjectWildcard},
		MaxAge:   time.Duration(cfg.NATS.RetentionDays) * 24 * time.Hour,
	})
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure audit stream: %w", err)
	}
	info := stream.CachedInfo()
	logging.Info().
		Str("name", info.Config.Name).
		Strs("subjects", info.Config.Subjects).
		Dur("max_age", info.Config.MaxAge).
		Msg("JetStream audit stream ready")

	publisher, err := audit.NewPublisher(audit.DefaultPublisherConfig(natsURL), nil)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create audit publisher: %w", err)
	}
	publisher.SetCircuitBreaker(audit.NewCircuitBreaker(audit.DefaultCircuitBreakerConfig("audit-publisher")))
	components.publisher = publisher

	components.mu.Lock()
	components.running = true
	components.mu.Unlock()

	logging.Info().Msg("NATS audit publishing initialized")
	return components, nil
}

// startEmbeddedServer runs a JetStream-enabled NATS server in-process
// for single-instance deployments. Server logs are suppressed so
// zerolog owns process output.
func startEmbeddedServer(cfg *config.Config) (*natsserver.Server, error) {
	opts := &natsserver.Options{
		ServerName:         "aegis-audit",
		Host:               "127.0.0.1",
		Port:               4222,
		JetStream:          true,
		StoreDir:           cfg.NATS.StoreDir,
		JetStreamMaxMemory: cfg.NATS.MaxMemory,
		JetStreamMaxStore:  cfg.NATS.MaxStore,
		NoLog:              true,
		MaxPayload:         1024 * 1024,
	}

	ns, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("build embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready after 30s")
	}
	return ns, nil
}

// Publisher returns the audit publisher for notifier wiring. Nil until
// InitNATS has run with publishing enabled.
func (c *NATSComponents) Publisher() *audit.Publisher {
	if c == nil {
		return nil
	}
	return c.publisher
}

// Shutdown stops the publishing pipeline. Gated on a stopped flag
// rather than running so partially initialized components are still
// cleaned up when InitNATS fails midway.
//
// Shutdown order:
//  1. Close the publisher, dropping its queue
//  2. Close the NATS connection
//  3. Stop the embedded server last
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.running = false
	c.mu.Unlock()

	logging.Info().Msg("Stopping NATS audit publishing...")

	c.shutdownPublisher()
	c.shutdownConnection(ctx)

	// Nil on a zero-value struct; InitNATS always sets it.
	if c.shutdownComplete != nil {
		close(c.shutdownComplete)
	}
	logging.Info().Msg("NATS audit publishing stopped")
}

func (c *NATSComponents) shutdownPublisher() {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing audit publisher")
	}
	logging.Info().Msg("Audit publisher closed")
}

func (c *NATSComponents) shutdownConnection(ctx context.Context) {
	if c.conn != nil {
		c.conn.Close()
		logging.Info().Msg("NATS client connection closed")
	}
	if c.server == nil {
		return
	}
	c.server.Shutdown()
	done := make(chan struct{})
	go func() {
		c.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-done:
		logging.Info().Msg("Embedded NATS server shut down")
	case <-ctx.Done():
		logging.Warn().Msg("Timed out waiting for embedded NATS server to stop")
	}
}

// IsRunning reports whether the publishing pipeline is active.
func (c *NATSComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
