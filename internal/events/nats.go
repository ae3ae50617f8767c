package events

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const subjectPrefix = "notifications."

// NATSFeed carries change signals between service instances over NATS
type NATSFeed struct {
	conn *nats.Conn
}

// ConnectNATS dials url and returns a feed that owns the connection.
func ConnectNATS(url, clientName string) (*NATSFeed, error) {
	nc, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
	return &NATSFeed{conn: nc}, nil
}

// Subject maps a topic to a NATS subject. Usernames may contain characters
// that are not valid in subject tokens, so the topic is encoded.
func Subject(topic string) string {
	return subjectPrefix + base64.RawURLEncoding.EncodeToString([]byte(topic))
}

// Publish signals subscribers of topic on every instance
func (f *NATSFeed) Publish(_ context.Context, topic string) error {
	if err := f.conn.Publish(Subject(topic), nil); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

type natsSub struct {
	*signal
	sub *nats.Subscription
}

func (s *natsSub) Updates() <-chan struct{} { return s.ch }

func (s *natsSub) Unsubscribe() error {
	if !s.close() {
		return nil
	}
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

// Subscribe registers interest in topic
func (f *NATSFeed) Subscribe(topic string) (Subscription, error) {
	sig := newSignal()
	sub, err := f.conn.Subscribe(Subject(topic), func(*nats.Msg) {
		sig.notify()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return &natsSub{signal: sig, sub: sub}, nil
}

// Close drains and closes the connection
func (f *NATSFeed) Close() {
	if err := f.conn.Drain(); err != nil {
		f.conn.Close()
	}
}
