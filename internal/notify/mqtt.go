// Package notify fans security events out to an MQTT broker.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/service"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/types"
)

type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close()
}

var errNotConnected = errors.New("not connected to MQTT broker")

type mqttPublisher struct {
	client         mqtt.Client
	publishTimeout time.Duration
	log            zerolog.Logger
}

// DialMQTT connects to the broker and returns a Publisher. The client
// reconnects on its own after the first successful connect.
func DialMQTT(cfg Config, logger zerolog.Logger) (Publisher, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	log := logger.With().Str("component", "mqtt").Str("broker", cfg.Broker).Logger()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Msg("connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	return &mqttPublisher{client: client, publishTimeout: cfg.PublishTimeout, log: log}, nil
}

func (p *mqttPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if !p.client.IsConnected() {
		return errNotConnected
	}
	token := p.client.Publish(topic, 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.publishTimeout):
		return fmt.Errorf("publish %s: timeout", topic)
	}
}

func (p *mqttPublisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// SecurityEvents publishes each new security log as JSON to
// <prefix>/security/<type>. Failures are logged and dropped.
type SecurityEvents struct {
	pub    Publisher
	prefix string
	log    zerolog.Logger
}

func NewSecurityEvents(pub Publisher, topicPrefix string, logger zerolog.Logger) *SecurityEvents {
	return &SecurityEvents{
		pub:    pub,
		prefix: strings.Trim(topicPrefix, "/"),
		log:    logger.With().Str("component", "notify").Logger(),
	}
}

// Topic returns the topic an entry of type t is published to.
func Topic(prefix string, t types.LogType) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "security/" + string(t)
	}
	return prefix + "/security/" + string(t)
}

func (s *SecurityEvents) SecurityLogCreated(ctx context.Context, entry types.SecurityLog) {
	payload, err := json.Marshal(entry)
	if err != nil {
		s.log.Error().Err(err).Str("id", entry.ID).Msg("encode security event")
		return
	}
	topic := Topic(s.prefix, entry.Type)
	if err := s.pub.Publish(ctx, topic, payload); err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Str("id", entry.ID).Msg("security event not published")
		return
	}
	s.log.Debug().Str("topic", topic).Str("id", entry.ID).Msg("security event published")
}

var _ service.Notifier = (*SecurityEvents)(nil)
