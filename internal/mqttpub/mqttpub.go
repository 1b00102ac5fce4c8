// Package mqttpub publishes converted bus transactions to an MQTT broker so
// captures can be followed from a dashboard while they are processed.
package mqttpub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"
)

// Config for a Publisher.
type Config struct {
	// Broker address as host:port. Only used by Dial.
	Broker   string
	ClientID string
	Topic    string
	// Timeout bounds the connection handshake. Defaults to 5s.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Publisher sends QoS 0 messages to a single topic.
type Publisher struct {
	client *mqtt.Client
	rwc    io.ReadWriteCloser
	flags  mqtt.PacketFlags
	vars   mqtt.VariablesPublish
	logger *slog.Logger
}

var errNoTopic = errors.New("mqttpub: empty topic")

// Dial connects to cfg.Broker over TCP and performs the MQTT handshake.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Broker)
	if err != nil {
		return nil, err
	}
	p, err := New(ctx, conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

// New performs the MQTT handshake over an established transport.
func New(ctx context.Context, rwc io.ReadWriteCloser, cfg Config) (*Publisher, error) {
	if cfg.Topic == "" {
		return nil, errNoTopic
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	flags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return nil, err
	}
	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1500)},
		OnPub: func(_ mqtt.Header, varPub mqtt.VariablesPublish, _ io.Reader) error {
			logger.Debug("mqtt:unexpected-publish", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	})
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(cfg.ClientID))
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	logger.Debug("mqtt:start-connecting", slog.String("client", cfg.ClientID))
	if err = client.Connect(ctx, rwc, &varconn); err != nil {
		return nil, err
	}
	logger.Info("mqtt:connected", slog.String("topic", cfg.Topic))
	return &Publisher{
		client: client,
		rwc:    rwc,
		flags:  flags,
		vars:   mqtt.VariablesPublish{TopicName: []byte(cfg.Topic)},
		logger: logger,
	}, nil
}

// Publish sends payload to the configured topic.
func (p *Publisher) Publish(payload []byte) error {
	p.vars.PacketIdentifier++
	err := p.client.PublishPayload(p.flags, p.vars, payload)
	if err != nil {
		p.logger.Error("mqtt:publish-failed", slog.Any("reason", err))
	}
	return err
}

// Close disconnects from the broker and closes the transport.
func (p *Publisher) Close() error {
	err := p.client.Disconnect(errors.New("mqttpub: closed"))
	cerr := p.rwc.Close()
	if err != nil {
		return err
	}
	return cerr
}
