package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"vehiclepush/internal/config"
	"vehiclepush/internal/logger"
	"vehiclepush/internal/parser"
	apperrors "vehiclepush/pkg/errors"
	"vehiclepush/pkg/metrics"
	"vehiclepush/pkg/retry"
)

const mqttDisconnectQuiesce = 250 // ms

// MQTTSubscriber receives pushes published as JSON objects with the push
// field names (title, type, message, time).
type MQTTSubscriber struct {
	cfg     config.MQTTConfig
	handler Handler
	client  mqtt.Client
	logger  logger.Logger

	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

func NewMQTTSubscriber(cfg config.MQTTConfig, h Handler, log logger.Logger) *MQTTSubscriber {
	s := &MQTTSubscriber{
		cfg:     cfg,
		handler: h,
		logger:  log.Named("mqtt-ingest"),
	}

	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetOrderMatters(false).
		SetCleanSession(false).
		SetKeepAlive(keepAlive).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.OnConnect = func(c mqtt.Client) {
		token := c.Subscribe(cfg.Topic, cfg.QoS, s.onMessage)
		if token.Wait() && token.Error() != nil {
			s.logger.Errorw("MQTT subscribe failed", "topic", cfg.Topic, "error", token.Error())
			return
		}
		s.logger.Infow("Subscribed to MQTT topic", "topic", cfg.Topic, "qos", cfg.QoS)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.logger.Warnw("MQTT connection lost", "error", err)
	}

	s.client = mqtt.NewClient(opts)
	return s
}

// Connect dials the broker with exponential backoff. It gives up when the
// policy is exhausted or ctx is cancelled.
func (s *MQTTSubscriber) Connect(ctx context.Context) error {
	err := retry.RetryWithCallback(ctx, connectPolicy(s.cfg.Connect), func() error {
		token := s.client.Connect()
		token.Wait()
		err := token.Error()
		if errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) || errors.Is(err, packets.ErrorRefusedNotAuthorised) {
			return retry.NewFatalError(err)
		}
		return err
	}, func(attempt int, err error, next time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues("mqtt_connect").Inc()
		s.logger.Warnw("MQTT connect failed, retrying",
			"broker", s.cfg.BrokerURL,
			"attempt", attempt,
			"next_delay", next,
			"error", err,
		)
	})
	if err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", s.cfg.BrokerURL, err)
	}
	s.logger.Infow("Connected to MQTT broker", "broker", s.cfg.BrokerURL)
	return nil
}

// Close stops delivery and waits for messages already being handled, so
// nothing reaches the pipeline once it returns.
func (s *MQTTSubscriber) Close() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	if s.client.IsConnected() {
		s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(time.Second)
	}
	s.client.Disconnect(mqttDisconnectQuiesce)
	s.inflight.Wait()
}

func (s *MQTTSubscriber) onMessage(_ mqtt.Client, m mqtt.Message) {
	s.deliver(m.Topic(), m.Payload())
}

func (s *MQTTSubscriber) deliver(topic string, payload []byte) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.logger.Debugw("Dropping MQTT message received during shutdown", "topic", topic)
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	_ = s.HandlePayload(context.Background(), topic, payload)
}

// HandlePayload runs one MQTT payload through the pipeline. Panics are
// recovered and reported as errors.
func (s *MQTTSubscriber) HandlePayload(ctx context.Context, topic string, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.RecoverPanic(r)
			metrics.MQTTMessagesTotal.WithLabelValues("panic").Inc()
			s.logger.Errorw("Recovered panic while handling MQTT message", "topic", topic, "error", err)
		}
	}()

	var raw parser.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		metrics.MQTTMessagesTotal.WithLabelValues("rejected").Inc()
		s.logger.Warnw("Undecodable MQTT payload", "topic", topic, "error", err)
		return apperrors.ErrValidation.WithMessage("invalid mqtt payload").WithCause(err)
	}
	raw.Origin = originMQTT + topic

	if _, err := s.handler.Handle(ctx, raw); err != nil {
		status := "error"
		if apperrors.IsFatal(err) {
			status = "rejected"
		}
		metrics.MQTTMessagesTotal.WithLabelValues(status).Inc()
		return err
	}
	metrics.MQTTMessagesTotal.WithLabelValues("ok").Inc()
	return nil
}

func connectPolicy(cfg config.RetryConfig) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		p.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		p.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		p.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return p
}

func (s *MQTTSubscriber) IsConnectionOpen() bool {
	return s.client.IsConnectionOpen()
}
