// Package mqtt subscribes to bracelet position samples published over
// MQTT and feeds them into geofence evaluation.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"safeband/internal/geofence/models"
	"safeband/internal/geofence/service"
	"safeband/internal/platform/config"
	id "safeband/pkg/domain"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds, paho API takes uint
)

// Evaluator is the slice of the geofence service the source needs.
type Evaluator interface {
	EvaluateAll(ctx context.Context, profileID id.ProfileID, position models.Position) ([]*service.PositionResult, error)
}

// sample is the JSON payload a bracelet publishes per position fix.
type sample struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Source consumes position samples from an MQTT broker. Topics follow
// safeband/positions/{profileID}; the wildcard subscription covers all
// tracked profiles.
type Source struct {
	cfg       config.MQTTConfig
	evaluator Evaluator
	logger    *slog.Logger
	client    pahomqtt.Client
}

// NewSource constructs an MQTT position source.
func NewSource(cfg config.MQTTConfig, evaluator Evaluator, logger *slog.Logger) *Source {
	return &Source{cfg: cfg, evaluator: evaluator, logger: logger}
}

// Run connects, subscribes, and blocks until the context is canceled.
// The paho client reconnects and resubscribes on its own after broker
// hiccups.
func (s *Source) Run(ctx context.Context) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetUsername(s.cfg.Username).
		SetPassword(s.cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(func(client pahomqtt.Client) {
			if token := client.Subscribe(s.cfg.Topic, 1, s.handleMessage(ctx)); token.Wait() && token.Error() != nil {
				s.logger.Error("mqtt subscribe failed", "topic", s.cfg.Topic, "error", token.Error())
				return
			}
			s.logger.Info("mqtt position source subscribed", "topic", s.cfg.Topic)
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			s.logger.Warn("mqtt connection lost", "error", err)
		})

	s.client = pahomqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}

	<-ctx.Done()
	s.client.Disconnect(disconnectQuiesce)
	return ctx.Err()
}

// handleMessage parses one published sample and runs it through every
// zone of the profile. Malformed samples are logged and dropped; a bad
// publisher must not take down the source.
func (s *Source) handleMessage(ctx context.Context) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		profileID, err := profileFromTopic(msg.Topic())
		if err != nil {
			s.logger.Warn("mqtt sample on unexpected topic", "topic", msg.Topic(), "error", err)
			return
		}

		var payload sample
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			s.logger.Warn("malformed mqtt sample", "topic", msg.Topic(), "error", err)
			return
		}
		if payload.Timestamp.IsZero() {
			payload.Timestamp = time.Now()
		}

		position := models.Position{
			LatLng:    models.LatLng{Lat: payload.Lat, Lng: payload.Lng},
			Timestamp: payload.Timestamp,
		}
		if _, err := s.evaluator.EvaluateAll(ctx, profileID, position); err != nil {
			s.logger.Error("position evaluation failed",
				"profile_id", profileID,
				"error", err,
			)
		}
	}
}

// profileFromTopic extracts the profile ID from the final topic segment.
func profileFromTopic(topic string) (id.ProfileID, error) {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return id.ProfileID{}, fmt.Errorf("topic %q carries no profile segment", topic)
	}
	return id.ParseProfileID(topic[idx+1:])
}
