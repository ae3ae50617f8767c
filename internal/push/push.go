// Package push delivers alert notifications to a user's device.
package push

import (
	"context"
	"errors"
	"fmt"

	"picturegram-sync/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// ErrNoDevice is returned when the recipient never registered a device.
var ErrNoDevice = errors.New("recipient has no registered device")

// DeviceDirectory resolves a username to its account
type DeviceDirectory interface {
	GetByName(ctx context.Context, name string) (*models.User, error)
}

// APNsConfig holds the token-based APNs credentials
type APNsConfig struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// APNsGateway sends alerts through Apple Push Notification service
type APNsGateway struct {
	devices DeviceDirectory
	topic   string
	send    func(ctx context.Context, n *apns2.Notification) (*apns2.Response, error)
}

// NewAPNsGateway loads the signing key and builds a token client.
func NewAPNsGateway(cfg APNsConfig, devices DeviceDirectory) (*APNsGateway, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsGateway{
		devices: devices,
		topic:   cfg.Topic,
		send: func(ctx context.Context, n *apns2.Notification) (*apns2.Response, error) {
			return client.PushWithContext(ctx, n)
		},
	}, nil
}

// ShowLocalNotification pushes an alert to the recipient's registered device.
func (g *APNsGateway) ShowLocalNotification(ctx context.Context, recipient, title, body string) error {
	user, err := g.devices.GetByName(ctx, recipient)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}
	if user.PushToken == nil || *user.PushToken == "" {
		return ErrNoDevice
	}

	n := &apns2.Notification{
		DeviceToken: *user.PushToken,
		Topic:       g.topic,
		Payload:     payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default"),
	}

	res, err := g.send(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %d %s", res.StatusCode, res.Reason)
	}

	log.Debug().
		Str("recipient", recipient).
		Str("apns_id", res.ApnsID).
		Msg("Push delivered")
	return nil
}

// LogGateway only logs alerts. It is used when APNs is not configured.
type LogGateway struct{}

func (LogGateway) ShowLocalNotification(_ context.Context, recipient, title, body string) error {
	log.Info().
		Str("recipient", recipient).
		Str("title", title).
		Str("body", body).
		Msg("Push notification")
	return nil
}
