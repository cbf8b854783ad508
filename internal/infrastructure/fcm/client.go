package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const channelID = "archon_alerts"

// Config selects the service account used for messaging. When both fields
// are empty the client is created disabled.
type Config struct {
	CredentialsPath string
	CredentialsJSON string
}

type Client struct {
	client *messaging.Client
	log    *zap.Logger
}

// NewClient initializes the Firebase Cloud Messaging client.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var opt option.ClientOption
	switch {
	case cfg.CredentialsPath != "":
		opt = option.WithCredentialsFile(cfg.CredentialsPath)
	case cfg.CredentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	default:
		log.Warn("no firebase credentials configured, push alerts disabled")
		return &Client{log: log}, nil
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	log.Info("firebase cloud messaging initialized")
	return &Client{client: client, log: log}, nil
}

// SendMulticast sends one notification to every token. It returns the
// tokens FCM reported as no longer registered so the caller can drop them.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	if c.client == nil {
		return nil, fmt.Errorf("FCM client not initialized")
	}

	if len(tokens) == 0 {
		return nil, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: channelID,
				Priority:  messaging.PriorityHigh,
			},
		},
	}

	response, err := c.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("error sending multicast: %w", err)
	}

	var stale []string
	for i, r := range response.Responses {
		if r.Error != nil && messaging.IsRegistrationTokenNotRegistered(r.Error) {
			stale = append(stale, tokens[i])
		}
	}

	c.log.Info("push multicast sent",
		zap.Int("success", response.SuccessCount),
		zap.Int("failure", response.FailureCount),
		zap.Int("stale", len(stale)))
	return stale, nil
}

// IsEnabled returns true if FCM client is initialized
func (c *Client) IsEnabled() bool {
	return c.client != nil
}
