package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/quizdeck/quizdeck/pkg/http/ws"
)

// Auth change events.
const (
	EventLogin       = "login"
	EventLogout      = "logout"
	EventVerified    = "verified"
	EventRoleChanged = "role_changed"
)

const defaultChannel = "auth:events"

// Notifier publishes auth change events. Other tabs of the same user pick
// them up through the Broadcaster and re-resolve their cached auth state.
type Notifier struct {
	redis   *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewNotifier creates an auth event notifier.
func NewNotifier(redisClient *redis.Client, channel string, logger zerolog.Logger) *Notifier {
	if channel == "" {
		channel = defaultChannel
	}
	return &Notifier{
		redis:   redisClient,
		channel: channel,
		logger:  logger.With().Str("component", "session_notifier").Logger(),
	}
}

// AuthChanged publishes one auth change event. A nil Redis client makes this
// a no-op.
func (n *Notifier) AuthChanged(ctx context.Context, userID uuid.UUID, event string) error {
	if n.redis == nil {
		return nil
	}

	payload := ws.AuthChangedPayload{
		UserID: userID.String(),
		Event:  event,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}
	if err := n.redis.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

// Broadcaster subscribes to auth change events and forwards each to the open
// tabs of the affected user.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

// NewBroadcaster creates an auth change broadcaster.
func NewBroadcaster(redisClient *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = defaultChannel
	}
	return &Broadcaster{
		redis:   redisClient,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "session_broadcaster").Logger(),
	}
}

// Run subscribes to the event channel and blocks until the context is
// cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var evt ws.AuthChangedPayload
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode auth event")
		return
	}

	userID, err := uuid.Parse(evt.UserID)
	if err != nil {
		b.logger.Warn().Str("user_id", evt.UserID).Msg("auth event with bad user id")
		return
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		return
	}

	err = b.hub.SendToUser(userID, ws.Message{Type: ws.TypeAuthChanged, Payload: raw})
	if err != nil && err != ws.ErrConnectionNotFound {
		b.logger.Warn().Err(err).Str("user_id", evt.UserID).Msg("failed to forward auth event")
	}
}
