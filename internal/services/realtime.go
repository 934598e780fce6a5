package services

import (
	"log/slog"

	pubnub "github.com/pubnub/go/v7"
)

// Realtime pushes best-effort live updates to dashboards and ticket holders.
type Realtime interface {
	Publish(channel string, message any)
}

type PubNubRealtime struct {
	pn *pubnub.PubNub
}

func NewPubNubRealtime(publishKey, subscribeKey, secretKey, userID string) Realtime {
	if publishKey == "" {
		return NopRealtime{}
	}

	cfg := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	cfg.PublishKey = publishKey
	cfg.SubscribeKey = subscribeKey
	cfg.SecretKey = secretKey

	return &PubNubRealtime{pn: pubnub.NewPubNub(cfg)}
}

// Publish does not block the caller.
func (r *PubNubRealtime) Publish(channel string, message any) {
	go func() {
		if _, _, err := r.pn.Publish().Channel(channel).Message(message).Execute(); err != nil {
			slog.Warn("Realtime publish failed", "channel", channel, "error", err)
		}
	}()
}

type NopRealtime struct{}

func (NopRealtime) Publish(string, any) {}
