package websocket

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultBridgeChannel is the Redis channel shared by all instances
const DefaultBridgeChannel = "realtime:events"

// PresenceTTL bounds how long an instance that died without cleaning up
// keeps its users online
const PresenceTTL = 90 * time.Second

// RedisBridge relays frames between server instances so a user connected to
// one instance receives events emitted on another. Presence is a hash per
// user mapping instance id to the unix time its entry lapses.
type RedisBridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	now        func() time.Time
}

type bridgeEnvelope struct {
	Origin string          `json:"origin"`
	Topics []string        `json:"topics"`
	Frame  json.RawMessage `json:"frame"`
}

// NewRedisBridge creates a bridge on the given channel
func NewRedisBridge(client *redis.Client, channel string) *RedisBridge {
	if channel == "" {
		channel = DefaultBridgeChannel
	}
	return &RedisBridge{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		now:        time.Now,
	}
}

func presenceKey(userID primitive.ObjectID) string {
	return "presence:" + userID.Hex()
}

// MarkOnline records that this instance holds a connection for the user
func (b *RedisBridge) MarkOnline(ctx context.Context, userID primitive.ObjectID) error {
	key := presenceKey(userID)
	until := b.now().Add(PresenceTTL).Unix()
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, b.instanceID, until)
		pipe.Expire(ctx, key, PresenceTTL)
		return nil
	})
	return err
}

// MarkOffline drops this instance's entry for the user
func (b *RedisBridge) MarkOffline(ctx context.Context, userID primitive.ObjectID) error {
	return b.client.HDel(ctx, presenceKey(userID), b.instanceID).Err()
}

// Online reports whether any instance holds a live entry for the user
func (b *RedisBridge) Online(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	entries, err := b.client.HGetAll(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return anyLive(entries, b.now()), nil
}

// anyLive reports whether any presence entry lapses after now
func anyLive(entries map[string]string, now time.Time) bool {
	for _, v := range entries {
		until, err := strconv.ParseInt(v, 10, 64)
		if err == nil && until > now.Unix() {
			return true
		}
	}
	return false
}

// InstanceID identifies this process on the bridge
func (b *RedisBridge) InstanceID() string {
	return b.instanceID
}

// Publish sends an already encoded frame to the other instances
func (b *RedisBridge) Publish(ctx context.Context, topics []string, frame []byte) error {
	payload, err := b.encode(topics, frame)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Listen delivers frames published by other instances until ctx is done
func (b *RedisBridge) Listen(ctx context.Context, deliver func(topics []string, frame []byte) int) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.Printf("Realtime bridge subscribed to %s as %s", b.channel, b.instanceID)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			topics, frame, ok := b.decode(msg.Payload)
			if !ok {
				continue
			}
			deliver(topics, frame)
		}
	}
}

func (b *RedisBridge) encode(topics []string, frame []byte) ([]byte, error) {
	return json.Marshal(bridgeEnvelope{
		Origin: b.instanceID,
		Topics: topics,
		Frame:  frame,
	})
}

// decode returns ok=false for malformed payloads and for frames this
// instance published itself
func (b *RedisBridge) decode(payload string) ([]string, []byte, bool) {
	var env bridgeEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		log.Printf("Failed to decode bridge payload: %v", err)
		return nil, nil, false
	}
	if env.Origin == b.instanceID || len(env.Topics) == 0 {
		return nil, nil, false
	}
	return env.Topics, env.Frame, true
}
