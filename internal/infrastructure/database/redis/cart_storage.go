// internal/infrastructure/database/redis/cart_storage.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/domain/cart"
)

// changeMessage is published on every write so other tabs can follow along
type changeMessage struct {
	Origin string `json:"origin"`
	Value  string `json:"value"`
}

// CartStorage is the shared storage of one browser profile.
// Values live under "<namespace>:<key>", changes are published on "<namespace>:<key>:events".
type CartStorage struct {
	client    *Client
	namespace string
	ttl       time.Duration
	log       logrus.FieldLogger
}

// Namespace builds the key namespace of a profile, e.g. "storefront:<profile>"
func Namespace(prefix, profileID string) string {
	return fmt.Sprintf("%s:%s", prefix, profileID)
}

// NewCartStorage creates shared storage scoped to a namespace. A zero ttl keeps keys forever.
func NewCartStorage(client *Client, namespace string, ttl time.Duration, log logrus.FieldLogger) *CartStorage {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CartStorage{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		log:       log.WithFields(logrus.Fields{"component": "cart_storage", "namespace": namespace}),
	}
}

// Get returns the stored value, found=false when the key does not exist
func (s *CartStorage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Redis.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", s.key(key), err)
	}
	return val, true, nil
}

// Set writes the value and publishes the change in one transaction
func (s *CartStorage) Set(ctx context.Context, key, value, origin string) error {
	payload, err := json.Marshal(changeMessage{Origin: origin, Value: value})
	if err != nil {
		return fmt.Errorf("failed to encode change message: %w", err)
	}

	_, err = s.client.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(key), value, s.ttl)
		pipe.Publish(ctx, s.channel(key), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key(key), err)
	}
	return nil
}

// Watch streams changes to key until ctx is cancelled
func (s *CartStorage) Watch(ctx context.Context, key string) (<-chan cart.StorageEvent, error) {
	sub := s.client.Redis.Subscribe(ctx, s.channel(key))

	// Wait for the subscription to be confirmed so no write is missed afterwards
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.channel(key), err)
	}

	events := make(chan cart.StorageEvent)
	messages := sub.Channel()

	go func() {
		defer close(events)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var change changeMessage
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					s.log.WithError(err).Warn("Ignoring malformed cart change message")
					continue
				}

				select {
				case events <- cart.StorageEvent{Key: key, NewValue: change.Value, Origin: change.Origin}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func (s *CartStorage) key(key string) string {
	return s.namespace + ":" + key
}

func (s *CartStorage) channel(key string) string {
	return s.key(key) + ":events"
}
