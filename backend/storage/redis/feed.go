// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/models"
	"github.com/campusforum/chatlink/backend/storage"
	"github.com/campusforum/chatlink/backend/telemetry"
)

const (
	// Redis key prefixes
	convEventsPrefix = "conv:events:" // conv:events:{conversationId} - pub/sub channel
	unreadPrefix     = "unread:"      // unread:{userId}:{conversationId} - set of message IDs
)

// Feed publishes row-level message events over redis pub/sub and keeps
// per-user unread sets. Delivery inherits redis pub/sub semantics:
// at least once for connected subscribers, no replay for absent ones,
// which is why consumers re-fetch history on (re)connect.
type Feed struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewFeed(rdb *redis.Client, log zerolog.Logger) *Feed {
	return &Feed{rdb: rdb, log: log.With().Str("component", "feed").Logger()}
}

func (f *Feed) PublishInsert(ctx context.Context, msg models.Message) error {
	return f.publish(ctx, storage.Event{Kind: storage.EventInsert, Message: msg})
}

func (f *Feed) PublishUpdate(ctx context.Context, msg models.Message) error {
	return f.publish(ctx, storage.Event{Kind: storage.EventUpdate, Message: msg})
}

func (f *Feed) publish(ctx context.Context, ev storage.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	channel := convEventsPrefix + ev.Message.ConversationID
	if err := f.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe opens a live tail on one conversation's events. Callbacks
// run on the subscription's own goroutine, one event at a time.
func (f *Feed) Subscribe(ctx context.Context, conversationID string, onInsert, onUpdate func(models.Message)) (storage.Subscription, error) {
	ps := f.rdb.Subscribe(ctx, convEventsPrefix+conversationID)

	// Force the subscription onto the wire before returning so callers
	// cannot miss events published after Subscribe returns.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrSubscription, err)
	}

	sub := &subscription{
		ps:  ps,
		log: f.log.With().Str("conversation", conversationID).Logger(),
	}
	sub.wg.Add(1)
	go sub.run(onInsert, onUpdate)
	return sub, nil
}

type subscription struct {
	ps     *redis.PubSub
	log    zerolog.Logger
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (s *subscription) run(onInsert, onUpdate func(models.Message)) {
	defer s.wg.Done()
	for raw := range s.ps.Channel() {
		var ev storage.Event
		if err := json.Unmarshal([]byte(raw.Payload), &ev); err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed feed event")
			continue
		}

		// Dispatch under the lock so Close can guarantee no callback
		// runs after it returns.
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		switch ev.Kind {
		case storage.EventInsert:
			telemetry.FeedEvents.WithLabelValues(string(storage.EventInsert)).Inc()
			onInsert(ev.Message)
		case storage.EventUpdate:
			telemetry.FeedEvents.WithLabelValues(string(storage.EventUpdate)).Inc()
			onUpdate(ev.Message)
		default:
			s.log.Warn().Str("kind", string(ev.Kind)).Msg("unknown feed event kind")
		}
		s.mu.Unlock()
	}
}

// Close is idempotent. Once it returns, no further callbacks will be
// invoked.
func (s *subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.ps.Close()
	s.wg.Wait()
}

// Unread markers, kept in redis the same way the conversation events
// are: cheap to bump on every insert, cheap to clear on read.

func (f *Feed) AddUnread(ctx context.Context, userID, conversationID, messageID string) error {
	key := unreadPrefix + userID + ":" + conversationID
	if err := f.rdb.SAdd(ctx, key, messageID).Err(); err != nil {
		return fmt.Errorf("failed to mark unread: %w", err)
	}
	return nil
}

func (f *Feed) RemoveUnread(ctx context.Context, userID, conversationID, messageID string) error {
	key := unreadPrefix + userID + ":" + conversationID
	return f.rdb.SRem(ctx, key, messageID).Err()
}

func (f *Feed) UnreadCount(ctx context.Context, userID, conversationID string) (int64, error) {
	key := unreadPrefix + userID + ":" + conversationID
	return f.rdb.SCard(ctx, key).Result()
}

func (f *Feed) ClearUnread(ctx context.Context, userID, conversationID string) error {
	key := unreadPrefix + userID + ":" + conversationID
	return f.rdb.Del(ctx, key).Err()
}
