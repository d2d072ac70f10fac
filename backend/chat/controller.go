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

package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/models"
	"github.com/campusforum/chatlink/backend/storage"
)

// State is the view controller's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Controller owns one user's active conversation view: the message
// list, the single live feed subscription, and the merge of optimistic
// sends with feed events. Nothing else mutates the list; the composer
// and lifecycle operations write through the store and let the feed
// (or the optimistic path, deduplicated by id) bring the row here.
type Controller struct {
	userID    string
	store     storage.MessageStore
	feed      storage.Feed
	directory *Directory
	composer  *Composer
	log       zerolog.Logger

	// onScroll fires after initial load, any insert and every send.
	onScroll func()

	mu       sync.Mutex
	state    State
	activeID string
	messages []models.Message
	sub      storage.Subscription
}

func NewController(userID string, store storage.MessageStore, feed storage.Feed, directory *Directory, composer *Composer, log zerolog.Logger) *Controller {
	return &Controller{
		userID:    userID,
		store:     store,
		feed:      feed,
		directory: directory,
		composer:  composer,
		log:       log.With().Str("component", "controller").Str("user", userID).Logger(),
		state:     StateIdle,
	}
}

// SetScrollHandler registers the scroll-to-latest signal.
func (c *Controller) SetScrollHandler(fn func()) {
	c.mu.Lock()
	c.onScroll = fn
	c.mu.Unlock()
}

func (c *Controller) scroll() {
	c.mu.Lock()
	fn := c.onScroll
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Open switches the active conversation: tear down the previous
// subscription, subscribe to the new conversation's feed, then fetch
// authoritative history and merge in anything that arrived live in
// between. A history result that resolves after a newer switch is
// discarded.
func (c *Controller) Open(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	oldSub := c.sub
	c.sub = nil
	c.state = StateLoading
	c.activeID = conversationID
	c.messages = nil
	c.mu.Unlock()

	// Close outside the lock: Close waits for any in-flight callback,
	// and callbacks take the lock.
	if oldSub != nil {
		oldSub.Close()
	}

	sub, err := c.feed.Subscribe(ctx, conversationID, c.onFeedInsert, c.onFeedUpdate)
	if err != nil {
		c.mu.Lock()
		if c.activeID == conversationID {
			c.state = StateIdle
		}
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", models.ErrSubscription, err)
	}

	history, err := c.store.FetchHistory(ctx, conversationID)
	if err != nil {
		sub.Close()
		c.mu.Lock()
		if c.activeID == conversationID {
			c.state = StateIdle
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.activeID != conversationID || c.state != StateLoading {
		// A newer switch (or close) won; this result is stale.
		c.mu.Unlock()
		sub.Close()
		return nil
	}
	// Keep events that beat the history fetch onto the list.
	live := c.messages
	c.messages = history
	for i := range live {
		if !c.hasMessageLocked(live[i].ID) {
			c.messages = append(c.messages, live[i])
		}
	}
	c.sub = sub
	c.state = StateReady
	c.mu.Unlock()

	c.scroll()
	return nil
}

// Resync re-opens the active conversation. The feed has no gap-filling
// primitive, so a dropped subscription recovers with a full history
// fetch.
func (c *Controller) Resync(ctx context.Context) error {
	c.mu.Lock()
	id := c.activeID
	state := c.state
	c.mu.Unlock()
	if state != StateReady && state != StateLoading {
		return fmt.Errorf("%w: no active conversation", models.ErrValidation)
	}
	return c.Open(ctx, id)
}

// Send runs the draft through the composer for the active conversation
// and applies the result optimistically. The feed copy of the same row
// is deduplicated by id.
func (c *Controller) Send(ctx context.Context, draft *Draft) (*models.Message, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no active conversation", models.ErrValidation)
	}
	conversationID := c.activeID
	c.mu.Unlock()

	msg, err := c.composer.Send(ctx, conversationID, c.userID, draft)
	if err != nil {
		return nil, err
	}

	c.applyInsert(*msg)
	c.scroll()
	return msg, nil
}

// DeleteActive cascades away the open conversation and closes the view.
func (c *Controller) DeleteActive(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return fmt.Errorf("%w: no active conversation", models.ErrValidation)
	}
	conversationID := c.activeID
	c.mu.Unlock()

	if err := c.directory.DeleteConversation(ctx, c.userID, conversationID); err != nil {
		return err
	}

	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.state = StateClosed
	c.activeID = ""
	c.messages = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	return nil
}

// Close tears the controller down (user navigated away).
func (c *Controller) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.state = StateIdle
	c.activeID = ""
	c.messages = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// State reports the controller's current lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveConversation returns the open conversation id, or "".
func (c *Controller) ActiveConversation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// Messages returns a snapshot of the view's message list.
func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// VisibleMessages filters the snapshot down to what this user should
// render: delete-for-me rows vanish, tombstones stay.
func (c *Controller) VisibleMessages() []models.Message {
	all := c.Messages()
	out := all[:0]
	for i := range all {
		if all[i].VisibleTo(c.userID) {
			out = append(out, all[i])
		}
	}
	return out
}

func (c *Controller) onFeedInsert(msg models.Message) {
	if c.applyInsert(msg) {
		c.scroll()
	}
}

func (c *Controller) onFeedUpdate(msg models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.ConversationID != c.activeID {
		return
	}
	// Replace in place. Updates never reorder the list; re-sorting on
	// a content edit would make bubbles jump.
	for i := range c.messages {
		if c.messages[i].ID == msg.ID {
			c.messages[i] = msg
			return
		}
	}
	// An update for a row we never saw: tolerate at-least-once feeds
	// that replay an update without its insert by appending.
	if c.state == StateReady || c.state == StateLoading {
		c.messages = append(c.messages, msg)
	}
}

// applyInsert appends a message if its id is not already present,
// deduplicating optimistic inserts against feed copies and feed
// replays. Live events are accepted while loading so nothing published
// between subscribe and history-fetch is lost.
func (c *Controller) applyInsert(msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.ConversationID != c.activeID {
		return false
	}
	if c.state != StateReady && c.state != StateLoading {
		return false
	}
	if c.hasMessageLocked(msg.ID) {
		return false
	}
	// Out-of-order arrivals append at the end anyway: minor display
	// jitter beats re-sorting the whole list.
	c.messages = append(c.messages, msg)
	return true
}

func (c *Controller) hasMessageLocked(id string) bool {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return true
		}
	}
	return false
}
