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
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/models"
	"github.com/campusforum/chatlink/backend/storage"
)

// Directory resolves a user's conversation list and owns direct
// conversation discovery and deletion.
type Directory struct {
	store storage.Store
	log   zerolog.Logger
}

func NewDirectory(store storage.Store, log zerolog.Logger) *Directory {
	return &Directory{
		store: store,
		log:   log.With().Str("component", "directory").Logger(),
	}
}

// ListConversations returns every conversation the user participates
// in, newest activity first. Direct conversations carry the other
// participant's profile; conversations with no messages sort last.
func (d *Directory) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	// A malformed or unknown caller id is an error, never an empty list.
	if _, err := d.store.GetProfile(ctx, userID); err != nil {
		return nil, err
	}

	convs, err := d.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := models.ConversationSummary{Conversation: conv}

		if conv.Type == models.ConversationDirect {
			parts, err := d.store.Participants(ctx, conv.ID)
			if err != nil {
				return nil, err
			}
			for _, p := range parts {
				if p.UserID == userID {
					continue
				}
				profile, err := d.store.GetProfile(ctx, p.UserID)
				if err != nil {
					if errors.Is(err, models.ErrNotFound) {
						// The peer's profile may have been removed;
						// the conversation still lists.
						break
					}
					return nil, err
				}
				summary.OtherUser = profile
				break
			}
		}

		last, err := d.store.LastMessage(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		summary.LastMessage = last

		unread, err := d.store.UnreadCount(ctx, userID, conv.ID)
		if err != nil {
			d.log.Warn().Err(err).Str("conversation", conv.ID).Msg("unread count unavailable")
		} else {
			summary.Unread = unread
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastActivity().After(summaries[j].LastActivity())
	})
	return summaries, nil
}

// FindOrCreateDirect returns the direct conversation between the two
// users, creating it on first contact. Idempotent for the unordered
// pair: (A,B) and (B,A) resolve to the same conversation. A concurrent
// create from the other side loses on the store's pair constraint and
// falls back to the winner's row.
func (d *Directory) FindOrCreateDirect(ctx context.Context, userID, otherUserID string) (string, error) {
	if userID == otherUserID {
		return "", fmt.Errorf("%w: cannot open a conversation with yourself", models.ErrValidation)
	}
	if _, err := d.store.GetProfile(ctx, otherUserID); err != nil {
		return "", err
	}

	existing, err := d.store.FindDirect(ctx, userID, otherUserID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	user1, user2 := userID, otherUserID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	conversationID := uuid.New().String()
	err = d.store.CreateDirect(ctx, conversationID, userID, user1, user2)
	if err == nil {
		d.log.Info().Str("conversation", conversationID).Msg("created direct conversation")
		return conversationID, nil
	}
	if !errors.Is(err, models.ErrValidation) {
		return "", err
	}

	// Lost the creation race; the other side's row is the conversation.
	winner, ferr := d.store.FindDirect(ctx, user1, user2)
	if ferr != nil {
		return "", ferr
	}
	if winner == nil {
		return "", err
	}
	return winner.ID, nil
}

// DeleteConversation cascades: messages, then participant links, then
// the conversation row. Unread markers for every participant go with it.
func (d *Directory) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := d.store.GetConversation(ctx, conversationID); err != nil {
		return err
	}
	ok, err := d.store.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not a participant", models.ErrPermission)
	}

	parts, err := d.store.Participants(ctx, conversationID)
	if err != nil {
		return err
	}

	if err := d.store.DeleteCascade(ctx, conversationID); err != nil {
		return err
	}

	for _, p := range parts {
		if err := d.store.ClearUnread(ctx, p.UserID, conversationID); err != nil {
			d.log.Warn().Err(err).Str("user", p.UserID).Msg("failed to clear unread markers")
		}
	}

	d.log.Info().Str("conversation", conversationID).Str("by", userID).Msg("conversation deleted")
	return nil
}
