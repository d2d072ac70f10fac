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

package storage

import (
	"context"

	"github.com/campusforum/chatlink/backend/models"
)

type ConversationStore interface {
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)

	// CreateDirect inserts a direct conversation, its pair row and both
	// participant rows in one transaction. user1 and user2 must already
	// be in normalized order (user1 < user2). Returns ErrValidation
	// wrapped around a unique violation when the pair already exists.
	CreateDirect(ctx context.Context, conversationID, creatorID, user1, user2 string) error

	// FindDirect returns the direct conversation between the pair, or
	// (nil, nil) when none exists. Pair order does not matter.
	FindDirect(ctx context.Context, user1, user2 string) (*models.Conversation, error)

	CreateGroup(ctx context.Context, conv models.Conversation, memberIDs []string) error

	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	Participants(ctx context.Context, conversationID string) ([]models.Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)

	// DeleteCascade removes the conversation's messages, then its
	// participant rows, then the conversation itself, in that order.
	DeleteCascade(ctx context.Context, conversationID string) error
}

type MessageStore interface {
	// FetchHistory returns the full message list ascending by creation
	// time. The realtime feed is a live tail on top of this, never a
	// replacement for it.
	FetchHistory(ctx context.Context, conversationID string) ([]models.Message, error)

	// LastMessage returns the newest message, or (nil, nil) when the
	// conversation has none.
	LastMessage(ctx context.Context, conversationID string) (*models.Message, error)

	// GetMessage fails with ErrNotFound for unknown ids.
	GetMessage(ctx context.Context, messageID string) (*models.Message, error)

	// Insert persists a draft. Fails with ErrValidation when the draft
	// is empty and with ErrPermission when the sender is not a
	// participant of the target conversation.
	Insert(ctx context.Context, draft models.MessageDraft) (*models.Message, error)

	// UpdateContent edits the message text and sets the edited flag.
	// Sender-only; attachments are never touched.
	UpdateContent(ctx context.Context, messageID, callerID, content string) (*models.Message, error)

	// MarkDeletedForEveryone sets the global tombstone flag. Sender-only.
	MarkDeletedForEveryone(ctx context.Context, messageID, callerID string) (*models.Message, error)

	// MarkDeletedForMe appends userID to the per-viewer delete set,
	// without duplicating an id already present. Any participant.
	MarkDeletedForMe(ctx context.Context, messageID, userID string) (*models.Message, error)

	// MarkRead flips the status to read and clears the reader's unread
	// marker. No-op for the sender's own messages.
	MarkRead(ctx context.Context, messageID, userID string) (*models.Message, error)
}

type ProfileStore interface {
	// GetProfile fails with ErrNotFound for unknown or malformed ids;
	// it never silently returns an empty profile.
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)

	SearchProfiles(ctx context.Context, term string, limit int) ([]models.Profile, error)
}

type UnreadStore interface {
	UnreadCount(ctx context.Context, userID, conversationID string) (int64, error)
	ClearUnread(ctx context.Context, userID, conversationID string) error
}

type Store interface {
	ConversationStore
	MessageStore
	ProfileStore
	UnreadStore
}
