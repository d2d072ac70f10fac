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

	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/models"
	"github.com/campusforum/chatlink/backend/storage"
)

// Lifecycle covers the per-message operations: edit, the two delete
// flavors, read status, forwarding and reply resolution. Every
// mutation goes through the message store; the updated row reaches
// open views via the feed, never by mutating view state directly.
type Lifecycle struct {
	store     storage.Store
	directory *Directory
	log       zerolog.Logger
}

func NewLifecycle(store storage.Store, directory *Directory, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		store:     store,
		directory: directory,
		log:       log.With().Str("component", "lifecycle").Logger(),
	}
}

// Edit replaces the message text and marks it edited. Sender-only.
func (l *Lifecycle) Edit(ctx context.Context, callerID, messageID, content string) (*models.Message, error) {
	return l.store.UpdateContent(ctx, messageID, callerID, content)
}

// DeleteForMe hides the message from the caller's view only.
func (l *Lifecycle) DeleteForMe(ctx context.Context, callerID, messageID string) (*models.Message, error) {
	return l.store.MarkDeletedForMe(ctx, messageID, callerID)
}

// DeleteForEveryone tombstones the message for all viewers. Sender-only.
func (l *Lifecycle) DeleteForEveryone(ctx context.Context, callerID, messageID string) (*models.Message, error) {
	return l.store.MarkDeletedForEveryone(ctx, messageID, callerID)
}

// MarkRead records that the caller has seen the message. Only a
// participant of the message's conversation can flip its status.
func (l *Lifecycle) MarkRead(ctx context.Context, callerID, messageID string) (*models.Message, error) {
	msg, err := l.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := l.requireParticipant(ctx, msg.ConversationID, callerID); err != nil {
		return nil, err
	}
	return l.store.MarkRead(ctx, messageID, callerID)
}

func (l *Lifecycle) requireParticipant(ctx context.Context, conversationID, userID string) error {
	ok, err := l.store.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not a participant of %s", models.ErrPermission, userID, conversationID)
	}
	return nil
}

// ForwardTarget names where a message is forwarded to: an existing
// conversation, or a peer with whom a direct conversation may not yet
// exist.
type ForwardTarget struct {
	ConversationID string `json:"conversation_id,omitempty"`
	PeerID         string `json:"peer_id,omitempty"`
}

// Forward copies a message's content and attachments into a new
// message in the target conversation, stamped with the source id.
// Attachment URLs are copied by reference, never re-uploaded. The
// reply link does not travel with a forward.
func (l *Lifecycle) Forward(ctx context.Context, callerID, messageID string, target ForwardTarget) (*models.Message, error) {
	src, err := l.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	// Holding a message id is not enough; the caller must be able to
	// see the source conversation.
	if err := l.requireParticipant(ctx, src.ConversationID, callerID); err != nil {
		return nil, err
	}
	if src.IsDeleted {
		return nil, fmt.Errorf("%w: cannot forward a deleted message", models.ErrValidation)
	}

	conversationID := target.ConversationID
	if conversationID == "" {
		if target.PeerID == "" {
			return nil, fmt.Errorf("%w: forward needs a conversation or a peer", models.ErrValidation)
		}
		conversationID, err = l.directory.FindOrCreateDirect(ctx, callerID, target.PeerID)
		if err != nil {
			return nil, err
		}
	}

	attachments := make([]models.Attachment, len(src.Attachments))
	copy(attachments, src.Attachments)

	msg, err := l.store.Insert(ctx, models.MessageDraft{
		ConversationID: conversationID,
		SenderID:       callerID,
		Content:        src.Content,
		Attachments:    attachments,
		ForwardedFrom:  src.ID,
	})
	if err != nil {
		return nil, err
	}

	l.log.Info().Str("from", src.ID).Str("to", msg.ID).Str("conversation", conversationID).Msg("message forwarded")
	return msg, nil
}

// ReplyPreview is the resolved quote shown above a replying message.
type ReplyPreview struct {
	MessageID string `json:"message_id"`
	Found     bool   `json:"found"`
	SenderID  string `json:"sender_id,omitempty"`
	Preview   string `json:"preview"`
}

// ReplyFallback is rendered when the referenced message is not in the
// loaded window (older than the fetch, or since cascade-deleted).
const ReplyFallback = "Message unavailable"

// ResolveReply resolves a reply reference against the loaded message
// window. A reference outside the window yields a generic placeholder,
// never an error.
func ResolveReply(window []models.Message, replyTo string) ReplyPreview {
	if replyTo == "" {
		return ReplyPreview{}
	}
	for i := range window {
		if window[i].ID == replyTo {
			return ReplyPreview{
				MessageID: replyTo,
				Found:     true,
				SenderID:  window[i].SenderID,
				Preview:   window[i].Preview(),
			}
		}
	}
	return ReplyPreview{MessageID: replyTo, Preview: ReplyFallback}
}
