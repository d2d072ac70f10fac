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

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campusforum/chatlink/backend/models"
)

const messageColumns = `id, conversation_id, sender_id, content, attachments,
	reply_to, forwarded_from, edited, is_deleted, deleted_for, status,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m           models.Message
		content     sql.NullString
		attachments []byte
		replyTo     sql.NullString
		forwarded   sql.NullString
		updatedAt   sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &content, &attachments,
		&replyTo, &forwarded, &m.Edited, &m.IsDeleted,
		pq.Array(&m.DeletedFor), &m.Status, &m.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.Content = content.String
	m.ReplyTo = replyTo.String
	m.ForwardedFrom = forwarded.String
	if updatedAt.Valid {
		t := updatedAt.Time
		m.UpdatedAt = &t
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &m.Attachments); err != nil {
			return nil, fmt.Errorf("failed to decode attachments: %w", err)
		}
	}
	return &m, nil
}

// nullable turns the zero string into SQL NULL so empty references and
// empty content are stored as NULL, not "".
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) FetchHistory(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (s *Store) LastMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, conversationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *Store) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = $1
	`, messageID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	return m, err
}

// Insert persists a draft and fans the new row out through the feed.
// Unread markers are bumped for every participant except the sender.
func (s *Store) Insert(ctx context.Context, draft models.MessageDraft) (*models.Message, error) {
	if draft.Empty() {
		return nil, fmt.Errorf("%w: message needs text or attachments", models.ErrValidation)
	}

	ok, err := s.IsParticipant(ctx, draft.ConversationID, draft.SenderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Distinguish a missing conversation from a non-member sender.
		if _, err := s.GetConversation(ctx, draft.ConversationID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: sender %s is not a participant", models.ErrPermission, draft.SenderID)
	}

	if draft.ReplyTo != "" {
		ref, err := s.GetMessage(ctx, draft.ReplyTo)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, fmt.Errorf("%w: reply references unknown message %s", models.ErrValidation, draft.ReplyTo)
			}
			return nil, err
		}
		if ref.ConversationID != draft.ConversationID {
			return nil, fmt.Errorf("%w: reply must reference a message in the same conversation", models.ErrValidation)
		}
	}

	var attachments interface{}
	if len(draft.Attachments) > 0 {
		data, err := json.Marshal(draft.Attachments)
		if err != nil {
			return nil, fmt.Errorf("failed to encode attachments: %w", err)
		}
		attachments = data
	}

	msg := models.Message{
		ID:             uuid.New().String(),
		ConversationID: draft.ConversationID,
		SenderID:       draft.SenderID,
		Content:        draft.Content,
		Attachments:    draft.Attachments,
		ReplyTo:        draft.ReplyTo,
		ForwardedFrom:  draft.ForwardedFrom,
		Status:         models.StatusSent,
		CreatedAt:      time.Now().UTC(),
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, attachments, reply_to, forwarded_from, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, msg.ID, msg.ConversationID, msg.SenderID, nullable(msg.Content), attachments,
		nullable(msg.ReplyTo), nullable(msg.ForwardedFrom), msg.Status, msg.CreatedAt).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	s.bumpUnread(ctx, &msg)
	s.publishInsert(ctx, msg)
	return &msg, nil
}

func (s *Store) bumpUnread(ctx context.Context, msg *models.Message) {
	parts, err := s.Participants(ctx, msg.ConversationID)
	if err != nil {
		s.log.Warn().Err(err).Str("message", msg.ID).Msg("unread fan-out skipped")
		return
	}
	for _, p := range parts {
		if p.UserID == msg.SenderID {
			continue
		}
		if err := s.feed.AddUnread(ctx, p.UserID, msg.ConversationID, msg.ID); err != nil {
			s.log.Warn().Err(err).Str("user", p.UserID).Msg("failed to mark unread")
		}
	}
}

func (s *Store) publishInsert(ctx context.Context, msg models.Message) {
	if err := s.feed.PublishInsert(ctx, msg); err != nil {
		// The write committed; subscribers recover on their next
		// history fetch.
		s.log.Warn().Err(err).Str("message", msg.ID).Msg("failed to publish insert event")
	}
}

func (s *Store) publishUpdate(ctx context.Context, msg models.Message) {
	if err := s.feed.PublishUpdate(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("message", msg.ID).Msg("failed to publish update event")
	}
}

// UpdateContent edits the message text. Only the sender may edit, and
// attachments are never touched by an edit.
func (s *Store) UpdateContent(ctx context.Context, messageID, callerID, content string) (*models.Message, error) {
	existing, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if existing.SenderID != callerID {
		return nil, fmt.Errorf("%w: only the sender can edit", models.ErrPermission)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: edited content cannot be empty", models.ErrValidation)
	}

	m, err := scanMessage(s.db.QueryRowContext(ctx, `
		UPDATE messages
		SET content = $2, edited = TRUE, updated_at = $3
		WHERE id = $1
		RETURNING `+messageColumns+`
	`, messageID, content, time.Now().UTC()))
	if err != nil {
		return nil, err
	}

	s.publishUpdate(ctx, *m)
	return m, nil
}

// MarkDeletedForEveryone sets the tombstone flag. Sender-only; content
// and attachments stay in the row but are hidden from every viewer.
func (s *Store) MarkDeletedForEveryone(ctx context.Context, messageID, callerID string) (*models.Message, error) {
	existing, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if existing.SenderID != callerID {
		return nil, fmt.Errorf("%w: only the sender can delete for everyone", models.ErrPermission)
	}

	m, err := scanMessage(s.db.QueryRowContext(ctx, `
		UPDATE messages
		SET is_deleted = TRUE, updated_at = $2
		WHERE id = $1
		RETURNING `+messageColumns+`
	`, messageID, time.Now().UTC()))
	if err != nil {
		return nil, err
	}

	s.publishUpdate(ctx, *m)
	return m, nil
}

// MarkDeletedForMe appends userID to the per-viewer delete set. Any
// participant may do this for their own view; the append is guarded so
// repeated calls never duplicate the id.
func (s *Store) MarkDeletedForMe(ctx context.Context, messageID, userID string) (*models.Message, error) {
	existing, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	ok, err := s.IsParticipant(ctx, existing.ConversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: not a participant", models.ErrPermission)
	}

	m, err := scanMessage(s.db.QueryRowContext(ctx, `
		UPDATE messages
		SET deleted_for = CASE
			WHEN $2 = ANY(deleted_for) THEN deleted_for
			ELSE array_append(deleted_for, $2)
		END
		WHERE id = $1
		RETURNING `+messageColumns+`
	`, messageID, userID))
	if err != nil {
		return nil, err
	}

	s.publishUpdate(ctx, *m)
	return m, nil
}

// MarkRead flips the row status and clears the reader's unread marker.
// Reading your own message is a no-op.
func (s *Store) MarkRead(ctx context.Context, messageID, userID string) (*models.Message, error) {
	existing, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if existing.SenderID == userID {
		return existing, nil
	}

	m, err := scanMessage(s.db.QueryRowContext(ctx, `
		UPDATE messages
		SET status = $2
		WHERE id = $1
		RETURNING `+messageColumns+`
	`, messageID, models.StatusRead))
	if err != nil {
		return nil, err
	}

	if err := s.feed.RemoveUnread(ctx, userID, m.ConversationID, m.ID); err != nil {
		s.log.Warn().Err(err).Str("message", m.ID).Msg("failed to clear unread marker")
	}
	s.publishUpdate(ctx, *m)
	return m, nil
}

// UnreadCount and ClearUnread are delegated to redis.

func (s *Store) UnreadCount(ctx context.Context, userID, conversationID string) (int64, error) {
	return s.feed.UnreadCount(ctx, userID, conversationID)
}

func (s *Store) ClearUnread(ctx context.Context, userID, conversationID string) error {
	return s.feed.ClearUnread(ctx, userID, conversationID)
}
