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
	"fmt"

	"github.com/campusforum/chatlink/backend/models"
)

func (s *Store) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conv_type, name, description, created_by, created_at
		FROM conversations
		WHERE id = $1`, conversationID).Scan(
		&conv.ID, &conv.Type, &conv.Name, &conv.Description, &conv.CreatedBy, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: conversation %s", models.ErrNotFound, conversationID)
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateDirect inserts the conversation, its ordered pair row and both
// participant rows in one transaction. The unique_direct_pair
// constraint makes concurrent first-contact creation lose cleanly.
func (s *Store) CreateDirect(ctx context.Context, conversationID, creatorID, user1, user2 string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, conv_type, created_by)
		VALUES ($1, 'direct', $2)
	`, conversationID, creatorID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO direct_pairs (conversation_id, user1_id, user2_id)
		VALUES ($1, $2, $3)
	`, conversationID, user1, user2)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: direct pair already exists", models.ErrValidation)
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2), ($1, $3)
	`, conversationID, user1, user2)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// FindDirect returns the direct conversation between the pair, or
// (nil, nil) when none exists.
func (s *Store) FindDirect(ctx context.Context, user1, user2 string) (*models.Conversation, error) {
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	var conv models.Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.conv_type, c.name, c.description, c.created_by, c.created_at
		FROM direct_pairs d
		JOIN conversations c ON c.id = d.conversation_id
		WHERE d.user1_id = $1 AND d.user2_id = $2
	`, user1, user2).Scan(
		&conv.ID, &conv.Type, &conv.Name, &conv.Description, &conv.CreatedBy, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Store) CreateGroup(ctx context.Context, conv models.Conversation, memberIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, conv_type, name, description, created_by)
		VALUES ($1, $2, $3, $4, $5)
	`, conv.ID, conv.Type, conv.Name, conv.Description, conv.CreatedBy)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2)
	`, conv.ID, conv.CreatedBy)
	if err != nil {
		return err
	}

	for _, memberID := range memberIDs {
		if memberID == conv.CreatedBy {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (conversation_id, user_id) DO NOTHING
		`, conv.ID, memberID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.conv_type, c.name, c.description, c.created_by, c.created_at
		FROM conversation_participants p
		JOIN conversations c ON c.id = p.conversation_id
		WHERE p.user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.Type, &conv.Name, &conv.Description, &conv.CreatedBy, &conv.CreatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (s *Store) Participants(ctx context.Context, conversationID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, user_id, joined_at
		FROM conversation_participants
		WHERE conversation_id = $1
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (s *Store) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)
	`, conversationID, userID).Scan(&exists)
	return exists, err
}

// DeleteCascade removes messages, then participant rows, then the
// conversation, in that order, so referential integrity is never
// violated mid-delete.
func (s *Store) DeleteCascade(ctx context.Context, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = $1`, conversationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_participants WHERE conversation_id = $1`, conversationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM direct_pairs WHERE conversation_id = $1`, conversationID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, conversationID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: conversation %s", models.ErrNotFound, conversationID)
	}

	return tx.Commit()
}
