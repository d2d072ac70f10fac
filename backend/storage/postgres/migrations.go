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

func (s *Store) Migrate() error {
	migrations := []string{
		// Conversations table
		`CREATE TABLE IF NOT EXISTS conversations (
			id VARCHAR(255) PRIMARY KEY,
			conv_type VARCHAR(20) NOT NULL CHECK (conv_type IN ('direct', 'group', 'community')),
			name VARCHAR(255) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_by VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Participants table (membership is append-only)
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id VARCHAR(255) NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (conversation_id, user_id),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,

		// Index for listing a user's conversations
		`CREATE INDEX IF NOT EXISTS idx_user_conversations
		ON conversation_participants(user_id, conversation_id)`,

		// Direct pairs table (exactly 2 members). The ordered-pair unique
		// constraint closes the two-writer race on first contact: both
		// sides may race to create, only one row wins.
		`CREATE TABLE IF NOT EXISTS direct_pairs (
			conversation_id VARCHAR(255) PRIMARY KEY,
			user1_id VARCHAR(255) NOT NULL,
			user2_id VARCHAR(255) NOT NULL,
			CONSTRAINT unique_direct_pair UNIQUE (user1_id, user2_id),
			CONSTRAINT ordered_users CHECK (user1_id < user2_id),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,

		// Index for finding the conversation between two users
		`CREATE INDEX IF NOT EXISTS idx_direct_lookup
		ON direct_pairs(user1_id, user2_id)`,

		// Messages table. Mutations are full row updates; rows are only
		// hard-deleted when the whole conversation is.
		`CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR(255) PRIMARY KEY,
			conversation_id VARCHAR(255) NOT NULL,
			sender_id VARCHAR(255) NOT NULL,
			content TEXT,
			attachments JSONB,
			reply_to VARCHAR(255),
			forwarded_from VARCHAR(255),
			edited BOOLEAN NOT NULL DEFAULT FALSE,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_for TEXT[] NOT NULL DEFAULT '{}',
			status VARCHAR(20) NOT NULL DEFAULT 'sent',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,

		// Index for history retrieval
		`CREATE INDEX IF NOT EXISTS idx_conversation_messages
		ON messages(conversation_id, created_at)`,

		// Forum user profiles. Owned by the identity provider; this
		// service only reads them for display and search.
		`CREATE TABLE IF NOT EXISTS forum_users (
			id VARCHAR(255) PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			profile_photo TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Index for username search
		`CREATE INDEX IF NOT EXISTS idx_forum_usernames
		ON forum_users(lower(username))`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
