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

package models

import "time"

// ConversationType distinguishes two-party chats from group and
// community channels. The message pipeline is identical for all three.
type ConversationType string

const (
	ConversationDirect    ConversationType = "direct"
	ConversationGroup     ConversationType = "group"
	ConversationCommunity ConversationType = "community"
)

// Conversation is a message channel. Direct conversations have exactly
// two participants and are created on first contact.
type Conversation struct {
	ID          string           `json:"id" db:"id"`
	Type        ConversationType `json:"type" db:"conv_type"`
	Name        string           `json:"name,omitempty" db:"name"`
	Description string           `json:"description,omitempty" db:"description"`
	CreatedBy   string           `json:"created_by" db:"created_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// Participant is a conversation membership record. Membership is
// append-only; there is no leave operation.
type Participant struct {
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	JoinedAt       time.Time `json:"joined_at" db:"joined_at"`
}

// ConversationSummary is one entry of a user's conversation list: the
// conversation, the other participant's profile (direct chats only),
// the most recent message if any, and the viewer's unread count.
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	OtherUser    *Profile     `json:"other_user,omitempty"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	Unread       int64        `json:"unread"`
}

// LastActivity orders summaries: conversations with no messages sort
// as epoch zero, putting them last in a most-recent-first listing.
func (s ConversationSummary) LastActivity() time.Time {
	if s.LastMessage == nil {
		return time.Time{}
	}
	return s.LastMessage.CreatedAt
}
