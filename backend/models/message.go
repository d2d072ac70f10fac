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

// MessageStatus is the best-effort delivery state shown next to a
// sender's own messages. There is no receipt protocol beyond this field.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// TombstonePlaceholder is what every viewer sees in place of a message
// deleted for everyone.
const TombstonePlaceholder = "This message was deleted"

// AttachmentPlaceholder stands in for attachment-only messages in
// previews (reply bars, conversation list).
const AttachmentPlaceholder = "\U0001F4CE Attachment"

// Message is the central mutable entity. Mutations are full row
// updates; rows are only hard-deleted when the whole conversation is.
type Message struct {
	ID             string        `json:"id" db:"id"`
	ConversationID string        `json:"conversation_id" db:"conversation_id"`
	SenderID       string        `json:"sender_id" db:"sender_id"`
	Content        string        `json:"content,omitempty" db:"content"`
	Attachments    []Attachment  `json:"attachments,omitempty" db:"attachments"`
	ReplyTo        string        `json:"reply_to,omitempty" db:"reply_to"`
	ForwardedFrom  string        `json:"forwarded_from,omitempty" db:"forwarded_from"`
	Edited         bool          `json:"edited,omitempty" db:"edited"`
	IsDeleted      bool          `json:"is_deleted,omitempty" db:"is_deleted"`
	DeletedFor     []string      `json:"deleted_for,omitempty" db:"deleted_for"`
	Status         MessageStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time    `json:"updated_at,omitempty" db:"updated_at"`
}

// MessageDraft is the insert payload produced by the send pipeline.
type MessageDraft struct {
	ConversationID string       `json:"conversation_id"`
	SenderID       string       `json:"sender_id"`
	Content        string       `json:"content,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	ReplyTo        string       `json:"reply_to,omitempty"`
	ForwardedFrom  string       `json:"forwarded_from,omitempty"`
}

// Empty reports whether the draft carries neither text nor attachments.
func (d MessageDraft) Empty() bool {
	return d.Content == "" && len(d.Attachments) == 0
}

// DeletedForUser reports whether viewerID appears in the per-viewer
// delete set.
func (m *Message) DeletedForUser(viewerID string) bool {
	for _, id := range m.DeletedFor {
		if id == viewerID {
			return true
		}
	}
	return false
}

// VisibleTo reports whether the message should appear at all in
// viewerID's list. Delete-for-everyone keeps the row visible as a
// tombstone; delete-for-me hides it from that viewer only.
func (m *Message) VisibleTo(viewerID string) bool {
	if m.IsDeleted {
		return true
	}
	return !m.DeletedForUser(viewerID)
}

// DisplayContent is the text a viewer should render. A message deleted
// for everyone renders as a tombstone for all viewers, including those
// in the delete-for-me set.
func (m *Message) DisplayContent() string {
	if m.IsDeleted {
		return TombstonePlaceholder
	}
	return m.Content
}

// DisplayAttachments returns the attachments a viewer may render.
// Tombstones never expose their attachments.
func (m *Message) DisplayAttachments() []Attachment {
	if m.IsDeleted {
		return nil
	}
	return m.Attachments
}

// CopyText is what the copy action places on the clipboard: the
// content, or nothing for tombstones and attachment-only messages.
func (m *Message) CopyText() string {
	if m.IsDeleted {
		return ""
	}
	return m.Content
}

// Preview is the one-line summary used in reply bars and conversation
// lists.
func (m *Message) Preview() string {
	if m.IsDeleted {
		return TombstonePlaceholder
	}
	if m.Content != "" {
		return m.Content
	}
	if len(m.Attachments) > 0 {
		return AttachmentPlaceholder
	}
	return ""
}
