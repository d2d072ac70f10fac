// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleTo(t *testing.T) {
	msg := Message{ID: "m1", SenderID: "alice", Content: "hi"}

	assert.True(t, msg.VisibleTo("alice"))
	assert.True(t, msg.VisibleTo("bob"))

	msg.DeletedFor = []string{"bob"}
	assert.True(t, msg.VisibleTo("alice"))
	assert.False(t, msg.VisibleTo("bob"))
}

// Delete-for-everyone takes precedence: the row renders as a tombstone
// even for viewers who had already deleted it for themselves.
func TestTombstonePrecedence(t *testing.T) {
	msg := Message{
		ID:          "m1",
		SenderID:    "alice",
		Content:     "secret",
		Attachments: []Attachment{{Type: AttachmentImage, URL: "https://cdn/x.png"}},
		IsDeleted:   true,
		DeletedFor:  []string{"bob"},
	}

	assert.True(t, msg.VisibleTo("bob"))
	assert.Equal(t, TombstonePlaceholder, msg.DisplayContent())
	assert.Nil(t, msg.DisplayAttachments())
	assert.Empty(t, msg.CopyText())
}

func TestCopyText(t *testing.T) {
	text := Message{Content: "copy me"}
	assert.Equal(t, "copy me", text.CopyText())

	attachmentOnly := Message{Attachments: []Attachment{{Type: AttachmentFile, URL: "https://cdn/f"}}}
	assert.Empty(t, attachmentOnly.CopyText())

	tombstone := Message{Content: "gone", IsDeleted: true}
	assert.Empty(t, tombstone.CopyText())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hello", (&Message{Content: "hello"}).Preview())
	assert.Equal(t, AttachmentPlaceholder, (&Message{Attachments: []Attachment{{}}}).Preview())
	assert.Equal(t, TombstonePlaceholder, (&Message{Content: "x", IsDeleted: true}).Preview())
	assert.Empty(t, (&Message{}).Preview())
}

func TestDraftEmpty(t *testing.T) {
	assert.True(t, MessageDraft{}.Empty())
	assert.False(t, MessageDraft{Content: "hi"}.Empty())
	assert.False(t, MessageDraft{Attachments: []Attachment{{}}}.Empty())
}
