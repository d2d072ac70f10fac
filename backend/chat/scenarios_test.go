// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforum/chatlink/backend/media"
	"github.com/campusforum/chatlink/backend/models"
)

// First contact: A sends "hello" to B with no prior conversation. The
// direct conversation comes into being and carries exactly that one
// message.
func TestFirstContactFlow(t *testing.T) {
	store := newFakeStore()
	store.addProfile("a", "a")
	store.addProfile("b", "b")

	dir := NewDirectory(store, testLogger())
	composer := NewComposer(store, newFakeUploader(), testLogger())
	ctx := context.Background()

	convID, err := dir.FindOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)

	_, err = composer.Send(ctx, convID, "a", &Draft{Text: "hello"})
	require.NoError(t, err)

	history, err := store.FetchHistory(ctx, convID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "a", history[0].SenderID)
}

// Delete-for-everyone: the recipient's view shows the placeholder and
// renders no attachments.
func TestDeleteForEveryoneRecipientView(t *testing.T) {
	store := newFakeStore()
	store.addProfile("a", "a")
	store.addProfile("b", "b")
	store.addDirect("conv-1", "a", "b")
	store.addMessage(models.Message{
		ID: "m1", ConversationID: "conv-1", SenderID: "a",
		Content:     "something embarrassing",
		Attachments: []models.Attachment{{Type: models.AttachmentImage, URL: "https://cdn/oops.png"}},
	})

	lc := NewLifecycle(store, NewDirectory(store, testLogger()), testLogger())
	msg, err := lc.DeleteForEveryone(context.Background(), "a", "m1")
	require.NoError(t, err)

	assert.True(t, msg.VisibleTo("b"))
	assert.Equal(t, models.TombstonePlaceholder, msg.DisplayContent())
	assert.NotEqual(t, "something embarrassing", msg.DisplayContent())
	assert.Nil(t, msg.DisplayAttachments())
}

// Text "draft" plus one attachment whose upload fails: the send aborts
// with the upload error and the text stays in the compose box.
func TestFailedUploadKeepsDraftText(t *testing.T) {
	store := newFakeStore()
	store.addProfile("a", "a")
	store.addProfile("b", "b")
	store.addDirect("conv-1", "a", "b")

	composer := NewComposer(store, newFakeUploader("broken.png"), testLogger())
	draft := &Draft{Text: "draft", Files: []media.File{file("broken.png", "image/png")}}

	_, err := composer.Send(context.Background(), "conv-1", "a", draft)
	assert.ErrorIs(t, err, models.ErrUpload)
	assert.Equal(t, "draft", draft.Text)

	history, _ := store.FetchHistory(context.Background(), "conv-1")
	assert.Empty(t, history)
}
