// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusforum/chatlink/backend/media"
	"github.com/campusforum/chatlink/backend/models"
)

func composerFixture(t *testing.T, uploader media.Uploader) (*Composer, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.addProfile("alice", "alice")
	store.addProfile("bob", "bob")
	store.addDirect("conv-1", "alice", "bob")
	return NewComposer(store, uploader, testLogger()), store
}

func file(name, mime string) media.File {
	return media.File{Name: name, MIME: mime, Content: strings.NewReader("data")}
}

func TestSendTextOnly(t *testing.T) {
	composer, _ := composerFixture(t, newFakeUploader())
	draft := &Draft{Text: "hello"}

	msg, err := composer.Send(context.Background(), "conv-1", "alice", draft)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "alice", msg.SenderID)

	// Success clears the draft.
	assert.Empty(t, draft.Text)
	assert.Empty(t, draft.Files)
}

func TestSendEmptyDraft(t *testing.T) {
	composer, _ := composerFixture(t, newFakeUploader())

	_, err := composer.Send(context.Background(), "conv-1", "alice", &Draft{})
	assert.ErrorIs(t, err, models.ErrEmptyMessage)
}

func TestSendUploadsKeepSelectionOrder(t *testing.T) {
	uploader := newFakeUploader()
	composer, _ := composerFixture(t, uploader)

	draft := &Draft{Files: []media.File{
		file("a.png", "image/png"),
		file("b.mp4", "video/mp4"),
		file("c.pdf", "application/pdf"),
	}}

	msg, err := composer.Send(context.Background(), "conv-1", "alice", draft)
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 3)
	assert.Equal(t, "a.png", msg.Attachments[0].Name)
	assert.Equal(t, "b.mp4", msg.Attachments[1].Name)
	assert.Equal(t, "c.pdf", msg.Attachments[2].Name)
	assert.Equal(t, models.AttachmentImage, msg.Attachments[0].Type)
	assert.Equal(t, models.AttachmentVideo, msg.Attachments[1].Type)
	assert.Equal(t, models.AttachmentPDF, msg.Attachments[2].Type)
}

// One upload fails out of several: the send proceeds without the
// failed file.
func TestSendPartialUploadFailure(t *testing.T) {
	uploader := newFakeUploader("b.mp4")
	composer, _ := composerFixture(t, uploader)

	draft := &Draft{Files: []media.File{
		file("a.png", "image/png"),
		file("b.mp4", "video/mp4"),
		file("c.pdf", "application/pdf"),
	}}

	msg, err := composer.Send(context.Background(), "conv-1", "alice", draft)
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, "a.png", msg.Attachments[0].Name)
	assert.Equal(t, "c.pdf", msg.Attachments[1].Name)
}

// Every upload fails: the send aborts, the text stays in the compose
// box, the failed files leave the queue.
func TestSendAllUploadsFail(t *testing.T) {
	uploader := newFakeUploader("a.png", "b.mp4")
	composer, store := composerFixture(t, uploader)

	draft := &Draft{Text: "look at these", Files: []media.File{
		file("a.png", "image/png"),
		file("b.mp4", "video/mp4"),
	}}

	_, err := composer.Send(context.Background(), "conv-1", "alice", draft)
	assert.ErrorIs(t, err, models.ErrUpload)

	assert.Equal(t, "look at these", draft.Text)
	assert.Empty(t, draft.Files)

	history, _ := store.FetchHistory(context.Background(), "conv-1")
	assert.Empty(t, history, "nothing should have been persisted")
}

// Insert failure preserves the whole draft for retry.
func TestSendInsertFailurePreservesDraft(t *testing.T) {
	uploader := newFakeUploader()
	composer, store := composerFixture(t, uploader)
	store.insertErr = errors.New("connection reset")

	draft := &Draft{Text: "try again", Files: []media.File{file("a.png", "image/png")}}

	_, err := composer.Send(context.Background(), "conv-1", "alice", draft)
	assert.ErrorIs(t, err, models.ErrSendFailed)

	assert.Equal(t, "try again", draft.Text)
	assert.Len(t, draft.Files, 1)
}

// A failed upload leaves the queue even when the insert then fails:
// the preserved draft holds only the files that uploaded cleanly.
func TestSendInsertFailureDropsFailedUploads(t *testing.T) {
	uploader := newFakeUploader("b.mp4")
	composer, store := composerFixture(t, uploader)
	store.insertErr = errors.New("connection reset")

	draft := &Draft{Text: "try again", Files: []media.File{
		file("a.png", "image/png"),
		file("b.mp4", "video/mp4"),
	}}

	_, err := composer.Send(context.Background(), "conv-1", "alice", draft)
	assert.ErrorIs(t, err, models.ErrSendFailed)

	assert.Equal(t, "try again", draft.Text)
	require.Len(t, draft.Files, 1)
	assert.Equal(t, "a.png", draft.Files[0].Name)
}

func TestSendReplyInSameConversation(t *testing.T) {
	composer, store := composerFixture(t, newFakeUploader())
	store.addMessage(models.Message{ID: "m1", ConversationID: "conv-1", SenderID: "bob", Content: "question"})

	msg, err := composer.Send(context.Background(), "conv-1", "alice", &Draft{Text: "answer", ReplyTo: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ReplyTo)
}

// A reply reference must land in the conversation being sent to; a
// message id from elsewhere, or an unknown id, rejects the send.
func TestSendReplyAcrossConversations(t *testing.T) {
	composer, store := composerFixture(t, newFakeUploader())
	store.addDirect("conv-2", "alice", "carol")
	store.addMessage(models.Message{ID: "m-other", ConversationID: "conv-2", SenderID: "carol", Content: "elsewhere"})

	_, err := composer.Send(context.Background(), "conv-1", "alice", &Draft{Text: "hi", ReplyTo: "m-other"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = composer.Send(context.Background(), "conv-1", "alice", &Draft{Text: "hi", ReplyTo: "m-ghost"})
	assert.ErrorIs(t, err, models.ErrValidation)

	history, _ := store.FetchHistory(context.Background(), "conv-1")
	assert.Empty(t, history, "nothing should have been persisted")
}

func TestSendNonParticipant(t *testing.T) {
	composer, _ := composerFixture(t, newFakeUploader())

	draft := &Draft{Text: "let me in"}
	_, err := composer.Send(context.Background(), "conv-1", "mallory", draft)
	assert.ErrorIs(t, err, models.ErrPermission)

	// Terminal rejections still keep the draft.
	assert.Equal(t, "let me in", draft.Text)
}
