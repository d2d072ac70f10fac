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
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/media"
	"github.com/campusforum/chatlink/backend/models"
	"github.com/campusforum/chatlink/backend/storage"
)

// Draft is the compose-box state for one outgoing message. The send
// pipeline mutates it in place: success clears it, failure preserves
// the user's input so nothing has to be retyped.
type Draft struct {
	Text    string
	Files   []media.File
	ReplyTo string
}

// Composer turns a draft into a persisted message: upload the
// attachments, then insert through the message store.
type Composer struct {
	store    storage.MessageStore
	uploader media.Uploader
	log      zerolog.Logger
}

func NewComposer(store storage.MessageStore, uploader media.Uploader, log zerolog.Logger) *Composer {
	return &Composer{
		store:    store,
		uploader: uploader,
		log:      log.With().Str("component", "composer").Logger(),
	}
}

// Send runs the pipeline for one draft.
//
// Attachments upload concurrently; a failed upload drops only that
// file, and the send proceeds with the survivors. When every
// attachment fails the send aborts with ErrUpload and the draft text
// survives. When persistence fails the whole draft survives and
// ErrSendFailed is returned. On success the draft is cleared and the
// persisted message returned for optimistic insertion; the same row
// will also arrive on the feed and is deduplicated by id downstream.
func (c *Composer) Send(ctx context.Context, conversationID, senderID string, draft *Draft) (*models.Message, error) {
	if draft.Text == "" && len(draft.Files) == 0 {
		return nil, fmt.Errorf("%w: nothing to send", models.ErrEmptyMessage)
	}

	attachments, kept := c.uploadAll(ctx, draft.Files)
	failed := len(draft.Files) - len(kept)
	if len(draft.Files) > 0 && len(attachments) == 0 {
		// Every upload failed. The failed files leave the queue but the
		// text stays in the compose box.
		draft.Files = nil
		return nil, fmt.Errorf("%w: all %d attachments failed", models.ErrUpload, failed)
	}
	if failed > 0 {
		// Failed files leave the queue immediately; if the insert below
		// fails, the preserved draft holds only the survivors.
		draft.Files = kept
		c.log.Warn().Int("failed", failed).Int("kept", len(attachments)).Msg("send proceeding without failed attachments")
	}

	msg, err := c.store.Insert(ctx, models.MessageDraft{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        draft.Text,
		Attachments:    attachments,
		ReplyTo:        draft.ReplyTo,
	})
	if err != nil {
		// Validation and permission failures are terminal and surfaced
		// as themselves; anything else is a persistence failure. Either
		// way the draft is preserved for the user.
		if errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrPermission) || errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrSendFailed, err)
	}

	draft.Text = ""
	draft.Files = nil
	draft.ReplyTo = ""
	return msg, nil
}

// uploadAll uploads every file concurrently and returns the successful
// attachments in the user's original selection order, along with the
// files those attachments came from.
func (c *Composer) uploadAll(ctx context.Context, files []media.File) ([]models.Attachment, []media.File) {
	if len(files) == 0 {
		return nil, nil
	}

	type result struct {
		att models.Attachment
		err error
	}
	results := make([]result, len(files))

	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			att, err := c.uploader.Upload(ctx, files[i])
			results[i] = result{att: att, err: err}
		}(i)
	}
	wg.Wait()

	var (
		attachments []models.Attachment
		kept        []media.File
	)
	for i, r := range results {
		if r.err != nil {
			c.log.Warn().Err(r.err).Str("file", files[i].Name).Msg("attachment upload failed")
			continue
		}
		attachments = append(attachments, r.att)
		kept = append(kept, files[i])
	}
	return attachments, kept
}
